package identity

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ankandalui/med-ai-sub001/internal/platform/auth"
	"github.com/ankandalui/med-ai-sub001/internal/platform/httpx"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the signup, login and OTP endpoints on authGroup
// and the profile and stats endpoints on api.
func (h *Handler) RegisterRoutes(api *echo.Group, authGroup *echo.Group) {
	authGroup.POST("/signup/patient", h.SignupPatient)
	authGroup.POST("/signup/health-worker", h.SignupHealthWorker)
	authGroup.POST("/login", h.Login)
	authGroup.POST("/verify-otp", h.VerifyOTP)

	profile := api.Group("/user", auth.JWTMiddleware(h.svc.Tokens()))
	profile.GET("/profile", h.GetProfile)
	profile.PUT("/profile", h.UpdateProfile)

	api.GET("/health", h.Stats)
}

func (h *Handler) SignupPatient(c echo.Context) error {
	var in PatientSignup
	if err := c.Bind(&in); err != nil {
		return httpx.Validation("Invalid request body")
	}
	res, err := h.svc.SignupPatient(c.Request().Context(), &in)
	if err != nil {
		return err
	}
	return signupResponse(c, "Patient registered successfully", res)
}

func (h *Handler) SignupHealthWorker(c echo.Context) error {
	var in HealthWorkerSignup
	if err := c.Bind(&in); err != nil {
		return httpx.Validation("Invalid request body")
	}
	res, err := h.svc.SignupHealthWorker(c.Request().Context(), &in)
	if err != nil {
		return err
	}
	return signupResponse(c, "Health worker registered successfully", res)
}

func signupResponse(c echo.Context, msg string, res *SignupResult) error {
	return httpx.Success(c, http.StatusOK, map[string]interface{}{
		"message":   msg,
		"user":      res.User,
		"token":     res.Token,
		"otpSent":   true,
		"otpBypass": res.OTPBypass,
	})
}

func (h *Handler) Login(c echo.Context) error {
	var in LoginInput
	if err := c.Bind(&in); err != nil {
		return httpx.Validation("Invalid request body")
	}
	u, token, err := h.svc.Login(c.Request().Context(), &in)
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"user":    u,
		"token":   token,
	})
}

func (h *Handler) VerifyOTP(c echo.Context) error {
	var in VerifyOTPInput
	if err := c.Bind(&in); err != nil {
		return httpx.Validation("Invalid request body")
	}
	if err := h.svc.VerifyOTP(c.Request().Context(), &in); err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, map[string]interface{}{
		"message":  "OTP verified successfully",
		"verified": true,
	})
}

func (h *Handler) GetProfile(c echo.Context) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	u, err := h.svc.GetProfile(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, map[string]interface{}{"user": u})
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	id, err := callerID(c)
	if err != nil {
		return err
	}
	var in ProfileUpdate
	if err := c.Bind(&in); err != nil {
		return httpx.Validation("Invalid request body")
	}
	u, err := h.svc.UpdateProfile(c.Request().Context(), id, &in)
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, map[string]interface{}{
		"message": "Profile updated successfully",
		"user":    u,
	})
}

func (h *Handler) Stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"status":  "error",
			"message": "Database connection failed",
		})
	}
	return httpx.Success(c, http.StatusOK, map[string]interface{}{
		"status":  "connected",
		"message": "Database connection successful",
		"stats":   stats,
	})
}

func callerID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, httpx.Unauthorized("Invalid or expired token")
	}
	return id, nil
}
