package records

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ankandalui/med-ai-sub001/internal/platform/auth"
	"github.com/ankandalui/med-ai-sub001/internal/platform/httpx"
)

type Handler struct {
	svc    *Service
	tokens *auth.TokenIssuer
}

func NewHandler(svc *Service, tokens *auth.TokenIssuer) *Handler {
	return &Handler{svc: svc, tokens: tokens}
}

func (h *Handler) RegisterRoutes(api *echo.Group, _ *echo.Group) {
	api.GET("/health-worker/records", h.Merged)
	api.POST("/health-worker/records", h.CreateRecord,
		auth.JWTMiddleware(h.tokens), auth.RequireUserType(auth.UserTypeHealthWorker))
	api.GET("/records/verify/:cid", h.Verify)
	api.GET("/patient/records", h.PatientRecords)
	api.GET("/patient/emergency-info", h.GetEmergencyInfo)
	api.POST("/patient/emergency-info", h.SaveEmergencyInfo)
}

func (h *Handler) Merged(c echo.Context) error {
	view, err := h.svc.Merged(c.Request().Context(), MergedFilter{
		Type:   c.QueryParam("type"),
		Search: c.QueryParam("search"),
	})
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, map[string]interface{}{
		"data":               view.Entries,
		"total":              len(view.Entries),
		"medical_records":    view.MedicalRecords,
		"monitoring_records": view.MonitoringRecords,
		"emergency_alerts":   view.EmergencyAlerts,
	})
}

func (h *Handler) CreateRecord(c echo.Context) error {
	var in CreateRecordInput
	if err := c.Bind(&in); err != nil {
		return httpx.Validation("Invalid request body")
	}
	ctx := c.Request().Context()
	r, err := h.svc.CreateRecord(ctx, auth.UserIDFromContext(ctx), &in)
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusCreated, map[string]interface{}{
		"data":      r,
		"published": r.BlockchainCID != nil,
		"message":   "Medical record created successfully",
	})
}

func (h *Handler) Verify(c echo.Context) error {
	v, err := h.svc.Verify(c.Request().Context(), c.Param("cid"))
	if err != nil {
		return err
	}
	return httpx.OK(c, v)
}

func (h *Handler) PatientRecords(c echo.Context) error {
	out, err := h.svc.PatientRecords(c.Request().Context(), c.QueryParam("phone"))
	if err != nil {
		return err
	}
	return httpx.OK(c, out)
}

func (h *Handler) GetEmergencyInfo(c echo.Context) error {
	info, err := h.svc.EmergencyInfo(c.Request().Context(), c.QueryParam("patientId"))
	if err != nil {
		return err
	}
	if info == nil {
		return httpx.Success(c, http.StatusOK, map[string]interface{}{
			"data":    nil,
			"message": "No emergency info found",
		})
	}
	return httpx.Success(c, http.StatusOK, map[string]interface{}{
		"data":    info,
		"message": "Emergency info retrieved successfully",
	})
}

func (h *Handler) SaveEmergencyInfo(c echo.Context) error {
	var in EmergencyInfoInput
	if err := c.Bind(&in); err != nil {
		return httpx.Validation("Invalid request body")
	}
	info, err := h.svc.SaveEmergencyInfo(c.Request().Context(), &in)
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, map[string]interface{}{
		"data":    info,
		"message": "Emergency info saved successfully",
	})
}
