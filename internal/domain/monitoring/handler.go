package monitoring

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ankandalui/med-ai-sub001/internal/platform/httpx"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, _ *echo.Group) {
	g := api.Group("/health-worker/monitoring")
	g.GET("", h.Dashboard)
	g.POST("", h.AddPatient)
}

func (h *Handler) Dashboard(c echo.Context) error {
	items, err := h.svc.Dashboard(c.Request().Context())
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, map[string]interface{}{"patients": items})
}

func (h *Handler) AddPatient(c echo.Context) error {
	var in AddPatientInput
	if err := c.Bind(&in); err != nil {
		return httpx.Validation("Invalid request body")
	}
	res, err := h.svc.AddPatient(c.Request().Context(), &in)
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, map[string]interface{}{
		"message": "Patient added successfully",
		"data":    res,
	})
}
