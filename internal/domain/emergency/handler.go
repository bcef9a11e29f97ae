package emergency

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ankandalui/med-ai-sub001/internal/platform/httpx"
	"github.com/ankandalui/med-ai-sub001/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, _ *echo.Group) {
	api.POST("/emergency", h.CreateEmergency)
	api.GET("/emergency", h.ListEmergencies)
	api.PATCH("/emergency", h.UpdateEmergencyStatus)
	api.POST("/health-worker/send-to-hospital", h.SendToHospital)
}

func (h *Handler) CreateEmergency(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return httpx.Validation("Invalid request body")
	}
	a, err := h.svc.CreateEmergency(c.Request().Context(), &in)
	if err != nil {
		return err
	}
	return httpx.OK(c, map[string]interface{}{
		"emergencyId": a.EmergencyID,
		"alertId":     a.ID,
		"status":      a.Status,
		"message":     "Emergency alert created successfully",
	})
}

func (h *Handler) ListEmergencies(c echo.Context) error {
	f := ListFilter{
		Status:      c.QueryParam("status"),
		EmergencyID: c.QueryParam("emergencyId"),
		Limit:       pagination.WithDefault(c, DefaultListLimit).Limit,
	}
	items, err := h.svc.ListEmergencies(c.Request().Context(), f)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Alert{}
	}
	return httpx.Success(c, http.StatusOK, map[string]interface{}{
		"data":  items,
		"count": len(items),
	})
}

func (h *Handler) UpdateEmergencyStatus(c echo.Context) error {
	var in StatusUpdate
	if err := c.Bind(&in); err != nil {
		return httpx.Validation("Invalid request body")
	}
	a, err := h.svc.UpdateStatus(c.Request().Context(), in.EmergencyID, in.Status)
	if err != nil {
		return err
	}
	return httpx.OK(c, a)
}

func (h *Handler) SendToHospital(c echo.Context) error {
	var req HospitalRequest
	if err := c.Bind(&req); err != nil {
		return httpx.Validation("Invalid request body")
	}
	a, err := h.svc.SendToHospital(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, map[string]interface{}{
		"message": "Patient details successfully sent to hospital and ambulance",
		"data": map[string]interface{}{
			"alertId":        a.ID,
			"hospitalPhone":  a.HospitalPhone,
			"ambulancePhone": a.AmbulancePhone,
			"status":         a.Status,
			"sentAt":         a.SentAt,
		},
	})
}
