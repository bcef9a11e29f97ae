package portal

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
	api.GET("/patient/vaccinations", h.ListVaccinations)
	api.POST("/patient/vaccinations", h.CreateVaccination)
	api.PUT("/patient/vaccinations", h.UpdateVaccination)
	api.DELETE("/patient/vaccinations", h.DeleteVaccination)

	api.GET("/patient/notifications", h.ListNotifications)
	api.PUT("/patient/notifications", h.UpdateNotification)
	api.DELETE("/patient/notifications", h.DeleteNotification)
}

// -- Vaccinations --

func (h *Handler) ListVaccinations(c echo.Context) error {
	items, stats := h.svc.Vaccinations(c.Request().Context(), c.QueryParam("category"))
	return httpx.Success(c, http.StatusOK, map[string]interface{}{
		"data":    items,
		"stats":   stats,
		"message": "Vaccination records retrieved successfully",
	})
}

func (h *Handler) CreateVaccination(c echo.Context) error {
	var in VaccinationInput
	if err := c.Bind(&in); err != nil {
		return httpx.Validation("Invalid request body")
	}
	v, err := h.svc.CreateVaccination(c.Request().Context(), &in)
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, map[string]interface{}{
		"data":    v,
		"message": "Vaccination record created successfully",
	})
}

func (h *Handler) UpdateVaccination(c echo.Context) error {
	var fields map[string]interface{}
	if err := c.Bind(&fields); err != nil {
		return httpx.Validation("Invalid request body")
	}
	out, err := h.svc.UpdateVaccination(c.Request().Context(), fields)
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, map[string]interface{}{
		"data":    out,
		"message": "Vaccination record updated successfully",
	})
}

func (h *Handler) DeleteVaccination(c echo.Context) error {
	if err := h.svc.DeleteVaccination(c.Request().Context(), c.QueryParam("id")); err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, map[string]interface{}{
		"message": "Vaccination record deleted successfully",
	})
}

// -- Notifications --

func (h *Handler) ListNotifications(c echo.Context) error {
	items, stats := h.svc.Notifications(c.Request().Context(), c.QueryParam("type"))
	return httpx.Success(c, http.StatusOK, map[string]interface{}{
		"data":    items,
		"stats":   stats,
		"message": "Notifications retrieved successfully",
	})
}

func (h *Handler) UpdateNotification(c echo.Context) error {
	var in NotificationUpdate
	if err := c.Bind(&in); err != nil {
		return httpx.Validation("Invalid request body")
	}
	out, err := h.svc.MarkNotification(c.Request().Context(), &in)
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, map[string]interface{}{
		"data":    out,
		"message": "Notification status updated successfully",
	})
}

func (h *Handler) DeleteNotification(c echo.Context) error {
	if err := h.svc.DeleteNotification(c.Request().Context(), c.QueryParam("id")); err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, map[string]interface{}{
		"message": "Notification deleted successfully",
	})
}
