package assistant

import (
	"net/http"
	"time"

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
	api.POST("/voice-assistant", h.Respond)
}

func (h *Handler) Respond(c echo.Context) error {
	var q Query
	if err := c.Bind(&q); err != nil {
		return httpx.Validation("Please provide a valid query")
	}
	reply, err := h.svc.Respond(c.Request().Context(), &q)
	if err != nil {
		if httpx.IsValidation(err) {
			return err
		}
		fallback := h.svc.ErrorReply(q.Language)
		return (&httpx.Error{Kind: httpx.KindInternal, Status: http.StatusInternalServerError, Message: fallback.Response, Err: err}).
			With("data", fallback)
	}
	return httpx.Success(c, http.StatusOK, map[string]interface{}{
		"data":      reply,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
