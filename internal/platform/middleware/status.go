package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ankandalui/med-ai-sub001/internal/platform/httpx"
)

// statusOf returns the HTTP status err will be rendered with.
func statusOf(err error) int {
	var appErr *httpx.Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}
