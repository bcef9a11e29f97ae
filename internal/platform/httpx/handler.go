package httpx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrorHandler returns an echo.HTTPErrorHandler that renders every error as
// {success:false, error, details?, conflictField?}. Underlying causes are
// attached as details only when exposeDetails is set.
func ErrorHandler(logger zerolog.Logger, exposeDetails bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := render(err, exposeDetails)
		if status >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Int("status", status).
				Msg("request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error().Err(err).Msg("write error response")
		}
	}
}

func render(err error, exposeDetails bool) (int, map[string]interface{}) {
	body := map[string]interface{}{"success": false}

	var appErr *Error
	if errors.As(err, &appErr) {
		body["error"] = appErr.Message
		if appErr.Field != "" {
			body["conflictField"] = appErr.Field
		}
		for k, v := range appErr.Extra {
			body[k] = v
		}
		if appErr.Err != nil && (exposeDetails || appErr.Kind == KindUpstream) {
			body["details"] = appErr.Err.Error()
		}
		return appErr.Status, body
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := he.Message
		if m, ok := msg.(string); ok {
			body["error"] = m
		} else {
			body["error"] = fmt.Sprint(msg)
		}
		return he.Code, body
	}

	body["error"] = "Internal server error"
	if exposeDetails {
		body["details"] = err.Error()
	}
	return http.StatusInternalServerError, body
}
