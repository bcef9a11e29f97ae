package httpx

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// OK writes {success:true, data}.
func OK(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// Success writes fields with success:true added.
func Success(c echo.Context, status int, fields map[string]interface{}) error {
	body := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["success"] = true
	return c.JSON(status, body)
}
