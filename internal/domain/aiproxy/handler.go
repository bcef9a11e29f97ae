package aiproxy

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ankandalui/med-ai-sub001/internal/platform/httpx"
)

// maxImageSize bounds images read for the vision pre-check.
const maxImageSize = 10 << 20

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, _ *echo.Group) {
	api.POST("/predict", h.Predict)
	api.GET("/predict", h.ClassifierHealth)
	api.POST("/symptom-predict", h.SymptomPredict)
	api.POST("/disease-verify", h.VerifyDisease)
	api.POST("/text-to-speech", h.TextToSpeech)
	api.POST("/image-check", h.CheckImage)
}

func (h *Handler) Predict(c echo.Context) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return httpx.Validation("No image provided")
	}
	f, err := fh.Open()
	if err != nil {
		return httpx.Validation("No image provided")
	}
	defer f.Close()

	out, err := h.svc.Predict(c.Request().Context(), fh.Filename, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) ClassifierHealth(c echo.Context) error {
	out, err := h.svc.ClassifierHealth(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) SymptomPredict(c echo.Context) error {
	var in SymptomInput
	if err := c.Bind(&in); err != nil {
		return httpx.Validation("Invalid request body")
	}
	out, err := h.svc.SymptomPredict(c.Request().Context(), &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) VerifyDisease(c echo.Context) error {
	var in VerifyInput
	if err := c.Bind(&in); err != nil {
		return httpx.Validation("Invalid request body")
	}
	out, err := h.svc.VerifyDisease(c.Request().Context(), &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) TextToSpeech(c echo.Context) error {
	var in SpeechInput
	if err := c.Bind(&in); err != nil {
		return httpx.Validation("Invalid request body")
	}
	out, err := h.svc.TextToSpeech(c.Request().Context(), &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) CheckImage(c echo.Context) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return httpx.Validation("No image uploaded")
	}
	f, err := fh.Open()
	if err != nil {
		return httpx.Validation("No image uploaded")
	}
	defer f.Close()

	image, err := io.ReadAll(io.LimitReader(f, maxImageSize))
	if err != nil {
		return httpx.Validation("Could not read image")
	}
	out, err := h.svc.CheckImage(c.Request().Context(), image, fh.Header.Get(echo.HeaderContentType))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}
