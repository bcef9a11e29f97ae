package documents

import (
	"net/http"
	"strconv"

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

func (h *Handler) RegisterRoutes(api *echo.Group, _ *echo.Group) {
	api.GET("/patient/documents", h.List)
	api.DELETE("/patient/documents", h.Delete)
	api.POST("/patient/save-medical-record", h.Save)
	api.POST("/patient/upload-to-lighthouse", h.Upload)
}

func (h *Handler) List(c echo.Context) error {
	f := Filter{
		Type:   c.QueryParam("type"),
		Search: c.QueryParam("search"),
	}
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			f.Limit = n
		}
	}
	docs, err := h.svc.List(c.Request().Context(), c.QueryParam("patientId"), f)
	if err != nil {
		return err
	}
	views := make([]*View, 0, len(docs))
	for _, d := range docs {
		views = append(views, d.View())
	}
	return httpx.Success(c, http.StatusOK, map[string]interface{}{
		"data":      views,
		"documents": views,
		"count":     len(views),
		"message":   "Documents retrieved successfully",
	})
}

func (h *Handler) Delete(c echo.Context) error {
	d, err := h.svc.Delete(c.Request().Context(), c.QueryParam("id"))
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, map[string]interface{}{
		"data":    d,
		"message": "Document deleted successfully",
	})
}

func (h *Handler) Save(c echo.Context) error {
	var in SaveInput
	if err := c.Bind(&in); err != nil {
		return httpx.Validation("Invalid request body")
	}
	ctx := c.Request().Context()
	d, err := h.svc.Save(ctx, &in, auth.UserIDFromContext(ctx))
	if err != nil {
		return err
	}
	return httpx.Success(c, http.StatusOK, map[string]interface{}{
		"recordId": d.ID,
		"message":  "Medical record saved successfully",
	})
}

func (h *Handler) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return httpx.Validation("No file provided")
	}
	f, err := fh.Open()
	if err != nil {
		return httpx.Validation("Could not read uploaded file")
	}
	defer f.Close()

	in := &UploadInput{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		PatientID:   c.FormValue("patientId"),
		Title:       c.FormValue("title"),
		Type:        c.FormValue("type"),
		Description: c.FormValue("description"),
	}
	res, err := h.svc.Upload(c.Request().Context(), in, f)
	if err != nil {
		return err
	}
	fields := map[string]interface{}{
		"cid":     res.CID,
		"ipfsUrl": res.IPFSURL,
		"name":    res.Name,
		"size":    res.Size,
		"message": "File uploaded successfully",
	}
	if res.DocumentID != nil {
		fields["documentId"] = res.DocumentID
	}
	return httpx.Success(c, http.StatusOK, fields)
}
