package rest

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dfryer1193/apodcache/api"
	"github.com/dfryer1193/apodcache/apod/domain"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

type ImageHandler struct {
	library ImageLibrary
}

func NewImageHandler(library ImageLibrary) *ImageHandler {
	return &ImageHandler{library: library}
}

func (h *ImageHandler) ListImages(c *gin.Context) {
	records, err := h.library.ListSaved(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	images := make([]api.Image, 0, len(records))
	for _, rec := range records {
		images = append(images, toAPIImage(rec))
	}
	c.JSON(http.StatusOK, images)
}

func (h *ImageHandler) GetImage(c *gin.Context) {
	rec, err := h.library.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAPIImage(rec))
}

// GetImageFile serves the cached bytes with a sniffed content type
func (h *ImageHandler) GetImageFile(c *gin.Context) {
	rec, data, err := h.library.ReadFile(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	contentType := "application/octet-stream"
	if len(data) > 0 {
		contentType = mimetype.Detect(data).String()
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", rec.FileRef))
	c.Data(http.StatusOK, contentType, data)
}

func (h *ImageHandler) DateExists(c *gin.Context) {
	date, err := domain.ParseDateKey(c.Query("date"))
	if err != nil {
		writeError(c, err)
		return
	}

	exists, err := h.library.HasDate(c.Request.Context(), date)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, api.DateExists{Date: date.String(), Exists: exists})
}

func (h *ImageHandler) RenameImage(c *gin.Context) {
	req := &api.RenameRequest{}
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, err.Error())
		return
	}

	rec, err := h.library.Rename(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAPIImage(rec))
}

// DeleteImage removes the record and returns it so the client can restore it
func (h *ImageHandler) DeleteImage(c *gin.Context) {
	rec, err := h.library.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toAPIImage(rec))
}

// RestoreImage saves a previously deleted image again under its original ID
func (h *ImageHandler) RestoreImage(c *gin.Context) {
	req := &api.Image{}
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if strings.TrimSpace(req.ID) == "" || strings.TrimSpace(req.Title) == "" {
		badRequest(c, "id and title are required")
		return
	}

	rec, err := fromAPIImage(req)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := h.library.Restore(c.Request.Context(), rec); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toAPIImage(rec))
}

func toAPIImage(rec *domain.ImageRecord) api.Image {
	return api.Image{
		ID:           rec.ID,
		Name:         rec.Name,
		DisplayName:  rec.DisplayName(),
		Title:        rec.Title,
		CatalogDate:  rec.CatalogDate.String(),
		DownloadedAt: rec.DownloadedAt.String(),
		FileRef:      rec.FileRef,
	}
}

func fromAPIImage(img *api.Image) (*domain.ImageRecord, error) {
	catalogDate, err := domain.ParseDateKey(img.CatalogDate)
	if err != nil {
		return nil, err
	}
	downloadedAt, err := domain.ParseDateKey(img.DownloadedAt)
	if err != nil {
		return nil, err
	}

	rec, err := domain.NewImageRecord(img.Title, downloadedAt, catalogDate, img.FileRef)
	if err != nil {
		return nil, err
	}
	rec.ID = img.ID
	rec.Name = img.Name
	return rec, nil
}
