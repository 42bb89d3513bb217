package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/yourusername/marketplace-api/internal/storage"
)

// UploadAPI stores uploaded images.
type UploadAPI interface {
	UploadImage(ctx context.Context, filename, contentType string, size int64, body io.Reader) (*storage.UploadResult, error)
	MaxBytes() int64
}

// UploadHandler принимает multipart-загрузки изображений
type UploadHandler struct {
	uploadService UploadAPI
}

func NewUploadHandler(uploadService UploadAPI) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// UploadImage принимает файл из поля "image"
func (h *UploadHandler) UploadImage(c *gin.Context) {
	// запас на multipart-обвязку
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploadService.MaxBytes()+1<<20)

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image uploaded", "error_type": errorTypeValidation})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.Ctx(c.Request.Context()).Error().Err(err).Msg("[UploadHandler] Failed to open uploaded file")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file", "error_type": errorTypeValidation})
		return
	}
	defer file.Close()

	result, err := h.uploadService.UploadImage(
		c.Request.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		file,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Image uploaded successfully",
		"imageUrl": result.URL,
		"url":      result.URL,
	})
}
