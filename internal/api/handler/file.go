package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/ossadapter/internal/api/middleware"
	"github.com/timmy/ossadapter/internal/logger"
	"github.com/timmy/ossadapter/internal/service"
	"github.com/timmy/ossadapter/pkg/ossadapter"
)

// FileHandler handles file upload endpoints.
type FileHandler struct {
	fileService *service.FileService
}

// NewFileHandler creates a new file handler.
// Parameters:
//   - fileService: file service instance.
//
// Returns:
//   - *FileHandler: initialized handler.
func NewFileHandler(fileService *service.FileService) *FileHandler {
	return &FileHandler{
		fileService: fileService,
	}
}

// RemoteUploadRequest is the body of POST /api/v1/files/remote
type RemoteUploadRequest struct {
	URL string `json:"url" binding:"required"`
}

// Upload handles POST /api/v1/files (multipart field "file").
func (h *FileHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Multipart field 'file' is required",
		})
		return
	}

	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read upload: " + err.Error(),
		})
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	rec, err := h.fileService.Upload(c.Request.Context(), service.UploadRequest{
		Body:     f,
		Filename: header.Filename,
		MimeType: mimeType,
		Encoding: header.Header.Get("Content-Transfer-Encoding"),
	})
	if err != nil {
		h.fail(c, "Failed to upload file", err)
		return
	}

	c.JSON(http.StatusCreated, rec)
}

// UploadRemote handles POST /api/v1/files/remote.
func (h *FileHandler) UploadRemote(c *gin.Context) {
	var req RemoteUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	rec, err := h.fileService.UploadFromURL(c.Request.Context(), req.URL)
	if err != nil {
		h.fail(c, "Failed to upload remote file", err)
		return
	}

	c.JSON(http.StatusCreated, rec)
}

// List handles GET /api/v1/files.
func (h *FileHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	result, err := h.fileService.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.fail(c, "Failed to list files", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Get handles GET /api/v1/files/:id.
func (h *FileHandler) Get(c *gin.Context) {
	rec, err := h.fileService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to get file", err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

// Content handles GET /api/v1/files/:id/content by streaming the object back.
func (h *FileHandler) Content(c *gin.Context) {
	rec, body, err := h.fileService.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "Failed to open file", err)
		return
	}
	defer body.Close()

	contentType := rec.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	c.Header("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": rec.OriginalFilename}))
	c.Header("Content-Type", contentType)
	if rec.Size > 0 {
		c.Header("Content-Length", strconv.FormatInt(rec.Size, 10))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		middleware.GetLogger(c).WithError(err).Warn("Failed to stream file content")
	}
}

// Delete handles DELETE /api/v1/files/:id.
func (h *FileHandler) Delete(c *gin.Context) {
	if err := h.fileService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "Failed to delete file", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// fail maps service errors to status codes and writes the error body
func (h *FileHandler) fail(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrFileNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrInvalidURL), errors.Is(err, ossadapter.ErrInvalidArgument):
		status = http.StatusBadRequest
	}

	_ = c.Error(err)
	body := gin.H{
		"error": fmt.Sprintf("%s: %v", message, err),
	}
	if status == http.StatusInternalServerError {
		ctx := c.Request.Context()
		logger.CtxError(ctx, "%s: %v", message, err)
		body["request_id"] = logger.GetRequestID(ctx)
	}
	c.JSON(status, body)
}
