package handler

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/filegpt/filegpt/internal/filestore"
	"github.com/filegpt/filegpt/internal/pkg/errcode"
	"github.com/filegpt/filegpt/internal/pkg/response"
	"github.com/filegpt/filegpt/internal/service"
)

type FileHandler struct {
	files *service.FileService
	store filestore.Store
}

func NewFileHandler(files *service.FileService, store filestore.Store) *FileHandler {
	return &FileHandler{files: files, store: store}
}

type uploadResponse struct {
	Message   string `json:"message"`
	FileURL   string `json:"file_url"`
	IndexName string `json:"index_name"`
}

// Upload accepts either a multipart "file" part or a "drive_link" form field.
func (h *FileHandler) Upload(c *gin.Context) {
	if driveLink := strings.TrimSpace(c.PostForm("drive_link")); driveLink != "" {
		out, err := h.files.UploadFromDriveLink(c.Request.Context(), driveLink)
		if err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, uploadResponse{
			Message:   "File uploaded successfully and index created",
			FileURL:   out.FileURL,
			IndexName: out.IndexName,
		})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "file is required")
		return
	}
	opened, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "failed to open file")
		return
	}
	defer opened.Close()

	out, err := h.files.Upload(c.Request.Context(), service.UploadInput{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Reader:      opened,
		Size:        fileHeader.Size,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, uploadResponse{
		Message:   "File uploaded successfully and index created",
		FileURL:   out.FileURL,
		IndexName: out.IndexName,
	})
}

func (h *FileHandler) List(c *gin.Context) {
	files, err := h.files.List(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": files})
}

type updateRequest struct {
	Action  string `json:"action" binding:"required"`
	ID      string `json:"id" binding:"required"`
	NewName string `json:"new_name"`
}

// Update handles both rename and delete. Delete cascades to the vector
// index, the blob, and the record, in that order.
func (h *FileHandler) Update(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
		return
	}
	switch req.Action {
	case "edit":
		if strings.TrimSpace(req.NewName) == "" {
			response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "new name is required")
			return
		}
		if err := h.files.Rename(c.Request.Context(), req.ID, req.NewName); err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, gin.H{"message": "File name updated successfully."})
	case "delete":
		if err := h.files.Delete(c.Request.Context(), req.ID); err != nil {
			handleError(c, err)
			return
		}
		response.Success(c, gin.H{"message": "File deleted successfully."})
	default:
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid action")
	}
}

// Blob serves stored blobs when the local store is in use; s3 serves its own.
func (h *FileHandler) Blob(c *gin.Context) {
	if h.store.Type() != "local" {
		c.Status(http.StatusNotFound)
		return
	}
	key := c.Param("key")
	if key == "" || strings.Contains(key, "/") || strings.Contains(key, "\\") {
		c.Status(http.StatusBadRequest)
		return
	}
	file, err := h.store.Open(c.Request.Context(), key)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	defer file.Close()
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	_, _ = io.Copy(c.Writer, file)
}
