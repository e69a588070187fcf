package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/filegpt/filegpt/internal/pkg/errcode"
	"github.com/filegpt/filegpt/internal/pkg/response"
	"github.com/filegpt/filegpt/internal/service"
)

type IngestHandler struct {
	ingest *service.IngestService
}

func NewIngestHandler(ingest *service.IngestService) *IngestHandler {
	return &IngestHandler{ingest: ingest}
}

type processRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// Process ingests a batch of files. The call returns only after every id
// has reached a terminal state; per-id failures are reported in the results
// list and never abort the rest of the batch.
func (h *IngestHandler) Process(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "File IDs are required.")
		return
	}
	results := h.ingest.Process(c.Request.Context(), req.IDs)
	response.Success(c, gin.H{
		"message": "File processing completed",
		"results": results,
	})
}
