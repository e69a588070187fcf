package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/filegpt/filegpt/internal/pkg/errcode"
	"github.com/filegpt/filegpt/internal/pkg/response"
	"github.com/filegpt/filegpt/internal/service"
)

type QueryHandler struct {
	query *service.QueryService
}

func NewQueryHandler(query *service.QueryService) *QueryHandler {
	return &QueryHandler{query: query}
}

type queryRequest struct {
	Query string   `json:"query" binding:"required"`
	IDs   []string `json:"ids" binding:"required"`
}

func (h *QueryHandler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "Query and file IDs are required.")
		return
	}
	answer, err := h.query.Answer(c.Request.Context(), req.Query, req.IDs)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"response": answer})
}
