package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/filegpt/filegpt/internal/ai"
	"github.com/filegpt/filegpt/internal/pkg/errcode"
	apperr "github.com/filegpt/filegpt/internal/pkg/errors"
	"github.com/filegpt/filegpt/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID, _ := c.Get("request_id")
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.Any("request_id", requestID),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, apperr.ErrInvalid):
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		response.Error(c, http.StatusNotFound, errcode.ErrNotFound, err.Error())
	case errors.Is(err, apperr.ErrNoContext):
		response.Error(c, http.StatusBadRequest, errcode.ErrNoContext, apperr.ErrNoContext.Error())
	case errors.Is(err, apperr.ErrUnsupportedFormat):
		response.Error(c, http.StatusBadRequest, errcode.ErrUnsupportedFormat, err.Error())
	case errors.Is(err, apperr.ErrEmptyContent):
		response.Error(c, http.StatusBadRequest, errcode.ErrEmptyContent, err.Error())
	case errors.Is(err, apperr.ErrExtraction):
		response.Error(c, http.StatusBadRequest, errcode.ErrExtractionFailed, err.Error())
	case errors.Is(err, apperr.ErrAlreadyProcessed):
		response.Error(c, http.StatusConflict, errcode.ErrAlreadyProcessed, err.Error())
	case errors.Is(err, apperr.ErrIndexNotFound):
		response.Error(c, http.StatusNotFound, errcode.ErrIndexNotFound, err.Error())
	case errors.Is(err, apperr.ErrDimensionMismatch):
		response.Error(c, http.StatusInternalServerError, errcode.ErrDimensionMismatch, apperr.ErrDimensionMismatch.Error())
	case errors.Is(err, ai.ErrUnavailable):
		response.Error(c, http.StatusServiceUnavailable, errcode.ErrAIUnavailable, "ai not configured")
	case errors.Is(err, apperr.ErrUpstream):
		response.Error(c, http.StatusBadGateway, errcode.ErrUpstream, "upstream service error")
	default:
		response.Error(c, http.StatusInternalServerError, errcode.ErrInternal, "internal server error")
	}
}
