package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/filegpt/filegpt/internal/ai"
	"github.com/filegpt/filegpt/internal/pkg/errcode"
	apperr "github.com/filegpt/filegpt/internal/pkg/errors"
)

func TestHandleErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
		code   int
	}{
		{apperr.ErrInvalid, http.StatusBadRequest, errcode.ErrInvalid},
		{fmt.Errorf("%w: id-a", apperr.ErrNotFound), http.StatusNotFound, errcode.ErrNotFound},
		{apperr.ErrNoContext, http.StatusBadRequest, errcode.ErrNoContext},
		{apperr.ErrUnsupportedFormat, http.StatusBadRequest, errcode.ErrUnsupportedFormat},
		{apperr.ErrEmptyContent, http.StatusBadRequest, errcode.ErrEmptyContent},
		{apperr.ErrExtraction, http.StatusBadRequest, errcode.ErrExtractionFailed},
		{apperr.ErrAlreadyProcessed, http.StatusConflict, errcode.ErrAlreadyProcessed},
		{fmt.Errorf("%w: reports", apperr.ErrIndexNotFound), http.StatusNotFound, errcode.ErrIndexNotFound},
		{fmt.Errorf("%w: got 512, want 768", apperr.ErrDimensionMismatch), http.StatusInternalServerError, errcode.ErrDimensionMismatch},
		{ai.ErrUnavailable, http.StatusServiceUnavailable, errcode.ErrAIUnavailable},
		{apperr.ErrUpstream, http.StatusBadGateway, errcode.ErrUpstream},
		{errors.New("boom"), http.StatusInternalServerError, errcode.ErrInternal},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Request = httptest.NewRequest(http.MethodGet, "/files", nil)

		handleError(c, tc.err)

		require.Equal(t, tc.status, rec.Code, tc.err.Error())
		require.Contains(t, rec.Body.String(), fmt.Sprintf("%d", tc.code), tc.err.Error())
	}
}
