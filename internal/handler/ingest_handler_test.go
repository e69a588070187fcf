package handler_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/filegpt/filegpt/internal/model"
)

func TestProcessValidation(t *testing.T) {
	env := setupRouter(t)

	rec, body := doJSON(t, env.router, http.MethodPost, "/api/v1/files/process", map[string]interface{}{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "File IDs are required.", body.Message)

	rec, body = doJSON(t, env.router, http.MethodPost, "/api/v1/files/process", map[string]interface{}{
		"ids": []string{},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "File IDs are required.", body.Message)
}

func TestProcessBatch(t *testing.T) {
	env := setupRouter(t)
	require.NoError(t, env.store.Save(context.Background(), "pending.csv", strings.NewReader("name,amount\nwidget,3"), 0))
	require.NoError(t, env.repo.Create(context.Background(), &model.File{
		ID:          "id-pending",
		FileName:    "pending",
		FileURL:     "http://files.local/pending.csv",
		VectorIndex: "pending",
	}))
	processed := &model.File{
		ID:          "id-done",
		FileName:    "done",
		FileURL:     "http://files.local/done.csv",
		VectorIndex: "done",
		IsProcessed: true,
		Mtime:       time.Now().UnixMilli(),
	}
	require.NoError(t, env.repo.Create(context.Background(), processed))

	rec, body := doJSON(t, env.router, http.MethodPost, "/api/v1/files/process", map[string]interface{}{
		"ids": []string{"id-pending", "id-done", "id-missing"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "File processing completed", body.Data["message"])

	results, ok := body.Data["results"].([]interface{})
	require.True(t, ok)
	require.Len(t, results, 3)

	first := results[0].(map[string]interface{})
	require.Equal(t, "id-pending", first["file_id"])
	require.Equal(t, "processed", first["status"])

	second := results[1].(map[string]interface{})
	require.Equal(t, "error", second["status"])
	require.Contains(t, second["message"], "already processed")

	third := results[2].(map[string]interface{})
	require.Equal(t, "error", third["status"])
	require.Contains(t, third["message"], "not found")

	require.NotEmpty(t, env.index.vectors["pending"])
	got, err := env.repo.GetByID(context.Background(), "id-pending")
	require.NoError(t, err)
	require.True(t, got.IsProcessed)
}
