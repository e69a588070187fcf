package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/filegpt/filegpt/internal/handler"
	"github.com/filegpt/filegpt/internal/middleware"
	"github.com/filegpt/filegpt/internal/model"
	apperr "github.com/filegpt/filegpt/internal/pkg/errors"
	"github.com/filegpt/filegpt/internal/service"
	"github.com/filegpt/filegpt/internal/vecindex"
)

type memRepo struct {
	mu    sync.Mutex
	byID  map[string]*model.File
	order []string
}

func (r *memRepo) Create(ctx context.Context, f *model.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[f.ID] = f
	r.order = append(r.order, f.ID)
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*model.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	clone := *f
	return &clone, nil
}

func (r *memRepo) ListByIDs(ctx context.Context, ids []string) ([]*model.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.File, 0, len(ids))
	for _, id := range ids {
		if f, ok := r.byID[id]; ok {
			clone := *f
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memRepo) List(ctx context.Context) ([]*model.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.File, 0, len(r.order))
	for _, id := range r.order {
		if f, ok := r.byID[id]; ok {
			clone := *f
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memRepo) ListUnprocessed(ctx context.Context, limit int) ([]*model.File, error) {
	all, _ := r.List(ctx)
	out := make([]*model.File, 0)
	for _, f := range all {
		if len(out) == limit {
			break
		}
		if !f.IsProcessed {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *memRepo) UpdateName(ctx context.Context, id, newName string, mtime int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	f.FileName = newName
	f.Mtime = mtime
	return nil
}

func (r *memRepo) MarkProcessed(ctx context.Context, id string, mtime int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	f.IsProcessed = true
	f.Mtime = mtime
	return nil
}

func (r *memRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

type memStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func (s *memStore) Type() string { return "local" }

func (s *memStore) Save(ctx context.Context, key string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	return nil
}

func (s *memStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

func (s *memStore) URL(key string) string { return "http://files.local/" + key }

type memIndex struct {
	mu      sync.Mutex
	dim     int
	vectors map[string][]vecindex.Vector
}

func (i *memIndex) Dimension() int { return i.dim }

func (i *memIndex) EnsureIndex(ctx context.Context, name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.vectors[name]; !ok {
		i.vectors[name] = nil
	}
	return nil
}

func (i *memIndex) Upsert(ctx context.Context, indexName string, vectors []vecindex.Vector) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.vectors[indexName] = append(i.vectors[indexName], vectors...)
	return nil
}

func (i *memIndex) Query(ctx context.Context, indexName string, vector []float32, topK int) ([]vecindex.Match, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	stored := i.vectors[indexName]
	matches := make([]vecindex.Match, 0, topK)
	for _, v := range stored {
		if len(matches) == topK {
			break
		}
		matches = append(matches, vecindex.Match{ID: v.ID, Score: 1, Metadata: v.Metadata})
	}
	return matches, nil
}

func (i *memIndex) DeleteIndex(ctx context.Context, name string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.vectors, name)
	return nil
}

type stubEmbedder struct{ dim int }

func (e stubEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return make([]float32, e.dim), nil
}

func (e stubEmbedder) ModelName() string { return "stub-embed" }

type stubGenerator struct{ answer string }

func (g stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.answer, nil
}

type testEnv struct {
	router http.Handler
	repo   *memRepo
	store  *memStore
	index  *memIndex
}

func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := &memRepo{byID: map[string]*model.File{}}
	store := &memStore{blobs: map[string][]byte{}}
	index := &memIndex{dim: 4, vectors: map[string][]vecindex.Vector{}}

	fileService := service.NewFileService(repo, store, index, nil, "")
	ingestService := service.NewIngestService(repo, store, stubEmbedder{dim: 4}, index, 9500)
	queryService := service.NewQueryService(repo, stubEmbedder{dim: 4}, stubGenerator{answer: "the answer"}, index, 5)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	handler.RegisterRoutes(engine.Group("/api/v1"), handler.RouterDeps{
		Files:  handler.NewFileHandler(fileService, store),
		Ingest: handler.NewIngestHandler(ingestService),
		Query:  handler.NewQueryHandler(queryService),
	})
	return &testEnv{router: engine, repo: repo, store: store, index: index}
}

type envelope struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

func doJSON(t *testing.T, router http.Handler, method, path string, payload interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func uploadFile(t *testing.T, router http.Handler, fileName, contentType, content string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/files/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}
