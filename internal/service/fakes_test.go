package service_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/filegpt/filegpt/internal/model"
	apperr "github.com/filegpt/filegpt/internal/pkg/errors"
	"github.com/filegpt/filegpt/internal/vecindex"
)

type fakeRepo struct {
	mu      sync.Mutex
	byID    map[string]*model.File
	order   []string
	created []*model.File
	markErr error
	deleted []string
}

func newFakeRepo(files ...*model.File) *fakeRepo {
	r := &fakeRepo{byID: map[string]*model.File{}}
	for _, f := range files {
		r.byID[f.ID] = f
		r.order = append(r.order, f.ID)
	}
	return r
}

func (r *fakeRepo) Create(ctx context.Context, f *model.File) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[f.ID] = f
	r.order = append(r.order, f.ID)
	r.created = append(r.created, f)
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id string) (*model.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.byID[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	clone := *f
	return &clone, nil
}

func (r *fakeRepo) ListByIDs(ctx context.Context, ids []string) ([]*model.File, error) {
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

func (r *fakeRepo) List(ctx context.Context) ([]*model.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.File, 0, len(r.order))
	for _, id := range r.order {
		clone := *r.byID[id]
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeRepo) ListUnprocessed(ctx context.Context, limit int) ([]*model.File, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.File, 0)
	for _, id := range r.order {
		if len(out) == limit {
			break
		}
		if f := r.byID[id]; !f.IsProcessed {
			clone := *f
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateName(ctx context.Context, id, newName string, mtime int64) error {
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

func (r *fakeRepo) MarkProcessed(ctx context.Context, id string, mtime int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.markErr != nil {
		return r.markErr
	}
	f, ok := r.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	f.IsProcessed = true
	f.Mtime = mtime
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(r.byID, id)
	r.deleted = append(r.deleted, id)
	return nil
}

type fakeStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{blobs: map[string][]byte{}}
}

func (s *fakeStore) Type() string { return "fake" }

func (s *fakeStore) Save(ctx context.Context, key string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	return nil
}

func (s *fakeStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *fakeStore) URL(key string) string {
	return "http://files.local/" + key
}

type fakeEmbedder struct {
	dim   int
	err   error
	calls int
	tasks []string
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	e.calls++
	e.tasks = append(e.tasks, taskType)
	if e.err != nil {
		return nil, e.err
	}
	values := make([]float32, e.dim)
	for i := range values {
		values[i] = float32(len(text) % (i + 2))
	}
	return values, nil
}

func (e *fakeEmbedder) ModelName() string { return "fake-embed" }

type fakeIndex struct {
	dim      int
	upserts  map[string][]vecindex.Vector
	matches  map[string][]vecindex.Match
	queryErr map[string]error
	ensured  []string
	deleted  []string
}

func newFakeIndex(dim int) *fakeIndex {
	return &fakeIndex{
		dim:      dim,
		upserts:  map[string][]vecindex.Vector{},
		matches:  map[string][]vecindex.Match{},
		queryErr: map[string]error{},
	}
}

func (i *fakeIndex) Dimension() int { return i.dim }

func (i *fakeIndex) EnsureIndex(ctx context.Context, name string) error {
	i.ensured = append(i.ensured, name)
	return nil
}

func (i *fakeIndex) Upsert(ctx context.Context, indexName string, vectors []vecindex.Vector) error {
	i.upserts[indexName] = append(i.upserts[indexName], vectors...)
	return nil
}

func (i *fakeIndex) Query(ctx context.Context, indexName string, vector []float32, topK int) ([]vecindex.Match, error) {
	if err := i.queryErr[indexName]; err != nil {
		return nil, err
	}
	matches := i.matches[indexName]
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (i *fakeIndex) DeleteIndex(ctx context.Context, name string) error {
	i.deleted = append(i.deleted, name)
	return nil
}

type fakeGenerator struct {
	answer  string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.answer, nil
}
