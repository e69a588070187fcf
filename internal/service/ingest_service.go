package service

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/filegpt/filegpt/internal/ai"
	"github.com/filegpt/filegpt/internal/chunk"
	"github.com/filegpt/filegpt/internal/extract"
	"github.com/filegpt/filegpt/internal/filestore"
	"github.com/filegpt/filegpt/internal/model"
	apperr "github.com/filegpt/filegpt/internal/pkg/errors"
	"github.com/filegpt/filegpt/internal/vecindex"
)

const (
	IngestStatusProcessed = "processed"
	IngestStatusError     = "error"

	embedTaskDocument = "RETRIEVAL_DOCUMENT"
)

type IngestResult struct {
	FileID  string `json:"file_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ingestState names each step of the per-document pipeline. Failed is
// terminal and carries the reason via the returned error.
type ingestState string

const (
	statePending    ingestState = "pending"
	stateExtracting ingestState = "extracting"
	stateChunking   ingestState = "chunking"
	stateEmbedding  ingestState = "embedding"
	stateUpserting  ingestState = "upserting"
	stateProcessed  ingestState = "processed"
)

type IngestService struct {
	files      FileRepository
	store      filestore.Store
	embedder   ai.IEmbedder
	index      vecindex.Manager
	chunkBytes int
}

func NewIngestService(files FileRepository, store filestore.Store, embedder ai.IEmbedder, index vecindex.Manager, chunkBytes int) *IngestService {
	return &IngestService{
		files:      files,
		store:      store,
		embedder:   embedder,
		index:      index,
		chunkBytes: chunkBytes,
	}
}

// Process runs the ingestion pipeline for each id in order. A failing
// document never aborts its siblings; the result slice matches the input
// order and is returned only once every id has reached a terminal state.
func (s *IngestService) Process(ctx context.Context, ids []string) []IngestResult {
	results := make([]IngestResult, 0, len(ids))
	for _, id := range ids {
		if err := s.processOne(ctx, id); err != nil {
			logutil.GetLogger(ctx).Error("file processing failed", zap.String("file_id", id), zap.Error(err))
			results = append(results, IngestResult{FileID: id, Status: IngestStatusError, Message: err.Error()})
			continue
		}
		results = append(results, IngestResult{FileID: id, Status: IngestStatusProcessed})
	}
	return results
}

func (s *IngestService) processOne(ctx context.Context, id string) error {
	logger := logutil.GetLogger(ctx).With(zap.String("file_id", id))
	state := statePending

	f, err := s.files.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if f.IsProcessed {
		return apperr.ErrAlreadyProcessed
	}

	advance := func(next ingestState) {
		state = next
		logger.Debug("ingest state", zap.String("state", string(state)))
	}

	advance(stateExtracting)
	text, err := s.extractContent(ctx, f)
	if err != nil {
		return err
	}
	logger.Info("content extracted", zap.String("file_name", f.FileName), zap.Int("bytes", len(text)))

	advance(stateChunking)
	chunks := chunk.Split(text, s.chunkBytes)

	advance(stateEmbedding)
	vectors := make([]vecindex.Vector, 0, len(chunks))
	for i, segment := range chunks {
		values, err := s.embedder.Embed(ctx, segment, embedTaskDocument)
		if err != nil {
			return err
		}
		if len(values) != s.index.Dimension() {
			return fmt.Errorf("%w: got %d, index wants %d", apperr.ErrDimensionMismatch, len(values), s.index.Dimension())
		}
		vectors = append(vectors, vecindex.Vector{
			ID:       fmt.Sprintf("%s_chunk_%d", id, i),
			Values:   values,
			Metadata: vecindex.Metadata{Text: segment, Chunk: i},
		})
	}

	advance(stateUpserting)
	if err := s.index.EnsureIndex(ctx, f.VectorIndex); err != nil {
		return err
	}
	if err := s.index.Upsert(ctx, f.VectorIndex, vectors); err != nil {
		return err
	}

	if err := s.files.MarkProcessed(ctx, id, time.Now().UnixMilli()); err != nil {
		return err
	}
	advance(stateProcessed)
	logger.Info("file processed", zap.String("index", f.VectorIndex), zap.Int("chunks", len(vectors)))
	return nil
}

func (s *IngestService) extractContent(ctx context.Context, f *model.File) (string, error) {
	key := storageKey(f.FileURL)
	contentType := extract.TypeForName(key)
	if contentType == "" {
		return "", fmt.Errorf("%w: %s", apperr.ErrUnsupportedFormat, path.Ext(key))
	}
	blob, err := s.store.Open(ctx, key)
	if err != nil {
		return "", fmt.Errorf("fetch file data: %w", err)
	}
	defer blob.Close()
	return extract.Text(ctx, blob, contentType)
}

// storageKey recovers the blob key from the stored file URL.
func storageKey(fileURL string) string {
	if u, err := url.Parse(fileURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(fileURL)
}
