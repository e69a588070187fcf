package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/filegpt/filegpt/internal/ai"
	apperr "github.com/filegpt/filegpt/internal/pkg/errors"
	"github.com/filegpt/filegpt/internal/vecindex"
)

const (
	embedTaskQuery = "RETRIEVAL_QUERY"

	promptStart      = "Answer the question based on the context below:\n\n"
	promptEnd        = "\n\nQuestion: %s \n\nAnswer:"
	contextSeparator = "\n\n---\n\n"
)

type QueryService struct {
	files     FileRepository
	embedder  ai.IEmbedder
	generator ai.IGenerator
	index     vecindex.Manager
	topK      int
}

func NewQueryService(files FileRepository, embedder ai.IEmbedder, generator ai.IGenerator, index vecindex.Manager, topK int) *QueryService {
	return &QueryService{
		files:     files,
		embedder:  embedder,
		generator: generator,
		index:     index,
		topK:      topK,
	}
}

// Answer retrieves the most relevant chunks across the given files and asks
// the completion model with them as context. The query is embedded once and
// shared across per-file lookups; a failing file is skipped, and only an
// entirely empty context fails the request.
func (s *QueryService) Answer(ctx context.Context, query string, ids []string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" || len(ids) == 0 {
		return "", fmt.Errorf("%w: query and file ids are required", apperr.ErrInvalid)
	}
	logger := logutil.GetLogger(ctx).With(zap.String("query", query), zap.Int("file_count", len(ids)))

	files, err := s.files.ListByIDs(ctx, ids)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("%w: no valid file ids", apperr.ErrNotFound)
	}

	queryEmb, err := s.embedder.Embed(ctx, query, embedTaskQuery)
	if err != nil {
		logger.Error("failed to embed query", zap.Error(err))
		return "", err
	}

	var allContexts strings.Builder
	for _, f := range files {
		matches, err := s.index.Query(ctx, f.VectorIndex, queryEmb, s.topK)
		if err != nil {
			logger.Warn("index query failed, skipping file",
				zap.String("file_id", f.ID),
				zap.String("index", f.VectorIndex),
				zap.Error(err),
			)
			continue
		}
		if len(matches) == 0 {
			logger.Debug("no matches for file", zap.String("file_id", f.ID))
			continue
		}
		texts := make([]string, 0, len(matches))
		for _, match := range matches {
			texts = append(texts, match.Metadata.Text)
		}
		allContexts.WriteString(fmt.Sprintf("\n\n### Context from %s ###\n\n", f.FileName))
		allContexts.WriteString(strings.Join(texts, contextSeparator))
	}

	if allContexts.Len() == 0 {
		return "", apperr.ErrNoContext
	}

	prompt := promptStart + allContexts.String() + fmt.Sprintf(promptEnd, query)
	logger.Debug("prompt assembled", zap.Int("prompt_bytes", len(prompt)))

	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		logger.Error("completion failed", zap.Error(err))
		return "", err
	}
	return answer, nil
}
