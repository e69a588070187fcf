package vecindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	apperr "github.com/filegpt/filegpt/internal/pkg/errors"
)

const pgUndefinedTable = "42P01"

type pgvectorConfig struct {
	DSN    string `json:"dsn"`
	Schema string `json:"schema"`
}

// pgvectorManager keeps one table per index name inside a dedicated schema.
// It is the self-hosted alternative to the pinecone backend.
type pgvectorManager struct {
	db     *sql.DB
	schema string
	dim    int
}

func init() {
	Register("pgvector", createPgvectorManager)
}

func createPgvectorManager(args interface{}, dim int) (Manager, error) {
	cfg := &pgvectorConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("pgvector dsn is required")
	}
	if cfg.Schema == "" {
		cfg.Schema = "vecindex"
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &pgvectorManager{db: db, schema: cfg.Schema, dim: dim}, nil
}

func (m *pgvectorManager) Dimension() int {
	return m.dim
}

func (m *pgvectorManager) EnsureIndex(ctx context.Context, name string) error {
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pq.QuoteIdentifier(m.schema)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			text_content TEXT NOT NULL,
			chunk INT NOT NULL
		)`, m.table(name), m.dim),
	}
	for _, stmt := range stmts {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure index %s: %w", name, err)
		}
	}
	logutil.GetLogger(ctx).Debug("index ensured", zap.String("index", name))
	return nil
}

func (m *pgvectorManager) Upsert(ctx context.Context, indexName string, vectors []Vector) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt := fmt.Sprintf(`INSERT INTO %s (id, embedding, text_content, chunk)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			text_content = EXCLUDED.text_content,
			chunk = EXCLUDED.chunk`, m.table(indexName))
	for _, v := range vectors {
		if _, err := tx.ExecContext(ctx, stmt, v.ID, pgvector.NewVector(v.Values), v.Metadata.Text, v.Metadata.Chunk); err != nil {
			return fmt.Errorf("upsert into %s: %w", indexName, translatePgErr(err, indexName))
		}
	}
	return tx.Commit()
}

func (m *pgvectorManager) Query(ctx context.Context, indexName string, vector []float32, topK int) ([]Match, error) {
	stmt := fmt.Sprintf(`SELECT id, text_content, chunk, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`, m.table(indexName))
	rows, err := m.db.QueryContext(ctx, stmt, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, translatePgErr(err, indexName)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var match Match
		var score float64
		if err := rows.Scan(&match.ID, &match.Metadata.Text, &match.Metadata.Chunk, &score); err != nil {
			return nil, err
		}
		match.Score = float32(score)
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

func (m *pgvectorManager) DeleteIndex(ctx context.Context, name string) error {
	_, err := m.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", m.table(name)))
	if err != nil {
		return fmt.Errorf("delete index %s: %w", name, err)
	}
	return nil
}

func (m *pgvectorManager) table(name string) string {
	return pq.QuoteIdentifier(m.schema) + "." + pq.QuoteIdentifier(strings.ToLower(name))
}

func translatePgErr(err error, indexName string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgUndefinedTable {
		return fmt.Errorf("%w: %s", apperr.ErrIndexNotFound, indexName)
	}
	return err
}
