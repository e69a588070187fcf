package vecindex

import (
	"context"
	"fmt"
	"strings"

	"github.com/pinecone-io/go-pinecone/v2/pinecone"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	apperr "github.com/filegpt/filegpt/internal/pkg/errors"
)

type pineconeConfig struct {
	APIKey string `json:"api_key"`
	Cloud  string `json:"cloud"`
	Region string `json:"region"`
}

type pineconeManager struct {
	client *pinecone.Client
	cloud  string
	region string
	dim    int
}

func init() {
	Register("pinecone", createPineconeManager)
}

func createPineconeManager(args interface{}, dim int) (Manager, error) {
	cfg := &pineconeConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("pinecone api_key is required")
	}
	if cfg.Cloud == "" {
		cfg.Cloud = "aws"
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: strings.TrimSpace(cfg.APIKey)})
	if err != nil {
		return nil, fmt.Errorf("init pinecone client: %w", err)
	}
	return &pineconeManager{
		client: client,
		cloud:  cfg.Cloud,
		region: cfg.Region,
		dim:    dim,
	}, nil
}

func (m *pineconeManager) Dimension() int {
	return m.dim
}

// EnsureIndex is a list-then-create: a no-op when the index already exists.
func (m *pineconeManager) EnsureIndex(ctx context.Context, name string) error {
	indexes, err := m.client.ListIndexes(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrIndexListing, err)
	}
	for _, idx := range indexes {
		if idx != nil && idx.Name == name {
			logutil.GetLogger(ctx).Debug("index already exists", zap.String("index", name))
			return nil
		}
	}
	_, err = m.client.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:               name,
		Dimension:          int32(m.dim),
		Metric:             pinecone.Cosine,
		Cloud:              pinecone.Cloud(m.cloud),
		Region:             m.region,
		DeletionProtection: pinecone.DeletionProtectionDisabled,
	})
	if err != nil {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	logutil.GetLogger(ctx).Info("index created", zap.String("index", name))
	return nil
}

func (m *pineconeManager) Upsert(ctx context.Context, indexName string, vectors []Vector) error {
	conn, err := m.connect(ctx, indexName)
	if err != nil {
		return err
	}
	defer conn.Close()

	records := make([]*pinecone.Vector, 0, len(vectors))
	for _, v := range vectors {
		values := v.Values
		// structpb rejects invalid UTF-8 outright, so scrub the text here
		// rather than fail the whole batch.
		metadata, err := structpb.NewStruct(map[string]interface{}{
			"text":  strings.ToValidUTF8(v.Metadata.Text, "�"),
			"chunk": v.Metadata.Chunk,
		})
		if err != nil {
			return fmt.Errorf("build vector metadata: %w", err)
		}
		records = append(records, &pinecone.Vector{
			Id:       v.ID,
			Values:   values,
			Metadata: metadata,
		})
	}
	if _, err := conn.UpsertVectors(ctx, records); err != nil {
		return fmt.Errorf("upsert %d vectors into %s: %w", len(records), indexName, err)
	}
	return nil
}

func (m *pineconeManager) Query(ctx context.Context, indexName string, vector []float32, topK int) ([]Match, error) {
	conn, err := m.connect(ctx, indexName)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	res, err := conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK),
		IncludeValues:   false,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("query index %s: %w", indexName, err)
	}
	matches := make([]Match, 0, len(res.Matches))
	for _, item := range res.Matches {
		if item == nil || item.Vector == nil {
			continue
		}
		matches = append(matches, Match{
			ID:       item.Vector.Id,
			Score:    item.Score,
			Metadata: metadataFromStruct(item.Vector.Metadata),
		})
	}
	return matches, nil
}

func (m *pineconeManager) DeleteIndex(ctx context.Context, name string) error {
	if err := m.client.DeleteIndex(ctx, name); err != nil {
		return fmt.Errorf("delete index %s: %w", name, err)
	}
	return nil
}

// connect resolves the index host by name before opening a data-plane
// connection; a name without a matching index is ErrIndexNotFound.
func (m *pineconeManager) connect(ctx context.Context, indexName string) (*pinecone.IndexConnection, error) {
	indexes, err := m.client.ListIndexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrIndexListing, err)
	}
	var host string
	for _, idx := range indexes {
		if idx != nil && idx.Name == indexName {
			host = idx.Host
			break
		}
	}
	if host == "" {
		return nil, fmt.Errorf("%w: %s", apperr.ErrIndexNotFound, indexName)
	}
	conn, err := m.client.Index(pinecone.NewIndexConnParams{Host: host})
	if err != nil {
		return nil, fmt.Errorf("connect to index %s: %w", indexName, err)
	}
	return conn, nil
}

func metadataFromStruct(s *pinecone.Metadata) Metadata {
	if s == nil {
		return Metadata{}
	}
	md := Metadata{}
	fields := s.GetFields()
	if v, ok := fields["text"]; ok {
		md.Text = v.GetStringValue()
	}
	if v, ok := fields["chunk"]; ok {
		md.Chunk = int(v.GetNumberValue())
	}
	return md
}
