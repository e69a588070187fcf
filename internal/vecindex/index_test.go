package vecindex_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/filegpt/filegpt/internal/config"
	"github.com/filegpt/filegpt/internal/vecindex"
)

func TestNewUnknownProvider(t *testing.T) {
	_, err := vecindex.New(config.VectorConfig{Provider: "faiss"}, 768)
	require.Error(t, err)
	require.Contains(t, err.Error(), "faiss")
}

func TestNewEmptyProvider(t *testing.T) {
	_, err := vecindex.New(config.VectorConfig{}, 768)
	require.Error(t, err)
}

func TestNewPineconeRequiresAPIKey(t *testing.T) {
	_, err := vecindex.New(config.VectorConfig{
		Provider: "pinecone",
		Data:     map[string]interface{}{},
	}, 768)
	require.Error(t, err)
}
