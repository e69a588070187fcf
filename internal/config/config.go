package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int              `json:"port"`
	LogConfig     logger.LogConfig `json:"log_config"`
	Database      DatabaseConfig   `json:"database"`
	FileStore     FileStoreConfig  `json:"file_store"`
	AI            AIConfig         `json:"ai"`
	Vector        VectorConfig     `json:"vector"`
	Pipeline      PipelineConfig   `json:"pipeline"`
	Jobs          JobsConfig       `json:"jobs"`
	CORSAllowlist []string         `json:"cors_allowlist"`
	DriveAPIKey   string           `json:"drive_api_key"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type AIConfig struct {
	Provider      string      `json:"provider"`
	Data          interface{} `json:"data"`
	GenerateModel string      `json:"generate_model"`
	EmbedModel    string      `json:"embed_model"`
	Timeout       int         `json:"timeout"`
}

type VectorConfig struct {
	Provider string      `json:"provider"`
	Data     interface{} `json:"data"`
}

type PipelineConfig struct {
	ChunkBytes     int `json:"chunk_bytes"`
	TopK           int `json:"top_k"`
	EmbedDim       int `json:"embed_dim"`
	EmbedCacheSize int `json:"embed_cache_size"`
	EmbedCacheTTL  int `json:"embed_cache_ttl_minutes"`
}

type JobsConfig struct {
	AutoIngest     bool   `json:"auto_ingest"`
	AutoIngestSpec string `json:"auto_ingest_spec"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.GenerateModel == "" {
		cfg.AI.GenerateModel = "gemini-2.0-flash"
	}
	if cfg.AI.EmbedModel == "" {
		cfg.AI.EmbedModel = "text-embedding-004"
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 30
	}
	if cfg.Vector.Provider == "" {
		return nil, fmt.Errorf("vector.provider is required")
	}
	applyPipelineDefaults(&cfg.Pipeline)
	if cfg.Jobs.AutoIngest && cfg.Jobs.AutoIngestSpec == "" {
		cfg.Jobs.AutoIngestSpec = "*/5 * * * *"
	}
	return &cfg, nil
}

func applyPipelineDefaults(p *PipelineConfig) {
	// Chunk size stays safely below the embedding API's 10000 byte input ceiling.
	if p.ChunkBytes == 0 {
		p.ChunkBytes = 9500
	}
	if p.TopK == 0 {
		p.TopK = 5
	}
	if p.EmbedDim == 0 {
		p.EmbedDim = 768
	}
	if p.EmbedCacheSize == 0 {
		p.EmbedCacheSize = 4096
	}
	if p.EmbedCacheTTL == 0 {
		p.EmbedCacheTTL = 60
	}
}
