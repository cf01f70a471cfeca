package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/poiesic/sessionrag/ai"
	"github.com/poiesic/sessionrag/retrieval"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SESSIONRAG_"

// DatabaseConfig locates the BadgerDB directory.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Listen          string        `yaml:"listen"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RetrievalConfig tunes hybrid retrieval.
type RetrievalConfig struct {
	TopK         int     `yaml:"top_k"`
	VectorWeight float64 `yaml:"vector_weight"`
	BM25Weight   float64 `yaml:"bm25_weight"`
	PoolFactor   int     `yaml:"pool_factor"`
}

// AIConfig points at the OpenAI-compatible embedding and generation services.
type AIConfig struct {
	EmbeddingHost   string  `yaml:"embedding_host"`
	GenerationHost  string  `yaml:"generation_host"`
	EmbeddingModel  string  `yaml:"embedding_model"`
	GenerationModel string  `yaml:"generation_model"`
	APIToken        string  `yaml:"api_token"`
	Temperature     float64 `yaml:"temperature"`
}

// IngestionConfig sizes the batch ingestion worker pool.
type IngestionConfig struct {
	PoolSize  int `yaml:"pool_size"`
	BatchSize int `yaml:"batch_size"`
}

// CacheConfig controls the query embedding cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	AI        AIConfig        `yaml:"ai"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Cache     CacheConfig     `yaml:"cache"`
}

// Load reads a config from path and applies environment overrides.
// A missing file yields the defaults.
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}
	applyConfigDefaults(cfg)

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFile loads variables from a .env file into the process environment.
// Variables already set are not overwritten. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	aiDefaults := ai.DefaultConfig()
	return &AppConfig{
		Database: DatabaseConfig{Path: "./sessionrag_db"},
		Server:   ServerConfig{Listen: ":8000", ShutdownTimeout: 10 * time.Second},
		Retrieval: RetrievalConfig{
			TopK:         retrieval.DefaultTopK,
			VectorWeight: retrieval.DefaultWeights.Dense,
			BM25Weight:   retrieval.DefaultWeights.Sparse,
			PoolFactor:   retrieval.DefaultPoolFactor,
		},
		AI: AIConfig{
			EmbeddingHost:   aiDefaults.EmbeddingHost,
			GenerationHost:  aiDefaults.GenerationHost,
			EmbeddingModel:  aiDefaults.EmbeddingModel,
			GenerationModel: aiDefaults.GenerationModel,
			APIToken:        aiDefaults.APIToken,
			Temperature:     aiDefaults.Temperature,
		},
		Ingestion: IngestionConfig{PoolSize: 4, BatchSize: 16},
		Cache:     CacheConfig{Enabled: true, TTL: 30 * time.Minute},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	def := Default()
	if cfg.Database.Path == "" {
		cfg.Database.Path = def.Database.Path
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = def.Server.Listen
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
	if cfg.Retrieval.PoolFactor == 0 {
		cfg.Retrieval.PoolFactor = def.Retrieval.PoolFactor
	}
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = def.AI.EmbeddingModel
	}
	if cfg.AI.GenerationModel == "" {
		cfg.AI.GenerationModel = def.AI.GenerationModel
	}
	if cfg.AI.EmbeddingHost == "" {
		cfg.AI.EmbeddingHost = def.AI.EmbeddingHost
	}
	if cfg.AI.GenerationHost == "" {
		cfg.AI.GenerationHost = cfg.AI.EmbeddingHost
	}
	if cfg.Ingestion.PoolSize == 0 {
		cfg.Ingestion.PoolSize = def.Ingestion.PoolSize
	}
	if cfg.Ingestion.BatchSize == 0 {
		cfg.Ingestion.BatchSize = def.Ingestion.BatchSize
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = def.Cache.TTL
	}
}

// ApplyEnv overrides fields from SESSIONRAG_* variables found by lookup.
func (c *AppConfig) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"DB_PATH":          &c.Database.Path,
		"LISTEN":           &c.Server.Listen,
		"EMBEDDING_HOST":   &c.AI.EmbeddingHost,
		"GENERATION_HOST":  &c.AI.GenerationHost,
		"EMBEDDING_MODEL":  &c.AI.EmbeddingModel,
		"GENERATION_MODEL": &c.AI.GenerationModel,
		"API_TOKEN":        &c.AI.APIToken,
	}
	for name, field := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*field = v
		}
	}

	ints := map[string]*int{
		"TOP_K":       &c.Retrieval.TopK,
		"POOL_FACTOR": &c.Retrieval.PoolFactor,
		"POOL_SIZE":   &c.Ingestion.PoolSize,
		"BATCH_SIZE":  &c.Ingestion.BatchSize,
	}
	for name, field := range ints {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*field = n
		}
	}

	floats := map[string]*float64{
		"VECTOR_WEIGHT": &c.Retrieval.VectorWeight,
		"BM25_WEIGHT":   &c.Retrieval.BM25Weight,
		"TEMPERATURE":   &c.AI.Temperature,
	}
	for name, field := range floats {
		if v, ok := lookup(EnvPrefix + name); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*field = f
		}
	}

	if v, ok := lookup(EnvPrefix + "CACHE_ENABLED"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sCACHE_ENABLED: %w", EnvPrefix, err)
		}
		c.Cache.Enabled = b
	}
	if v, ok := lookup(EnvPrefix + "CACHE_TTL"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sCACHE_TTL: %w", EnvPrefix, err)
		}
		c.Cache.TTL = d
	}
	return nil
}

// Validate checks ranges the rest of the application relies on.
func (c *AppConfig) Validate() error {
	if c.Database.Path == "" {
		return errors.New("config: database.path is required")
	}
	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("config: retrieval.top_k must be at least 1, got %d", c.Retrieval.TopK)
	}
	if c.Retrieval.PoolFactor < 1 {
		return fmt.Errorf("config: retrieval.pool_factor must be at least 1, got %d", c.Retrieval.PoolFactor)
	}
	if err := c.Weights().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Ingestion.PoolSize < 1 || c.Ingestion.BatchSize < 1 {
		return errors.New("config: ingestion.pool_size and ingestion.batch_size must be at least 1")
	}
	return c.AIConfig().Validate()
}

// Weights returns the fusion weights.
func (c *AppConfig) Weights() retrieval.Weights {
	return retrieval.Weights{Dense: c.Retrieval.VectorWeight, Sparse: c.Retrieval.BM25Weight}
}

// AIConfig converts the ai section into a normalized ai.Config.
func (c *AppConfig) AIConfig() *ai.Config {
	cfg := ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithGenerationHost(c.AI.GenerationHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithGenerationModel(c.AI.GenerationModel),
		ai.WithAPIToken(c.AI.APIToken),
		ai.WithTemperature(c.AI.Temperature),
	)
	cfg.Normalize()
	return cfg
}
