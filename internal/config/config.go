// Package config loads the application configuration: built-in defaults, then
// an optional YAML file, then a .env file, then environment variables.
// The resulting Config is built once at startup and not mutated afterwards.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Adapter type names.
const (
	EmbedderHuggingFace = "huggingface"
	EmbedderOllama      = "ollama"

	VectorStoreSQLite = "sqlite"
	VectorStoreMemory = "memory"
)

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSecs int `yaml:"read_timeout_secs"`
	// Streaming answers hold the connection open, so this is generous.
	WriteTimeoutSecs int `yaml:"write_timeout_secs"`
}

// LLMConfig configures the OpenAI-compatible chat completions endpoint.
type LLMConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// QuestionsConfig configures follow-up question generation.
type QuestionsConfig struct {
	TimeoutSecs int `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the embedding adapter.
type EmbedderConfig struct {
	Type      string `yaml:"type"`
	Model     string `yaml:"model"`
	Endpoint  string `yaml:"endpoint"`
	APIKey    string `yaml:"api_key"`
	OllamaURL string `yaml:"ollama_url"`
}

// VectorStoreConfig selects and configures the vector store.
type VectorStoreConfig struct {
	Type       string `yaml:"type"`
	Dir        string `yaml:"dir"`
	Collection string `yaml:"collection"`
}

// IngestConfig configures document ingestion.
type IngestConfig struct {
	DataDir      string `yaml:"data_dir"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	ParserURL    string `yaml:"parser_url"`
	Watch        bool   `yaml:"watch"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Config is the root application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	LLM         LLMConfig         `yaml:"llm"`
	Questions   QuestionsConfig   `yaml:"questions"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Log         LogConfig         `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 7860, ReadTimeoutSecs: 15, WriteTimeoutSecs: 300},
		LLM: LLMConfig{
			Endpoint:    "https://api.perplexity.ai/chat/completions",
			Model:       "sonar-pro",
			Temperature: 0,
			TimeoutSecs: 60,
		},
		Questions: QuestionsConfig{TimeoutSecs: 30},
		Embedder: EmbedderConfig{
			Type:      EmbedderHuggingFace,
			Model:     "sentence-transformers/all-MiniLM-L6-v2",
			OllamaURL: "http://localhost:11434",
		},
		VectorStore: VectorStoreConfig{
			Type:       VectorStoreSQLite,
			Dir:        "vector_db",
			Collection: "default_collection",
		},
		Ingest: IngestConfig{
			DataDir:      "data",
			ChunkSize:    1000,
			ChunkOverlap: 200,
			ParserURL:    "http://localhost:8081",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the configuration. A missing YAML file or .env file is not an
// error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides cfg from environment variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("PPLX_API_KEY", &cfg.LLM.APIKey)
	str("LLM_MODEL", &cfg.LLM.Model)
	str("LLM_ENDPOINT", &cfg.LLM.Endpoint)
	str("HF_API_KEY", &cfg.Embedder.APIKey)
	str("EMBEDDING_PROVIDER", &cfg.Embedder.Type)
	str("EMBEDDING_MODEL", &cfg.Embedder.Model)
	str("OLLAMA_URL", &cfg.Embedder.OllamaURL)
	str("CHROMA_DIR", &cfg.VectorStore.Dir) // legacy name, VECTOR_DIR wins
	str("VECTOR_DIR", &cfg.VectorStore.Dir)
	str("VECTOR_STORE", &cfg.VectorStore.Type)
	str("COLLECTION_NAME", &cfg.VectorStore.Collection)
	str("DATA_DIR", &cfg.Ingest.DataDir)
	str("PARSER_URL", &cfg.Ingest.ParserURL)
	str("LOG_LEVEL", &cfg.Log.Level)

	for key, dst := range map[string]*int{
		"CHUNK_SIZE":    &cfg.Ingest.ChunkSize,
		"CHUNK_OVERLAP": &cfg.Ingest.ChunkOverlap,
		"PORT":          &cfg.Server.Port,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the configuration for values no component can work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Ingest.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("ingest.chunk_size must be positive, got %d", c.Ingest.ChunkSize))
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		errs = append(errs, fmt.Errorf("ingest.chunk_overlap %d must be in [0, chunk_size)", c.Ingest.ChunkOverlap))
	}
	switch c.Embedder.Type {
	case EmbedderHuggingFace, EmbedderOllama:
	default:
		errs = append(errs, fmt.Errorf("unknown embedder type %q", c.Embedder.Type))
	}
	switch c.VectorStore.Type {
	case VectorStoreSQLite, VectorStoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown vector store type %q", c.VectorStore.Type))
	}
	if strings.TrimSpace(c.VectorStore.Collection) == "" {
		errs = append(errs, errors.New("vector_store.collection must not be empty"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address for the HTTP server.
func (c ServerConfig) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// ReadTimeout returns the server read timeout.
func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSecs) * time.Second
}

// WriteTimeout returns the server write timeout.
func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSecs) * time.Second
}

// Timeout returns the per-request LLM timeout.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Timeout returns the question generation timeout.
func (c QuestionsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}
