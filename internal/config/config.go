package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"knowledge-hub/internal/models"
)

const (
	// Credential sources: server-managed keys come from config/env,
	// caller-supplied keys arrive with each request.
	CredentialServer = "server"
	CredentialCaller = "caller"

	StoreChromem  = "chromem"
	StorePostgres = "postgres"

	defaultChunkSize        = 1000
	defaultChunkOverlap     = 100
	defaultTopK             = 5
	defaultMaxDocumentChars = 50000
	defaultMaxUploadBytes   = 25 << 20
	defaultTimeoutSecs      = 60
)

type RAGConfig struct {
	ChunkSize        int    `yaml:"chunk_size"`
	ChunkOverlap     int    `yaml:"chunk_overlap"`
	TopK             int    `yaml:"top_k"`
	MaxDocumentChars int    `yaml:"max_document_chars"`
	MaxUploadBytes   int64  `yaml:"max_upload_bytes"`
	DedupChunks      bool   `yaml:"dedup_chunks"`
	CredentialSource string `yaml:"credential_source"`
	EncryptionKey    string `yaml:"encryption_key"`
}

type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
	Timeout  int    `yaml:"timeout_secs"`
}

type StoreConfig struct {
	Type       string `yaml:"type"`
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	InMemory   bool   `yaml:"in_memory"`
}

type DBConfig struct {
	URL   string `yaml:"url"`
	Key   string `yaml:"key"`
	Debug bool   `yaml:"debug"`
}

type Config struct {
	RAG      RAGConfig   `yaml:"rag"`
	LLM      LLMConfig   `yaml:"llm"`
	EmbedLLM LLMConfig   `yaml:"embed_llm"`
	Store    StoreConfig `yaml:"store"`
	Database DBConfig    `yaml:"database"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolveCredential picks the key for a model call according to the
// configured credential source. Under the caller policy the per-call
// key is required; under the server policy the configured key wins.
func (c *Config) ResolveCredential(callerKey string) (string, error) {
	switch c.RAG.CredentialSource {
	case CredentialCaller:
		if callerKey == "" {
			return "", fmt.Errorf("%w: no API key supplied with request", models.ErrAuthentication)
		}
		return callerKey, nil
	default:
		if c.LLM.Key == "" {
			return "", fmt.Errorf("%w: no API key configured", models.ErrAuthentication)
		}
		return c.LLM.Key, nil
	}
}

func ApplyDefaults(cfg *Config) {
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = defaultChunkSize
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = defaultChunkOverlap
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = defaultTopK
	}
	if cfg.RAG.MaxDocumentChars == 0 {
		cfg.RAG.MaxDocumentChars = defaultMaxDocumentChars
	}
	if cfg.RAG.MaxUploadBytes == 0 {
		cfg.RAG.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.RAG.CredentialSource == "" {
		cfg.RAG.CredentialSource = CredentialServer
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = defaultTimeoutSecs
	}
	if cfg.LLM.Key == "" {
		cfg.LLM.Key = os.Getenv("LLM_API_KEY")
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = StoreChromem
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "./chromemdb"
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = "documents"
	}
}

func validate(cfg *Config) error {
	if cfg.RAG.ChunkOverlap < 0 || cfg.RAG.ChunkOverlap >= cfg.RAG.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size): got %d/%d",
			cfg.RAG.ChunkOverlap, cfg.RAG.ChunkSize)
	}
	switch cfg.RAG.CredentialSource {
	case CredentialServer, CredentialCaller:
	default:
		return fmt.Errorf("unknown credential_source: %s", cfg.RAG.CredentialSource)
	}
	switch cfg.Store.Type {
	case StoreChromem, StorePostgres:
	default:
		return fmt.Errorf("unknown store type: %s", cfg.Store.Type)
	}
	return nil
}
