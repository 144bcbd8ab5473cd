// Package config provides configuration loading for evidenced.
//
// Configuration is loaded from a YAML file and overridden by environment
// variables. Anything security-relevant is validated here.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for configuration validation.
var (
	// ErrInvalidConfig indicates a configuration value failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds the complete evidenced configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	Auth        AuthConfig        `koanf:"auth"`
	Guard       GuardConfig       `koanf:"guard"`
	Retrieval   RetrievalConfig   `koanf:"retrieval"`
	Redaction   RedactionConfig   `koanf:"redaction"`
	Synthesizer SynthesizerConfig `koanf:"synthesizer"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// AuthConfig holds principal supplier configuration.
//
// The MVP validates HS256 bearer tokens with a shared secret. OIDC/JWKS
// rotation and audience enforcement are out of scope; the Principal contract
// is the stable boundary.
type AuthConfig struct {
	JWTSecret Secret `koanf:"jwt_secret"`
}

// GuardConfig holds injection guard configuration.
type GuardConfig struct {
	// MaxPromptLen is the guard's length boundary in runes (default 2000).
	// Evaluated before any pattern scan to bound cost.
	MaxPromptLen int `koanf:"max_prompt_len"`
}

// RetrievalConfig holds vector index and retrieval configuration.
type RetrievalConfig struct {
	// Backend selects the vector store implementation: "memory" or "chromem".
	Backend string `koanf:"backend"`

	// Path is the persistence directory for the chromem backend.
	// Empty means in-memory only.
	Path string `koanf:"path"`

	// TopK is the number of chunks retrieved per query.
	TopK int `koanf:"top_k"`

	// MaxPromptChars is the pipeline's prompt size gate in runes.
	// Distinct from guard.max_prompt_len; see pipeline GATE_PROMPT.
	MaxPromptChars int `koanf:"max_prompt_chars"`

	// AllowlistSources lists permitted provenance labels. Empty = open.
	AllowlistSources []string `koanf:"allowlist_sources"`

	// VectorSize is the embedding dimension.
	VectorSize int `koanf:"vector_size"`
}

// RedactionConfig holds output redaction configuration.
type RedactionConfig struct {
	// Detector selects the PII detector variant: "regex" (default) or "nlp".
	// No NLP engine ships yet; selecting "nlp" runs the regex engine and
	// logs a warning at startup.
	Detector string `koanf:"detector"`
}

// SynthesizerConfig holds answer synthesizer configuration.
type SynthesizerConfig struct {
	// Provider selects the synthesizer: "draft" (deterministic) or "openai".
	Provider string `koanf:"provider"`

	// Model is the completion model name (openai provider only).
	Model string `koanf:"model"`

	// BaseURL overrides the completion API endpoint (openai provider only).
	BaseURL string `koanf:"base_url"`

	// APIKey authenticates against the completion API (openai provider only).
	APIKey Secret `koanf:"api_key"`

	// Timeout bounds a single synthesize call.
	Timeout Duration `koanf:"timeout"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Guard.MaxPromptLen == 0 {
		c.Guard.MaxPromptLen = 2000
	}
	if c.Retrieval.Backend == "" {
		c.Retrieval.Backend = "memory"
	}
	if c.Retrieval.TopK == 0 {
		c.Retrieval.TopK = 5
	}
	if c.Retrieval.MaxPromptChars == 0 {
		c.Retrieval.MaxPromptChars = 8000
	}
	if c.Retrieval.VectorSize == 0 {
		c.Retrieval.VectorSize = 64
	}
	if c.Redaction.Detector == "" {
		c.Redaction.Detector = "regex"
	}
	if c.Synthesizer.Provider == "" {
		c.Synthesizer.Provider = "draft"
	}
	if c.Synthesizer.Timeout == 0 {
		c.Synthesizer.Timeout = Duration(30 * time.Second)
	}
}

// Validate checks configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port must be 1-65535, got %d", ErrInvalidConfig, c.Server.Port)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("%w: logging format must be 'json' or 'console', got %q", ErrInvalidConfig, c.Logging.Format)
	}
	if c.Guard.MaxPromptLen <= 0 {
		return fmt.Errorf("%w: guard max_prompt_len must be positive", ErrInvalidConfig)
	}
	switch c.Retrieval.Backend {
	case "memory", "chromem":
	default:
		return fmt.Errorf("%w: unknown retrieval backend %q", ErrInvalidConfig, c.Retrieval.Backend)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval top_k must be positive", ErrInvalidConfig)
	}
	if c.Retrieval.MaxPromptChars <= 0 {
		return fmt.Errorf("%w: retrieval max_prompt_chars must be positive", ErrInvalidConfig)
	}
	if c.Retrieval.VectorSize <= 0 {
		return fmt.Errorf("%w: retrieval vector_size must be positive", ErrInvalidConfig)
	}
	for _, s := range c.Retrieval.AllowlistSources {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%w: allowlist_sources entries cannot be blank", ErrInvalidConfig)
		}
	}
	switch c.Redaction.Detector {
	case "regex", "nlp":
	default:
		return fmt.Errorf("%w: unknown redaction detector %q", ErrInvalidConfig, c.Redaction.Detector)
	}
	switch c.Synthesizer.Provider {
	case "draft":
	case "openai":
		if !c.Synthesizer.APIKey.IsSet() {
			return fmt.Errorf("%w: synthesizer api_key is required for openai provider", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown synthesizer provider %q", ErrInvalidConfig, c.Synthesizer.Provider)
	}
	if c.Synthesizer.Timeout.Duration() <= 0 {
		return fmt.Errorf("%w: synthesizer timeout must be positive", ErrInvalidConfig)
	}
	return nil
}
