// Package config handles configuration loading and validation for the
// indexing engine.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete configuration.
type Config struct {
	Embedding   EmbeddingConfig   `mapstructure:"embedding" yaml:"embedding"`
	Chunking    ChunkingConfig    `mapstructure:"chunking" yaml:"chunking"`
	VectorStore VectorStoreConfig `mapstructure:"vectorstore" yaml:"vectorstore"`
	Index       IndexConfig       `mapstructure:"index" yaml:"index"`
	Limits      LimitsConfig      `mapstructure:"limits" yaml:"limits"`
	Temporal    TemporalConfig    `mapstructure:"temporal" yaml:"temporal"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
}

// EmbeddingConfig contains embedding provider configuration.
type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider" yaml:"provider"` // openai
	Model     string `mapstructure:"model" yaml:"model"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`
	BatchSize int    `mapstructure:"batch_size" yaml:"batch_size"`
}

// ChunkingConfig contains chunking strategy configuration.
type ChunkingConfig struct {
	Strategy     string `mapstructure:"strategy" yaml:"strategy"` // simple
	MaxChunkSize int    `mapstructure:"max_chunk_size" yaml:"max_chunk_size"`
	Overlap      int    `mapstructure:"overlap" yaml:"overlap"`
}

// VectorStoreConfig contains vector store configuration.
type VectorStoreConfig struct {
	Provider string `mapstructure:"provider" yaml:"provider"` // sqlitevec
	Path     string `mapstructure:"path" yaml:"path"`         // defaults to <root>/.code-indexer/index
}

// IndexConfig contains file-selection configuration for live indexing.
type IndexConfig struct {
	Include      []string `mapstructure:"include" yaml:"include"`
	Exclude      []string `mapstructure:"exclude" yaml:"exclude"`
	UseGitIgnore bool     `mapstructure:"use_gitignore" yaml:"use_gitignore"`
}

// LimitsConfig contains resource limits governing chunking and batching.
type LimitsConfig struct {
	MaxFileSize   string        `mapstructure:"max_file_size" yaml:"max_file_size"`
	MaxFiles      int           `mapstructure:"max_files" yaml:"max_files"`
	TokenLimit    int           `mapstructure:"token_limit" yaml:"token_limit"`       // batch planner default 120000
	SafetyFraction float64      `mapstructure:"safety_fraction" yaml:"safety_fraction"` // 0.9
	ItemCap       int           `mapstructure:"item_cap" yaml:"item_cap"`             // 1000
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Workers       int           `mapstructure:"workers" yaml:"workers"` // 0 = runtime.NumCPU()
}

// TemporalConfig mirrors types.GitIndexConfig for the temporal indexer.
type TemporalConfig struct {
	TieredSampling      bool    `mapstructure:"tiered_sampling" yaml:"tiered_sampling"`
	FullHistoryDays     int     `mapstructure:"full_history_days" yaml:"full_history_days"`
	SampledHistoryDays  int     `mapstructure:"sampled_history_days" yaml:"sampled_history_days"`
	SampleRate          float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
	OnlyTags            bool    `mapstructure:"only_tags" yaml:"only_tags"`
	EmbedCommitMessages bool    `mapstructure:"embed_commit_messages" yaml:"embed_commit_messages"`
	EmbedDiffs          bool    `mapstructure:"embed_diffs" yaml:"embed_diffs"`
	MinDiffLines        int     `mapstructure:"min_diff_lines" yaml:"min_diff_lines"`
	MaxDiffLines        int     `mapstructure:"max_diff_lines" yaml:"max_diff_lines"`
	MaxCommits          int     `mapstructure:"max_commits" yaml:"max_commits"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text, json
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			BatchSize: 100,
		},
		Chunking: ChunkingConfig{
			Strategy:     "simple",
			MaxChunkSize: 2000,
			Overlap:      200,
		},
		VectorStore: VectorStoreConfig{
			Provider: "sqlitevec",
		},
		Index: IndexConfig{
			Include: []string{
				"**/*.go", "**/*.py", "**/*.js", "**/*.mjs", "**/*.cjs", "**/*.ts",
				"**/*.jsx", "**/*.tsx", "**/*.rs", "**/*.java",
				"**/*.c", "**/*.cpp", "**/*.cc", "**/*.cxx", "**/*.h", "**/*.hpp",
				"**/*.rb", "**/*.php", "**/*.cs", "**/*.kt", "**/*.kts",
				"**/*.swift", "**/*.scala", "**/*.sc",
				"**/*.lua", "**/*.sql", "**/*.proto",
				"**/*.sh", "**/*.bash",
				"**/*.ex", "**/*.exs", "**/*.elm",
				"**/*.ml", "**/*.mli",
				"**/*.html", "**/*.htm", "**/*.css", "**/*.yaml", "**/*.yml",
				"**/*.toml", "**/*.json", "**/*.tf", "**/*.hcl",
				"**/*.md",
				"**/Dockerfile",
			},
			Exclude: []string{
				"**/vendor/**", "**/node_modules/**", "**/.git/**",
				"**/dist/**", "**/build/**", "**/target/**", "**/bin/**", "**/obj/**",
				"**/*.min.js", "**/*.min.css", "**/*.generated.*",
				"**/package-lock.json", "**/yarn.lock", "**/pnpm-lock.yaml",
				"**/go.sum", "**/Cargo.lock", "**/composer.lock",
			},
			UseGitIgnore: true,
		},
		Limits: LimitsConfig{
			MaxFileSize:    "1MB",
			MaxFiles:       50000,
			TokenLimit:     120000,
			SafetyFraction: 0.9,
			ItemCap:        1000,
			Timeout:        30 * time.Minute,
			Workers:        0,
		},
		Temporal: TemporalConfig{
			TieredSampling:      false,
			FullHistoryDays:     30,
			SampledHistoryDays:  365,
			SampleRate:          0.2,
			OnlyTags:            true,
			EmbedCommitMessages: true,
			EmbedDiffs:          true,
			MinDiffLines:        10,
			MaxDiffLines:        500,
			MaxCommits:          10000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ConfigDir returns the path to the project's index config directory.
func ConfigDir(projectRoot string) string {
	return filepath.Join(projectRoot, ".code-indexer")
}

// ConfigPath returns the path to config.yaml.
func ConfigPath(projectRoot string) string {
	return filepath.Join(ConfigDir(projectRoot), "config.yaml")
}

// IndexBasePath returns the default vector store base path.
func IndexBasePath(projectRoot string) string {
	return filepath.Join(ConfigDir(projectRoot), "index")
}

// Load loads configuration from file, falling back to defaults.
func Load(projectRoot string) (*Config, []string, error) {
	cfg := DefaultConfig()
	warnings := []string{}

	configPath := ConfigPath(projectRoot)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		warnings = append(warnings, "no config file found, using defaults")
		if cfg.VectorStore.Path == "" {
			cfg.VectorStore.Path = IndexBasePath(projectRoot)
		}
		return cfg, warnings, nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
		warnings = append(warnings, "using default embedding provider: openai")
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 100
	}
	if cfg.Chunking.Strategy == "" {
		cfg.Chunking.Strategy = "simple"
	}
	if cfg.Chunking.MaxChunkSize == 0 {
		cfg.Chunking.MaxChunkSize = 2000
	}
	if cfg.Limits.TokenLimit == 0 {
		cfg.Limits.TokenLimit = 120000
	}
	if cfg.Limits.SafetyFraction == 0 {
		cfg.Limits.SafetyFraction = 0.9
	}
	if cfg.Limits.ItemCap == 0 {
		cfg.Limits.ItemCap = 1000
	}
	if cfg.VectorStore.Path == "" {
		cfg.VectorStore.Path = IndexBasePath(projectRoot)
	}

	return cfg, warnings, nil
}

// Save saves configuration to file.
func Save(projectRoot string, cfg *Config) error {
	configDir := ConfigDir(projectRoot)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(ConfigPath(projectRoot))
	v.SetConfigType("yaml")

	v.Set("embedding", cfg.Embedding)
	v.Set("chunking", cfg.Chunking)
	v.Set("vectorstore", cfg.VectorStore)
	v.Set("index", cfg.Index)
	v.Set("limits", cfg.Limits)
	v.Set("temporal", cfg.Temporal)
	v.Set("logging", cfg.Logging)

	return v.WriteConfig()
}

// Validate validates the configuration.
func Validate(cfg *Config) []error {
	var errs []error

	validEmbeddingProviders := map[string]bool{"openai": true}
	if !validEmbeddingProviders[cfg.Embedding.Provider] {
		errs = append(errs, fmt.Errorf("invalid embedding provider: %s", cfg.Embedding.Provider))
	}

	validChunkingStrategies := map[string]bool{"simple": true}
	if !validChunkingStrategies[cfg.Chunking.Strategy] {
		errs = append(errs, fmt.Errorf("invalid chunking strategy: %s", cfg.Chunking.Strategy))
	}

	validVectorStores := map[string]bool{"sqlitevec": true}
	if !validVectorStores[cfg.VectorStore.Provider] {
		errs = append(errs, fmt.Errorf("invalid vector store provider: %s", cfg.VectorStore.Provider))
	}

	if cfg.Temporal.SampleRate < 0 || cfg.Temporal.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("temporal sample_rate must be in [0,1]: %v", cfg.Temporal.SampleRate))
	}

	return errs
}

// Hash returns a hash of the configuration fields that affect
// indexing output, used to detect when reindexing is needed.
func (c *Config) Hash() string {
	data := fmt.Sprintf("%s:%s:%s:%d:%d",
		c.Embedding.Provider,
		c.Embedding.Model,
		c.Chunking.Strategy,
		c.Chunking.MaxChunkSize,
		c.Chunking.Overlap,
	)
	h := sha256.Sum256([]byte(data))
	return hex.EncodeToString(h[:])
}

// Copy creates a deep copy of the config for runtime modification
// without affecting the original.
func (c *Config) Copy() *Config {
	cp := *c
	if c.Index.Include != nil {
		cp.Index.Include = append([]string(nil), c.Index.Include...)
	}
	if c.Index.Exclude != nil {
		cp.Index.Exclude = append([]string(nil), c.Index.Exclude...)
	}
	return &cp
}
