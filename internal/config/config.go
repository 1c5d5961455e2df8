// Package config loads dashboard configuration from a config file,
// environment variables and a .env file, in that order of precedence
// (env wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the complete dashboard configuration.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Graph     GraphConfig     `mapstructure:"graph"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
	// CORSOrigins lists allowed browser origins; "*" allows any.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type IngestConfig struct {
	// ClaudeDir is the Claude Code home holding projects/ transcripts.
	ClaudeDir string `mapstructure:"claude_dir" validate:"required"`
	// Since is the default import cutoff, e.g. "7d", "24h", "30m".
	Since string `mapstructure:"since"`
}

type GraphConfig struct {
	// WindowHours is the default time window for graph queries.
	WindowHours int `mapstructure:"window_hours" validate:"gt=0"`
	// ProximityDelta is the default score distance for proximity edges.
	ProximityDelta float64 `mapstructure:"proximity_delta" validate:"gte=0"`
	// ProximityMaxEdges caps emitted proximity edges; 0 is unlimited.
	ProximityMaxEdges int `mapstructure:"proximity_max_edges" validate:"gte=0"`
}

type EmbeddingConfig struct {
	// Provider is "ollama", "openai" or "" to disable embeddings.
	Provider string `mapstructure:"provider" validate:"omitempty,oneof=ollama openai"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Dims     int    `mapstructure:"dims" validate:"gte=0"`
	// Normalization is "minmax" or "linear".
	Normalization string `mapstructure:"normalization" validate:"omitempty,oneof=minmax linear"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	// Format is "json" or "console".
	Format string `mapstructure:"format" validate:"omitempty,oneof=json console"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(home, ".config", "claude-dashboard", "dashboard.db"),
		},
		Server: ServerConfig{
			Addr:        ":8420",
			CORSOrigins: []string{"*"},
		},
		Ingest: IngestConfig{
			ClaudeDir: filepath.Join(home, ".claude"),
			Since:     "7d",
		},
		Graph: GraphConfig{
			WindowHours:       24,
			ProximityDelta:    0.1,
			ProximityMaxEdges: 100000,
		},
		Embedding: EmbeddingConfig{
			Provider:      "ollama",
			Model:         "nomic-embed-text",
			Normalization: "minmax",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from cfgFile (or the default search paths
// when empty), layered over Default and under CLAUDE_DASHBOARD_*
// environment variables. A .env file in the working directory is
// honored if present.
func Load(cfgFile string) (*Config, error) {
	// Missing .env is the normal case.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("CLAUDE_DASHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("dashboard")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "claude-dashboard"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.cors_origins", d.Server.CORSOrigins)
	v.SetDefault("ingest.claude_dir", d.Ingest.ClaudeDir)
	v.SetDefault("ingest.since", d.Ingest.Since)
	v.SetDefault("graph.window_hours", d.Graph.WindowHours)
	v.SetDefault("graph.proximity_delta", d.Graph.ProximityDelta)
	v.SetDefault("graph.proximity_max_edges", d.Graph.ProximityMaxEdges)
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.base_url", d.Embedding.BaseURL)
	v.SetDefault("embedding.api_key", d.Embedding.APIKey)
	v.SetDefault("embedding.dims", d.Embedding.Dims)
	v.SetDefault("embedding.normalization", d.Embedding.Normalization)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}
