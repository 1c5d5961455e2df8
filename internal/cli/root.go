// Package cli implements the claude-dashboard CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/314clay/claude-dashboard/internal/config"
	"github.com/314clay/claude-dashboard/internal/embedding"
	"github.com/314clay/claude-dashboard/internal/store"
)

var (
	cfgFile string
	dbPath  string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "claude-dashboard",
	Short: "Dashboard over Claude Code transcripts",
	Long:  "Ingests Claude Code session transcripts into SQLite and serves a message graph with visibility filters and semantic proximity edges.",
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./dashboard.yaml or ~/.config/claude-dashboard/dashboard.yaml)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (overrides config)")
}

func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		exitErr("load config", err)
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	return cfg
}

func openStore(cfg *config.Config) *store.SQLiteStore {
	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		exitErr("open store", err)
	}
	return st
}

// buildEmbedder returns nil when no provider is configured.
func buildEmbedder(cfg *config.Config) embedding.Embedder {
	switch cfg.Embedding.Provider {
	case "ollama":
		return embedding.NewOllamaEmbedder(cfg.Embedding.BaseURL, cfg.Embedding.Model)
	case "openai":
		return embedding.NewOpenAIEmbedder(cfg.Embedding.BaseURL, cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.Dims)
	}
	return nil
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		exitErr("encode output", err)
	}
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
