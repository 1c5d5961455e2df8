package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/314clay/claude-dashboard/internal/config"
	"github.com/314clay/claude-dashboard/internal/embedding"
	"github.com/314clay/claude-dashboard/internal/server"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP server",
		Run:   runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (overrides config)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		exitErr("build logger", err)
	}
	defer logger.Sync()

	st := openStore(cfg)
	defer st.Close()

	var scorer *embedding.Scorer
	var gen *embedding.Generator
	if embedder := buildEmbedder(cfg); embedder != nil {
		scorer = embedding.NewScorer(st, embedder, embedding.Normalization(cfg.Embedding.Normalization))
		gen = embedding.NewGenerator(st, embedder, scorer, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(st, scorer, gen, *cfg, logger)
	if err := srv.ListenAndServe(ctx); err != nil {
		exitErr("serve", err)
	}
}
