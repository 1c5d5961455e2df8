package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/314clay/claude-dashboard/internal/config"
	"github.com/314clay/claude-dashboard/internal/embedding"
)

func init() {
	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Generate embeddings for messages without one",
		Run:   runEmbed,
	}

	cmd.Flags().Int("batch-size", 100, "Texts per provider call")
	cmd.Flags().Int("max-messages", 1000, "Maximum messages to embed in one run")

	RootCmd.AddCommand(cmd)

	statsCmd := &cobra.Command{
		Use:   "embed-stats",
		Short: "Show embedding coverage",
		Run:   runEmbedStats,
	}
	RootCmd.AddCommand(statsCmd)
}

func runEmbed(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	embedder := buildEmbedder(cfg)
	if embedder == nil {
		exitErr("embed", fmt.Errorf("no embedding provider configured"))
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		exitErr("build logger", err)
	}
	defer logger.Sync()

	st := openStore(cfg)
	defer st.Close()

	batchSize, _ := cmd.Flags().GetInt("batch-size")
	maxMessages, _ := cmd.Flags().GetInt("max-messages")

	gen := embedding.NewGenerator(st, embedder, nil, logger)
	res, err := gen.Generate(context.Background(), embedding.GenerateParams{
		BatchSize:   batchSize,
		MaxMessages: maxMessages,
	})
	if err != nil {
		exitErr("embed", err)
	}
	printJSON(res)
}

func runEmbedStats(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	st := openStore(cfg)
	defer st.Close()

	stats, err := st.EmbeddingStats(context.Background())
	if err != nil {
		exitErr("embed stats", err)
	}
	printJSON(stats)
}
