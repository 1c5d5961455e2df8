package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/314clay/claude-dashboard/internal/config"
	"github.com/314clay/claude-dashboard/internal/ingest"
)

func init() {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Import Claude Code transcripts into the database",
		Run:   runIngest,
	}

	cmd.Flags().String("path", "", "Claude directory (overrides config)")
	cmd.Flags().String("since", "", "Only import sessions newer than e.g. 7d, 24h, 30m")
	cmd.Flags().Bool("all", false, "Import everything, ignoring the since cutoff")

	RootCmd.AddCommand(cmd)
}

func runIngest(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	claudeDir := cfg.Ingest.ClaudeDir
	if path, _ := cmd.Flags().GetString("path"); path != "" {
		claudeDir = path
	}

	var since time.Time
	if all, _ := cmd.Flags().GetBool("all"); !all {
		sinceStr := cfg.Ingest.Since
		if s, _ := cmd.Flags().GetString("since"); s != "" {
			sinceStr = s
		}
		if sinceStr != "" {
			var err error
			since, err = ingest.ParseSince(sinceStr)
			if err != nil {
				exitErr("parse since", err)
			}
		}
	}

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		exitErr("build logger", err)
	}
	defer logger.Sync()

	st := openStore(cfg)
	defer st.Close()

	res, err := ingest.NewImporter(st, logger).Run(context.Background(), claudeDir, since)
	if err != nil {
		exitErr("ingest", err)
	}
	printJSON(res)
}
