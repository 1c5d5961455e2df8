package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show overview metrics and tool usage",
		Run:   runStats,
	}

	cmd.Flags().Int("hours", 0, "Time window in hours (default: config window)")

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	st := openStore(cfg)
	defer st.Close()

	hours, _ := cmd.Flags().GetInt("hours")
	if hours <= 0 {
		hours = cfg.Graph.WindowHours
	}
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

	ctx := context.Background()
	metrics, err := st.OverviewMetrics(ctx, since)
	if err != nil {
		exitErr("overview metrics", err)
	}
	tools, err := st.ToolUsageStats(ctx, since)
	if err != nil {
		exitErr("tool usage stats", err)
	}

	printJSON(map[string]interface{}{
		"window_hours": hours,
		"metrics":      metrics,
		"tools":        tools,
	})
}
