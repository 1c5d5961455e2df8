package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/314clay/claude-dashboard/internal/rules"
)

func init() {
	filterCmd := &cobra.Command{
		Use:   "filter",
		Short: "Manage visibility filters",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all filters",
		Run:   runFilterList,
	}

	createCmd := &cobra.Command{
		Use:   "create [name] [query]",
		Short: "Create a filter",
		Long:  "Create a filter. Query patterns: role:user, role:assistant, has_tools, tool:<name>, long, short.",
		Args:  cobra.ExactArgs(2),
		Run:   runFilterCreate,
	}

	rmCmd := &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a filter and its results",
		Args:  cobra.ExactArgs(1),
		Run:   runFilterRm,
	}

	scoreCmd := &cobra.Command{
		Use:   "score [id]",
		Short: "Score all unscored messages against a filter",
		Args:  cobra.ExactArgs(1),
		Run:   runFilterScore,
	}

	statusCmd := &cobra.Command{
		Use:   "status [id]",
		Short: "Show scoring progress for a filter",
		Args:  cobra.ExactArgs(1),
		Run:   runFilterStatus,
	}

	filterCmd.AddCommand(listCmd, createCmd, rmCmd, scoreCmd, statusCmd)
	RootCmd.AddCommand(filterCmd)
}

func runFilterList(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	st := openStore(cfg)
	defer st.Close()

	filters, err := st.Filters(context.Background())
	if err != nil {
		exitErr("list filters", err)
	}
	printJSON(filters)
}

func runFilterCreate(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	st := openStore(cfg)
	defer st.Close()

	filter, err := st.CreateFilter(context.Background(), args[0], args[1])
	if err != nil {
		exitErr("create filter", err)
	}
	printJSON(filter)
}

func runFilterRm(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	st := openStore(cfg)
	defer st.Close()

	id := parseID(args[0])
	deleted, err := st.DeleteFilter(context.Background(), id)
	if err != nil {
		exitErr("delete filter", err)
	}
	printJSON(map[string]interface{}{"deleted": deleted, "id": id})
}

func runFilterScore(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	st := openStore(cfg)
	defer st.Close()

	ctx := context.Background()
	id := parseID(args[0])
	filter, err := st.Filter(ctx, id)
	if err != nil {
		exitErr("load filter", err)
	}

	res, err := rules.Score(ctx, st, id, filter.QueryText)
	if err != nil {
		exitErr("score filter", err)
	}
	printJSON(res)
}

func runFilterStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	st := openStore(cfg)
	defer st.Close()

	status, err := st.FilterStatus(context.Background(), parseID(args[0]))
	if err != nil {
		exitErr("filter status", err)
	}
	if status == nil {
		exitErr("filter status", fmt.Errorf("filter %d not found", parseID(args[0])))
	}
	printJSON(status)
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		exitErr("parse id", err)
	}
	return id
}
