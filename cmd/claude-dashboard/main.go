package main

import (
	"os"

	"github.com/314clay/claude-dashboard/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
