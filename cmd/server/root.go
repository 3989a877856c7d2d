package main

import (
	"github.com/spf13/cobra"
)

var version = "dev" // set via ldflags at build time

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "neuropulse",
		Short: "Usage session monitor",
		Long: `NeuroPulse samples foreground app usage on a fixed interval, classifies
each window by screen time, unlocks, notifications, category and time of
day, and appends one session record per cycle to a durable store.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newSessionsCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newTokenCmd())
	return root
}
