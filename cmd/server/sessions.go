package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"neuropulse/internal/models"
	"neuropulse/internal/services"
)

func newSessionsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Print every stored session in insertion order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(false)
			if err != nil {
				return err
			}
			defer logger.Sync()

			store, err := openMigratedStore(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			sessions, err := store.GetAllSessions(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read sessions: %w", err)
			}

			if asJSON {
				return writeSessionsJSON(cmd.OutOrStdout(), sessions)
			}
			return writeSessionsTable(cmd.OutOrStdout(), sessions)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print sessions as JSON")
	return cmd
}

func writeSessionsJSON(w io.Writer, sessions []models.SessionRecord) error {
	if sessions == nil {
		sessions = []models.SessionRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sessions)
}

func writeSessionsTable(w io.Writer, sessions []models.SessionRecord) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions recorded yet.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tAPP\tMINUTES\tRISK\tUNLOCKS\tNOTIFS\tCATEGORY\tNIGHT")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%d\t%d\t%s\t%t\n",
			s.ID,
			s.Timestamp.Local().Format(time.DateTime),
			s.DominantApp,
			services.ActiveMinutes(s.ActiveSeconds),
			s.RiskLevel,
			s.UnlocksLastHour,
			s.NotificationsLast30Min,
			s.Category,
			s.IsNight,
		)
	}
	return tw.Flush()
}
