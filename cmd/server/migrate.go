package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply session store migrations and exit",
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
			store.Close()

			logger.Info("migrations applied", zap.String("driver", cfg.StoreDriver))
			return nil
		},
	}
}
