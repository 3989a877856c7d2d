package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"neuropulse/internal/config"
	"neuropulse/internal/middleware"
)

func newTokenCmd() *cobra.Command {
	var (
		device string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a device agent or display",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			token, err := mintToken(cfg.JWTSecret, device, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&device, "device", "", "Device UUID (generated when empty)")
	cmd.Flags().DurationVar(&ttl, "ttl", 720*time.Hour, "Token lifetime")
	return cmd
}

func mintToken(secret, device string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("JWT_SECRET is not set; the API is running without auth")
	}
	if ttl <= 0 {
		return "", errors.New("--ttl must be positive")
	}

	deviceID := uuid.New()
	if device != "" {
		id, err := uuid.Parse(device)
		if err != nil {
			return "", fmt.Errorf("invalid --device: %w", err)
		}
		deviceID = id
	}

	return middleware.NewJWTAuth(secret).GenerateDeviceToken(deviceID, ttl)
}
