package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kvasir-labs/parlor/internal/config"
	"github.com/kvasir-labs/parlor/internal/log"
	"github.com/kvasir-labs/parlor/internal/store"
	"github.com/kvasir-labs/parlor/internal/store/sqlite"
)

func promoteCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "promote <username>",
		Short: "Grant admin role to an existing user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]

			logger := log.New("info")
			cfg, _, err := config.Load(logger, configPath)
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.DatabasePath = dbPath
			}

			st, err := sqlite.New(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			if err := st.SetUserRole(context.Background(), username, store.RoleAdmin); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("user %q not found", username)
				}
				return err
			}

			logger.Info().Str("username", username).Msg("user promoted to admin")
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "path to the SQLite database")
	return cmd
}
