package cmd

import (
	"bitwise74/account-api/db"
	"bitwise74/account-api/internal/account"
	"bitwise74/account-api/internal/store"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := openStore(cmd.Context(), e)
			if err != nil {
				return err
			}
			defer db.Close(conn)

			zap.L().Info("Database schema is up to date", zap.String("driver", e.cfg.Database.Driver))
			return nil
		},
	}
}

func newPurgeCommand(e *env) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "purge-unverified",
		Short: "Delete every account that never verified its email",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete accounts without --yes")
			}

			conn, err := openStore(cmd.Context(), e)
			if err != nil {
				return err
			}
			defer db.Close(conn)

			admin := account.NewAdmin(store.NewGormRepository(conn), account.WithTimeout(e.cfg.App.OperationTimeout))

			n, err := admin.PurgeUnverified(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d unverified users.\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")

	return cmd
}
