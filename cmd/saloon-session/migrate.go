package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded team_members and shops migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.db.Migrate(cmd.Context()); err != nil {
				return err
			}
			a.logger.Info("schema ready", "dsn", a.cfg.Database.DSN)
			return nil
		},
	}
}
