package main

import (
	"fmt"

	"github.com/goliatone/go-print"
	"github.com/sandunudayakantha/saloon-auth/config"
	"github.com/spf13/cobra"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.env, opts.configDirs...)
			if err != nil {
				return err
			}
			if cfg.Provider.SigningKey != "" {
				cfg.Provider.SigningKey = "********"
			}
			fmt.Fprintln(cmd.OutOrStdout(), print.MaybePrettyJSON(cfg))
			return nil
		},
	}
}
