package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configFile string
	envFile    string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:          "tgcollector",
		Short:        "Collect Telegram messages into a relational database",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCollector(cmd.Context(), flags)
		},
	}

	cmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "Config file path (optional, defaults to ./config.yaml)")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "Dotenv file path (optional, defaults to ./.env)")

	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newLoginCmd(flags))
	cmd.AddCommand(newMigrateCmd(flags))
	cmd.AddCommand(newStatsCmd(flags))

	return cmd
}
