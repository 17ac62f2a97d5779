package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	ctx := newCommandContext()

	rootCmd := &cobra.Command{
		Use:           "scan-agent",
		Short:         "Offline inventory scan store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx.syncLogger()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&ctx.configFile, "config", "c", "", "Configuration file path")
	flags.String("db", "", "Path to the scan database (store.path)")
	flags.String("log-level", "", "Log level: debug, info, warn, error (log_level)")
	flags.String("log-format", "", "Log format: console or json (log_format)")
	flags.Bool("no-lock", false, "Do not take the single-instance lock")

	ctx.bindFlag("store.path", flags.Lookup("db"))
	ctx.bindFlag("log_level", flags.Lookup("log-level"))
	ctx.bindFlag("log_format", flags.Lookup("log-format"))

	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newScansCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newSessionCommand(ctx))

	return rootCmd
}
