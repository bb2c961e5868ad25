package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command. Without a subcommand it serves HTTP.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobtrack",
		Short: "Job tracker account and session service",
		Long: `jobtrack serves the account API of the job tracker: registration,
login, profile management, password reset and email verification.`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")
	cmd.PersistentFlags().String("env", "", "runtime environment (development or production)")
	cmd.PersistentFlags().String("db-driver", "", "database driver: mysql, postgres or sqlite")
	cmd.PersistentFlags().String("database-dsn", "", "database connection string")
	cmd.PersistentFlags().String("log-format", "", "log format: text or json")
	addServeFlags(cmd.Flags())

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewSeedCmd())

	return cmd
}

func addServeFlags(fs *pflag.FlagSet) {
	fs.String("server-port", "", "HTTP listen port")
	fs.String("redis-addr", "", "redis address for the profile cache")
}
