// Package cmd holds the command line entry points of the account API.
package cmd

import (
	"bitwise74/account-api/config"
	"bitwise74/account-api/pkg/logger"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// env carries what every subcommand needs once the configuration is loaded.
type env struct {
	v       *viper.Viper
	cfg     *config.Config
	restore func()
}

func NewRootCommand() *cobra.Command {
	e := &env{v: viper.New()}

	var (
		configFile string
		envFile    string
	)

	cmd := &cobra.Command{
		Use:           "account-api",
		Short:         "Account registration, verification and session service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env-file") {
				return fmt.Errorf("failed to load env file, %w", err)
			}

			if configFile != "" {
				e.v.SetConfigFile(configFile)
			}

			cfg, err := config.Setup(e.v)
			if err != nil {
				return err
			}
			e.cfg = cfg

			restore, err := logger.Setup(cfg.App.LogLevel)
			if err != nil {
				return err
			}
			e.restore = restore

			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.restore != nil {
				e.restore()
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a config file (default ./config.toml)")
	flags.StringVar(&envFile, "env-file", ".env", "Env file loaded before reading the configuration")
	flags.String("log-level", "", "Log level (debug, info, warn, error, fatal)")
	flags.String("database-driver", "", "Database driver (postgres, sqlite)")
	flags.String("database-dsn", "", "Database connection string")

	bindFlags(e.v, flags, map[string]string{
		"app.log_level":   "log-level",
		"database.driver": "database-driver",
		"database.dsn":    "database-dsn",
	})

	cmd.AddCommand(newServeCommand(e))
	cmd.AddCommand(newMigrateCommand(e))
	cmd.AddCommand(newPurgeCommand(e))

	return cmd
}

// bindFlags maps config keys to flags of fs. A flag only wins over the
// environment and config file when it was set explicitly.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if f := fs.Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}
