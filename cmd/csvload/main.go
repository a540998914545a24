// Command csvload validates CSV files from object storage and loads the
// accepted records into a database.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/csvload/internal/config"
	_ "github.com/JonMunkholm/csvload/internal/core/schemas" // Register compiled-in schemas
	"github.com/JonMunkholm/csvload/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := rootCommand().ExecuteContext(ctx)
	cancel()
	if err != nil {
		slog.Error("exited", "error", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:           "csvload",
		Short:         "validate CSV files and load accepted records into a database",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loadEnv(envFile)

			var lc config.LoggingConfig
			if err := config.LoadInto(&lc); err != nil {
				return err
			}
			logging.Setup(lc.Level, lc.Format)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"a dotenv file whose values override the environment, if it exists")

	root.AddCommand(
		consumeCommand(),
		lambdaCommand(),
		migrateCommand(),
		runCommand(),
		schemasCommand(),
		serveCommand(),
		validateCommand(),
	)
	return root
}

// loadEnv loads path if it exists. Overload overwrites existing env vars.
func loadEnv(path string) {
	if path == "" {
		return
	}
	if err := godotenv.Overload(path); err != nil {
		slog.Debug("no env file found, using environment variables", "path", path)
		return
	}
	slog.Info("loaded env file (overwriting existing env vars)", "path", path)
}
