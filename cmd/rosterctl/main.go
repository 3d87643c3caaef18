package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kodevali/the300/internal/config"
	"github.com/kodevali/the300/internal/database"
	"github.com/kodevali/the300/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// env holds what every subcommand needs once configuration is loaded
type env struct {
	cfg *config.Config
	log zerolog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	e := &env{}

	cmd := &cobra.Command{
		Use:           "rosterctl",
		Short:         "Maintenance tasks for the the300 roster database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			e.cfg = cfg
			e.log = logger.New(cfg.Log.Level, cfg.Log.Format).With().Str("service", "rosterctl").Logger()
			return nil
		},
	}

	cmd.AddCommand(newLoadCSVCmd(e))
	cmd.AddCommand(newAddAdminsCmd(e))
	cmd.AddCommand(newMigrateCmd(e))
	return cmd
}

// openDB connects using the loaded configuration. Callers close the handle.
func (e *env) openDB() (*database.DB, error) {
	db, err := database.New(&e.cfg.Database, e.log)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}
