package main

import (
	"context"
	"fmt"

	"github.com/kodevali/the300/internal/repository"
	"github.com/kodevali/the300/internal/service"
	"github.com/spf13/cobra"
)

func newAddAdminsCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "add-admins <email>...",
		Short: "Add e-mails to the admin allowlist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAddAdmins(cmd.Context(), e, args)
		},
	}
}

func runAddAdmins(ctx context.Context, e *env, emails []string) error {
	db, err := e.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	services := service.NewServices(repository.New(db), e.cfg, nil, nil, e.log)
	defer services.Selection.Close(ctx)

	added, err := services.Role.AddAdmins(ctx, emails)
	if err != nil {
		return fmt.Errorf("add admins: %w", err)
	}

	e.log.Info().Int("added", added).Int("requested", len(emails)).Msg("Admin allowlist updated")
	return nil
}
