package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kodevali/the300/internal/csvcodec"
	"github.com/kodevali/the300/internal/models"
	"github.com/kodevali/the300/internal/repository"
	"github.com/kodevali/the300/internal/validation"
	"github.com/spf13/cobra"
)

type loadOptions struct {
	path  string
	apply bool
}

func newLoadCSVCmd(e *env) *cobra.Command {
	var opts loadOptions

	cmd := &cobra.Command{
		Use:   "load-csv <path>",
		Short: "Replace the whole roster with the contents of a CSV file",
		Long: "Replace the whole roster with the contents of a CSV file. Rows without an id or email " +
			"are skipped. Files carrying the backup columns also restore allocation provenance.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.path = args[0]
			return runLoadCSV(cmd.Context(), e, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.apply, "apply", true, "Write to the database (false only validates the file)")
	return cmd
}

func runLoadCSV(ctx context.Context, e *env, opts loadOptions) error {
	result, err := readRosterFile(opts.path)
	if err != nil {
		return err
	}

	for _, w := range result.Warnings {
		e.log.Warn().Str("file", opts.path).Msg(w)
	}
	for _, rowErr := range result.Skipped {
		e.log.Warn().Int("row", rowErr.Row).Str("field", rowErr.Field).Msg("Skipping row")
	}

	if !opts.apply {
		e.log.Info().
			Int("valid", len(result.Employees)).
			Int("skipped", len(result.Skipped)).
			Msg("Dry run, roster left unchanged")
		return nil
	}

	db, err := e.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	repos := repository.New(db)
	if err := repos.Employee.ReplaceAll(ctx, result.Employees); err != nil {
		return fmt.Errorf("replace roster: %w", err)
	}

	e.log.Info().
		Int("loaded", len(result.Employees)).
		Int("skipped", len(result.Skipped)).
		Msg("Roster replaced")
	return nil
}

// readRosterFile decodes and maps a roster file. Backup files (all provenance
// columns present) are mapped in restore mode so modifier and reason survive.
func readRosterFile(path string) (*validation.MapResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	text, err := csvcodec.DecodeText(raw)
	if err != nil {
		return nil, err
	}

	table, err := csvcodec.Parse(text)
	if err != nil {
		return nil, err
	}

	mode := models.JobTypeImport
	if _, err := validation.ValidateHeaders(table.Headers, validation.RestoreHeaders()); err == nil {
		mode = models.JobTypeRestore
	}

	return validation.MapValidRows(table, mode)
}
