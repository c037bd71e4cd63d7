package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/staffimport/internal/config"
	"github.com/JonMunkholm/staffimport/internal/core"
	"github.com/JonMunkholm/staffimport/internal/logging"
	"github.com/JonMunkholm/staffimport/internal/schema"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

// errRowsFailed makes the process exit 1 after the row errors were printed.
var errRowsFailed = errors.New("rows failed validation")

type rootOptions struct {
	profilePath string
	logLevel    string
	maxFileSize int64
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "importctl",
		Short:         "Validate and import engineer roster CSV files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			slog.SetDefault(logging.New(cmd.ErrOrStderr(), opts.logLevel, "text"))
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.profilePath, "profile", "", "import profile YAML (default: built-in engineers profile)")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	pf.Int64Var(&opts.maxFileSize, "max-size", 10<<20, "maximum file size in bytes")

	root.AddCommand(newCheckCmd(opts), newTemplateCmd(opts), newImportCmd(opts))
	return root
}

func (o *rootOptions) profile() (*schema.Profile, error) {
	if o.profilePath == "" {
		return schema.Default(), nil
	}
	return schema.LoadFile(o.profilePath)
}

func (o *rootOptions) importConfig() config.ImportConfig {
	return config.ImportConfig{
		MaxFileSize:   o.maxFileSize,
		MaxConcurrent: 1,
		MaxWaitTime:   time.Second,
		Timeout:       5 * time.Minute,
	}
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Parse a CSV file and report every row error",
		Long: `Parses FILE with the import profile and prints the parsed rows followed
by every row error. Exits with status 1 when the file is rejected or any row
is invalid. Nothing is written to the database.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profile, err := opts.profile()
			if err != nil {
				return err
			}
			// Preview never touches the store.
			svc := core.NewService(nil, profile, opts.importConfig())

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			preview, err := svc.Preview(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return userError(err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(preview); err != nil {
					return err
				}
			} else {
				printPreview(out, preview)
			}

			if !preview.CanSubmit {
				return errRowsFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the preview as JSON")
	return cmd
}

func printPreview(w io.Writer, p *core.Preview) {
	for _, e := range p.Engineers {
		fmt.Fprintf(w, "%4d  %-20s %-28s %-14s %v\n", e.Line, e.Name, e.Email, e.Status, e.Skills)
	}
	for _, re := range p.Errors {
		fmt.Fprintln(w, re.Message)
	}
	fmt.Fprintf(w, "%d of %d rows valid\n", p.ValidRows, p.TotalRows)
}

func newTemplateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "template",
		Short: "Print the CSV import template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile, err := opts.profile()
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), profile.Template())
			return err
		},
	}
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a CSV file into the database as one batch",
		Long: `Imports FILE using the database settings from the environment (and
--env-file). The file is rejected as a whole when any row is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			profile, err := opts.profile()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := pgxpool.New(ctx, cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer pool.Close()

			store := core.NewPgStore(pool)
			if cfg.Database.AutoMigrate {
				if err := store.EnsureSchema(ctx); err != nil {
					return err
				}
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			svc := core.NewService(store, profile, cfg.Import)
			ctx = core.ContextWithClient(ctx, "", "importctl")
			result, err := svc.Submit(ctx, filepath.Base(args[0]), f)

			var invalid *core.InvalidRowsError
			if errors.As(err, &invalid) {
				printPreview(cmd.OutOrStdout(), invalid.Preview)
				return errRowsFailed
			}
			if err != nil {
				return userError(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d engineers (batch %s)\n", result.Inserted, result.BatchID)
			return nil
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	return cmd
}

// userError prefixes err with its user message and support code when it
// maps to one. Other errors are returned unchanged.
func userError(err error) error {
	if !core.IsUserFacing(err) {
		return err
	}
	return fmt.Errorf("%s: %w", core.FormatUserError(err), err)
}
