package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"autonomos/internal/backend"
	"autonomos/internal/cli"
	"autonomos/internal/config"
	"autonomos/internal/core"
	"autonomos/internal/export"
	"autonomos/internal/log"
	"autonomos/internal/services"
	"autonomos/internal/storage"
)

var errNotUnderstood = errors.New("could not extract an entry")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "autonomos-cli",
		Short:        "Admin tool for the autonomos bookkeeping bot",
		SilenceUsage: true,
	}
	root.AddCommand(newParseCmd(), newHistoryCmd(), newMigrateCmd())
	return root
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <text>",
		Short: "Show how a message would be classified and extracted, without storing it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			command := core.Classify(strings.Join(args, " "))
			fmt.Fprintf(out, "command: %s\n", command.Kind)

			switch command.Kind {
			case core.CommandHistory:
				fmt.Fprintf(out, "filter: %q\n", command.Filter)
			case core.CommandEntry:
				p, ok := core.ExtractEntry(command.Text)
				if !ok {
					fmt.Fprintln(out, services.TextGuidanceText)
					return errNotUnderstood
				}
				fmt.Fprintf(out, "client: %s\nitem: %s\namount_cents: %d\n", p.Client, p.Item, p.AmountCents)
				fmt.Fprintln(out, services.FormatConfirmation(p.Client, p.Item, p.AmountCents))
			}
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var (
		phone  string
		client string
		format string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the latest entries of a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(export.Formats, format) {
				return fmt.Errorf("unknown format %q: must be one of %v", format, export.Formats)
			}

			cfg := config.Load()
			logger := stderrLogger(cmd, cfg, log.ComponentApp)

			ctx := cmd.Context()
			store, err := cli.OpenBackend(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			rows, err := store.Backend.QueryHistory(ctx, phone, client)
			if err != nil {
				return fmt.Errorf("query history: %w", err)
			}
			return export.Write(cmd.OutOrStdout(), format, rows, cfg.Location())
		},
	}

	cmd.Flags().StringVar(&phone, "phone", "", "tenant phone number")
	cmd.Flags().StringVar(&client, "client", "", "only entries whose client name contains this text")
	cmd.Flags().StringVar(&format, "format", export.FormatText, "output format: text, csv or yaml")
	_ = cmd.MarkFlagRequired("phone")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the configured database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger := stderrLogger(cmd, cfg, log.ComponentStorage)

			backendCfg, err := backend.FromAppConfig(cfg)
			if err != nil {
				return err
			}
			if err := backendCfg.Validate(); err != nil {
				return err
			}

			switch cfg.DataBackend {
			case config.BackendSQLite:
				if err := storage.PrepareSQLitePath(cfg.SQLiteDBPath); err != nil {
					return err
				}
				err = storage.RunMigrations(storage.DialectSQLite, storage.SQLiteDSN(cfg.SQLiteDBPath))
			case config.BackendPostgres:
				err = storage.RunMigrations(storage.DialectPostgres, cfg.DatabaseURL)
			default:
				return fmt.Errorf("backend %q has no schema to migrate", cfg.DataBackend)
			}
			if err != nil {
				return err
			}
			logger.Info("Migrations applied", "backend", cfg.DataBackend)
			return nil
		},
	}
}

// stderrLogger keeps log lines out of exported output.
func stderrLogger(cmd *cobra.Command, cfg *config.Config, component string) *log.Logger {
	return log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    cmd.ErrOrStderr(),
	})
}
