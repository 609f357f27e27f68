package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/pnl-categorizer/internal/cli"
	"github.com/Veraticus/pnl-categorizer/internal/model"
	"github.com/Veraticus/pnl-categorizer/internal/ofx"
	"github.com/Veraticus/pnl-categorizer/internal/plaid"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import transactions",
		Long: `Import bank transactions from OFX/QFX statements or saved Plaid responses.
Re-importing a transaction updates its bank fields and keeps its category.`,
	}

	cmd.AddCommand(importOFXCmd())
	cmd.AddCommand(importPlaidCmd())

	return cmd
}

func importOFXCmd() *cobra.Command {
	var orgID string

	cmd := &cobra.Command{
		Use:   "ofx <file|directory>...",
		Short: "Import OFX/QFX statements",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			files, err := collectOFXFiles(args)
			if err != nil {
				return err
			}

			parser := ofx.NewParser(orgID, slog.Default())
			var all []model.NormalizedTransaction
			for _, path := range files {
				txns, err := parseOFXFile(ctx, parser, path)
				if err != nil {
					return err
				}
				slog.Info("Parsed statement", "file", path, "transactions", len(txns))
				all = append(all, txns...)
			}

			return saveImported(cmd, all, fmt.Sprintf("%d file(s)", len(files)))
		},
	}

	cmd.Flags().StringVar(&orgID, "org", "", "organization the transactions belong to")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func parseOFXFile(ctx context.Context, parser *ofx.Parser, path string) ([]model.NormalizedTransaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	txns, err := parser.ParseFile(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return txns, nil
}

// collectOFXFiles expands directories into the .ofx and .qfx files they contain.
func collectOFXFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to access %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", arg, err)
		}
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if !e.IsDir() && (ext == ".ofx" || ext == ".qfx") {
				files = append(files, filepath.Join(arg, e.Name()))
			}
		}
	}
	if len(files) == 0 {
		return nil, errors.New("no OFX or QFX files found")
	}
	return files, nil
}

func importPlaidCmd() *cobra.Command {
	var orgID string

	cmd := &cobra.Command{
		Use:   "plaid <file>",
		Short: "Import a saved Plaid transactions response",
		Long: `Import transactions from a JSON file holding a Plaid transaction array, a
/transactions/get response or a /transactions/sync response. Pending
transactions are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer func() { _ = f.Close() }()

			raw, err := plaid.DecodeTransactions(f)
			if err != nil {
				return err
			}

			txns, skipped, err := plaid.NormalizeAll(orgID, raw)
			if err != nil {
				return err
			}
			if skipped > 0 {
				slog.Info("Skipped pending transactions", "count", skipped)
			}

			return saveImported(cmd, txns, args[0])
		},
	}

	cmd.Flags().StringVar(&orgID, "org", "", "organization the transactions belong to")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func saveImported(cmd *cobra.Command, txns []model.NormalizedTransaction, source string) error {
	out := cmd.OutOrStdout()
	if len(txns) == 0 {
		fmt.Fprintln(out, cli.FormatInfo("No transactions found in "+source))
		return nil
	}

	ctx := cmd.Context()
	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.SaveTransactions(ctx, txns); err != nil {
		return fmt.Errorf("failed to save transactions: %w", err)
	}

	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d transactions from %s", len(txns), source)))
	return nil
}
