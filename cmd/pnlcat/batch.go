package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/pnl-categorizer/internal/batch"
	"github.com/Veraticus/pnl-categorizer/internal/cli"
	"github.com/Veraticus/pnl-categorizer/internal/config"
)

func batchCmd() *cobra.Command {
	var (
		orgIDs     []string
		dryRun     bool
		limit      int
		maxOrgs    int
		maxGlobal  int
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Categorize every uncategorized transaction",
		Long: `Categorize the uncategorized transactions of one or more organizations.
Organizations run concurrently and the number of transactions in flight is
capped globally. Without --org every organization with uncategorized
transactions is processed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			handler := cli.NewInterruptHandler(os.Stderr, "Categorized transactions are saved. Run pnlcat batch again to continue.")
			ctx, stop := handler.HandleInterrupts(cmd.Context())
			defer stop()

			cfg, err := config.LoadBatchConfig(viper.GetViper())
			if err != nil {
				return err
			}
			if maxOrgs > 0 {
				cfg.MaxConcurrentOrgs = maxOrgs
			}
			if maxGlobal > 0 {
				cfg.MaxConcurrentGlobal = maxGlobal
			}
			cfg.Limit = limit
			cfg.DryRun = dryRun

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			p, err := newPipeline()
			if err != nil {
				return err
			}
			defer p.Close()

			resolver, err := newResolver(store)
			if err != nil {
				return err
			}

			opts := []batch.Option{batch.WithLogger(slog.Default())}
			if p.scorer != nil {
				opts = append(opts, batch.WithScorer(p.scorer, config.RetryOptions(viper.GetViper())))
			}
			var progress *cli.BatchProgress
			if !noProgress {
				progress = cli.NewBatchProgress(cmd.ErrOrStderr())
				opts = append(opts, batch.WithProgress(progress.Observe))
			}

			runner := batch.NewRunner(store, resolver, p.tax, p.guardrails, cfg, opts...)
			summary, err := runner.Run(ctx, orgIDs)
			if progress != nil {
				progress.Finish()
			}
			if summary != nil {
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderSummary(*summary, dryRun))
			}
			if err != nil {
				if handler.WasInterrupted() {
					return nil
				}
				return fmt.Errorf("batch failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&orgIDs, "org", nil, "organization to process (repeatable, default: all)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "categorize without saving results")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum transactions per organization (0 for all)")
	cmd.Flags().IntVar(&maxOrgs, "max-orgs", 0, "organizations processed concurrently (default from config)")
	cmd.Flags().IntVar(&maxGlobal, "max-concurrent", 0, "transactions in flight across all organizations (default from config)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")

	return cmd
}
