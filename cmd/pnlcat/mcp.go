package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/pnl-categorizer/internal/categorize"
	"github.com/Veraticus/pnl-categorizer/internal/mcpserver"
)

func mcpCmd() *cobra.Command {
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve categorization as MCP tools",
		Long: `Start a Model Context Protocol server exposing the categorize_transaction and
list_categories tools. The server speaks stdio unless --http is given.
Organization settings are read from the database; logs go to stderr.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

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

			var opts []categorize.Option
			if p.scorer != nil {
				opts = append(opts, categorize.WithScorer(p.scorer))
			}

			server, err := mcpserver.NewServer(mcpserver.Deps{
				Categorizer: categorize.New(p.tax, p.guardrails, opts...),
				Resolver:    resolver,
				Taxonomy:    p.tax,
				Logger:      slog.Default(),
			}, version)
			if err != nil {
				return err
			}

			if httpAddr != "" {
				return server.RunHTTP(ctx, httpAddr)
			}
			return server.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "serve streamable HTTP on this address instead of stdio (e.g. localhost:8080)")
	return cmd
}
