package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/pnl-categorizer/internal/cli"
	"github.com/Veraticus/pnl-categorizer/internal/common"
	"github.com/Veraticus/pnl-categorizer/internal/model"
)

func orgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Manage organizations and their categorization settings",
	}

	cmd.AddCommand(orgSetCmd())
	cmd.AddCommand(orgShowCmd())
	cmd.AddCommand(orgListCmd())

	return cmd
}

func orgSetCmd() *cobra.Command {
	var (
		name      string
		autoApply float64
		hybrid    float64
		guard     bool
		reset     bool
	)

	cmd := &cobra.Command{
		Use:   "set <org-id>",
		Short: "Create or update an organization",
		Long: `Create or update an organization. Thresholds that are not given keep their
stored value; --reset clears every override so the defaults apply.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			org, err := store.GetOrganization(ctx, args[0])
			switch {
			case errors.Is(err, common.ErrNotFound):
				org = &model.Organization{ID: args[0], Name: args[0], Industry: model.IndustryEcommerce}
			case err != nil:
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("name") {
				org.Name = name
			}
			if reset {
				org.AutoApplyThreshold = nil
				org.HybridThreshold = nil
				org.UseGuardrails = nil
			}
			if flags.Changed("auto-apply-threshold") {
				if autoApply < 0 || autoApply > 1 {
					return fmt.Errorf("%w: --auto-apply-threshold must be within [0,1]", common.ErrInvalidConfig)
				}
				org.AutoApplyThreshold = &autoApply
			}
			if flags.Changed("hybrid-threshold") {
				if hybrid < 0 || hybrid > 1 {
					return fmt.Errorf("%w: --hybrid-threshold must be within [0,1]", common.ErrInvalidConfig)
				}
				org.HybridThreshold = &hybrid
			}
			if flags.Changed("guardrails") {
				org.UseGuardrails = &guard
			}

			if err := store.SaveOrganization(ctx, org); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Saved organization "+org.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().Float64Var(&autoApply, "auto-apply-threshold", 0, "confidence at or above which categories are applied without review")
	cmd.Flags().Float64Var(&hybrid, "hybrid-threshold", 0, "pass 1 confidence below which the language model is consulted")
	cmd.Flags().BoolVar(&guard, "guardrails", true, "run accounting guardrails")
	cmd.Flags().BoolVar(&reset, "reset", false, "clear all threshold overrides")

	return cmd
}

func orgShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <org-id>",
		Short: "Show the effective categorization settings of an organization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			resolver, err := newResolver(store)
			if err != nil {
				return err
			}
			cfg := resolver.Get(ctx, args[0])

			name := cli.SubtleStyle.Render("(not registered, defaults apply)")
			if org, err := store.GetOrganization(ctx, args[0]); err == nil {
				name = org.Name
			} else if !errors.Is(err, common.ErrNotFound) {
				return err
			}

			content := fmt.Sprintf("  • Name: %s\n", name) +
				fmt.Sprintf("  • Industry: %s\n", cfg.Industry) +
				fmt.Sprintf("  • Auto-apply threshold: %.2f\n", cfg.AutoApplyThreshold) +
				fmt.Sprintf("  • Hybrid threshold: %.2f\n", cfg.HybridThreshold) +
				fmt.Sprintf("  • Guardrails: %t", cfg.UseGuardrails)
			fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox("Organization "+args[0], content))
			return nil
		},
	}
}

func orgListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List organizations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			orgs, err := store.ListOrganizations(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(orgs) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No organizations yet. Use 'pnlcat org set' to add one."))
				return nil
			}
			for _, org := range orgs {
				fmt.Fprintf(out, "%s\t%s\n", org.ID, org.Name)
			}
			return nil
		},
	}
}
