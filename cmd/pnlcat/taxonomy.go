package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/pnl-categorizer/internal/cli"
	"github.com/Veraticus/pnl-categorizer/internal/guardrail"
	"github.com/Veraticus/pnl-categorizer/internal/model"
	"github.com/Veraticus/pnl-categorizer/internal/pattern"
	"github.com/Veraticus/pnl-categorizer/internal/taxonomy"
)

func taxonomyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "taxonomy",
		Aliases: []string{"categories"},
		Short:   "Inspect the category taxonomy",
	}

	cmd.AddCommand(taxonomyListCmd())
	cmd.AddCommand(taxonomyValidateCmd())

	return cmd
}

func taxonomyListCmd() *cobra.Command {
	var typ string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tax := taxonomy.Ecommerce()
			nodes := tax.All()
			if typ != "" {
				t := model.CategoryType(strings.ToLower(typ))
				if !t.IsValid() {
					return fmt.Errorf("unknown category type %q", typ)
				}
				nodes = tax.ByType(t)
			}
			return cli.WriteCategoryTable(cmd.OutOrStdout(), tax, nodes)
		},
	}

	cmd.Flags().StringVar(&typ, "type", "", "only show one type (revenue, cogs, opex, liability, clearing)")
	return cmd
}

// validateTaxonomy checks the taxonomy and everything that refers to it by slug.
func validateTaxonomy(tax *taxonomy.Taxonomy) (*guardrail.Table, error) {
	var errs []error

	if err := tax.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("taxonomy: %w", err))
	}
	if err := pattern.ValidateRules(pattern.DefaultRules(), tax); err != nil {
		errs = append(errs, fmt.Errorf("pattern rules: %w", err))
	}

	table, err := guardrail.DefaultTable()
	if err != nil {
		errs = append(errs, fmt.Errorf("guardrail table: %w", err))
	} else if err := table.Validate(tax); err != nil {
		errs = append(errs, fmt.Errorf("guardrail table: %w", err))
	}

	return table, errors.Join(errs...)
}

func taxonomyValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the taxonomy, pattern rules and guardrail table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			tax := taxonomy.Ecommerce()

			table, err := validateTaxonomy(tax)
			if err != nil {
				fmt.Fprintln(out, cli.FormatError("Validation failed"))
				return err
			}

			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%d categories, %d pattern rules and the guardrail table are consistent",
				len(tax.All()), len(pattern.DefaultRules()))))
			for _, gap := range table.KnownGaps {
				fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("known gap %s: %s", gap.ID, gap.Description)))
			}
			return nil
		},
	}
}
