package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Veraticus/pnl-categorizer/internal/cli"
	"github.com/Veraticus/pnl-categorizer/internal/common"
	"github.com/Veraticus/pnl-categorizer/internal/model"
	"github.com/Veraticus/pnl-categorizer/internal/taxonomy"
)

// defaultOverrideConfidence sits above the default auto-apply threshold.
const defaultOverrideConfidence = 0.97

func vendorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vendor",
		Aliases: []string{"vendors"},
		Short:   "Manage organization vendor overrides",
		Long: `Vendor overrides map a merchant keyword to a category for one organization.
They are checked before the built-in pattern rules.`,
	}

	cmd.AddCommand(vendorAddCmd())
	cmd.AddCommand(vendorListCmd())
	cmd.AddCommand(vendorDeleteCmd())

	return cmd
}

// newOverride validates a user-supplied override against tax.
func newOverride(tax *taxonomy.Taxonomy, orgID, keyword, slug string, confidence float64) (*model.VendorOverride, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, fmt.Errorf("%w: keyword must not be empty", common.ErrInvalidConfig)
	}
	node, ok := tax.BySlug(slug)
	if !ok {
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownCategory, slug)
	}
	if confidence <= 0 || confidence > 1 {
		return nil, fmt.Errorf("%w: confidence must be within (0,1]", common.ErrInvalidConfig)
	}
	return &model.VendorOverride{
		OrgID:        orgID,
		Keyword:      keyword,
		CategorySlug: node.Slug,
		Confidence:   confidence,
	}, nil
}

func vendorAddCmd() *cobra.Command {
	var (
		orgID      string
		confidence float64
	)

	cmd := &cobra.Command{
		Use:     "add <keyword> <category-slug>",
		Short:   "Add or replace a vendor override",
		Example: `  pnlcat vendor add --org acme "acme boxes" packaging_materials`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			override, err := newOverride(taxonomy.Ecommerce(), orgID, args[0], args[1], confidence)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.SaveVendorOverride(ctx, override); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%q → %s", override.Keyword, override.CategorySlug)))
			return nil
		},
	}

	cmd.Flags().StringVar(&orgID, "org", "", "organization ID")
	cmd.Flags().Float64Var(&confidence, "confidence", defaultOverrideConfidence, "confidence assigned to matches")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func vendorListCmd() *cobra.Command {
	var orgID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List vendor overrides",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			overrides, err := store.GetVendorOverrides(ctx, orgID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(overrides) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No vendor overrides for "+orgID))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("Keyword"),
				cli.TableHeaderStyle.Render("Category"),
				cli.TableHeaderStyle.Render("Confidence"))
			for _, o := range overrides {
				fmt.Fprintf(w, "%s\t%s\t%.2f\n", o.Keyword, o.CategorySlug, o.Confidence)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&orgID, "org", "", "organization ID")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}

func vendorDeleteCmd() *cobra.Command {
	var orgID string

	cmd := &cobra.Command{
		Use:   "delete <keyword>",
		Short: "Delete a vendor override",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteVendorOverride(ctx, orgID, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted override "+args[0]))
			return nil
		},
	}

	cmd.Flags().StringVar(&orgID, "org", "", "organization ID")
	_ = cmd.MarkFlagRequired("org")
	return cmd
}
