package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Veraticus/pnl-categorizer/internal/cli"
	"github.com/Veraticus/pnl-categorizer/internal/common"
	"github.com/Veraticus/pnl-categorizer/internal/money"
	"github.com/Veraticus/pnl-categorizer/internal/taxonomy"
)

func reviewCmd() *cobra.Command {
	var (
		orgID    string
		category string
	)

	cmd := &cobra.Command{
		Use:   "review [transaction-id]",
		Short: "List or resolve transactions that need review",
		Long: `Without arguments, list the review queue of an organization. With a
transaction ID, confirm its current category or, with --category, replace it.
Reviewed transactions are never recategorized automatically.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tax := taxonomy.Ecommerce()

			categoryID := ""
			if category != "" {
				node, ok := tax.BySlug(category)
				if !ok {
					return fmt.Errorf("%w: %q", common.ErrUnknownCategory, category)
				}
				categoryID = node.ID
			}

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			out := cmd.OutOrStdout()

			if len(args) == 1 {
				if err := store.MarkReviewed(ctx, args[0], categoryID); err != nil {
					return err
				}
				fmt.Fprintln(out, cli.FormatSuccess("Marked "+args[0]+" as reviewed"))
				return nil
			}

			if orgID == "" {
				return fmt.Errorf("%w: --org is required to list the review queue", common.ErrInvalidConfig)
			}
			queue, err := store.GetReviewQueue(ctx, orgID)
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				fmt.Fprintln(out, cli.FormatSuccess("Nothing to review"))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				cli.TableHeaderStyle.Render("ID"),
				cli.TableHeaderStyle.Render("Date"),
				cli.TableHeaderStyle.Render("Amount"),
				cli.TableHeaderStyle.Render("Description"),
				cli.TableHeaderStyle.Render("Category"),
				cli.TableHeaderStyle.Render("Confidence"))
			for _, txn := range queue {
				slug := "-"
				if txn.CategoryID != nil {
					if node, ok := tax.ByID(*txn.CategoryID); ok {
						slug = node.Slug
					}
				}
				confidence := "-"
				if txn.Confidence != nil {
					confidence = fmt.Sprintf("%.2f", *txn.Confidence)
				}
				amount, err := money.FormatCents(txn.AmountCents)
				if err != nil {
					amount = txn.AmountCents
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					txn.ID, txn.Date.Format("2006-01-02"), amount, txn.Description, slug, confidence)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&orgID, "org", "", "organization whose review queue to list")
	cmd.Flags().StringVar(&category, "category", "", "category slug to assign instead of confirming")
	return cmd
}
