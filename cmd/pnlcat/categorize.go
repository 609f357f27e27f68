package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Veraticus/pnl-categorizer/internal/categorize"
	"github.com/Veraticus/pnl-categorizer/internal/cli"
	"github.com/Veraticus/pnl-categorizer/internal/common"
	"github.com/Veraticus/pnl-categorizer/internal/model"
	"github.com/Veraticus/pnl-categorizer/internal/money"
	"github.com/Veraticus/pnl-categorizer/internal/pattern"
)

type transactionFlags struct {
	id          string
	orgID       string
	date        string
	amount      string
	amountCents string
	currency    string
	description string
	merchant    string
	mcc         string
}

func (f transactionFlags) transaction(now time.Time) (model.NormalizedTransaction, error) {
	if strings.TrimSpace(f.orgID) == "" {
		return model.NormalizedTransaction{}, fmt.Errorf("%w: --org is required", common.ErrInvalidTransaction)
	}

	date := now.UTC().Truncate(24 * time.Hour)
	if f.date != "" {
		parsed, err := time.Parse(time.DateOnly, f.date)
		if err != nil {
			return model.NormalizedTransaction{}, fmt.Errorf("%w: --date must be YYYY-MM-DD", common.ErrInvalidTransaction)
		}
		date = parsed
	}

	cents := strings.TrimSpace(f.amountCents)
	if cents == "" && f.amount != "" {
		var err error
		if cents, err = money.FromMajorString(f.amount); err != nil {
			return model.NormalizedTransaction{}, fmt.Errorf("%w: %w", common.ErrInvalidTransaction, err)
		}
	}
	if cents == "" {
		return model.NormalizedTransaction{}, fmt.Errorf("%w: --amount or --amount-cents is required", common.ErrInvalidTransaction)
	}

	id := f.id
	if id == "" {
		id = uuid.NewString()
	}
	currency := strings.ToUpper(f.currency)
	if currency == "" {
		currency = "USD"
	}

	return model.NormalizedTransaction{
		ID:           id,
		OrgID:        f.orgID,
		Date:         date,
		AmountCents:  cents,
		Currency:     currency,
		Description:  f.description,
		MerchantName: model.StringPtr(f.merchant),
		MCC:          model.StringPtr(f.mcc),
		Source:       model.SourceManual,
	}, nil
}

func categorizeCmd() *cobra.Command {
	var (
		flags  transactionFlags
		save   bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Categorize a single transaction",
		Long: `Categorize one transaction described on the command line. The organization's
thresholds and vendor overrides are read from the database. With --save the
transaction and its category are stored.`,
		Example: `  pnlcat categorize --org acme --amount -49.99 --description "GITHUB INC"
  pnlcat categorize --org acme --amount-cents 120000 --description "SHOPIFY PAYOUT" --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			txn, err := flags.transaction(time.Now())
			if err != nil {
				return err
			}

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

			overrides, err := store.GetVendorOverrides(ctx, txn.OrgID)
			if err != nil {
				return err
			}

			opts := []categorize.Option{categorize.WithMatcher(pattern.NewDefaultMatcher(overrides))}
			if p.scorer != nil {
				opts = append(opts, categorize.WithScorer(p.scorer))
			}
			categorizer := categorize.New(p.tax, p.guardrails, opts...)

			result, err := categorizer.Categorize(ctx, txn, resolver.Get(ctx, txn.OrgID))
			if err != nil {
				return err
			}

			if save {
				if err := store.SaveTransactions(ctx, []model.NormalizedTransaction{txn}); err != nil {
					return err
				}
				if err := store.ApplyCategorization(ctx, txn.ID, &result); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			fmt.Fprintln(out, cli.FormatResult(result))
			if result.Rationale != "" {
				fmt.Fprintln(out, cli.SubtleStyle.Render("  "+result.Rationale))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.id, "id", "", "transaction ID (generated when empty)")
	cmd.Flags().StringVar(&flags.orgID, "org", "", "organization ID")
	cmd.Flags().StringVar(&flags.date, "date", "", "posting date as YYYY-MM-DD (default: today)")
	cmd.Flags().StringVar(&flags.amount, "amount", "", "signed amount in major units, negative for money out")
	cmd.Flags().StringVar(&flags.amountCents, "amount-cents", "", "signed amount in minor units")
	cmd.Flags().StringVar(&flags.currency, "currency", "USD", "ISO currency code")
	cmd.Flags().StringVar(&flags.description, "description", "", "bank description")
	cmd.Flags().StringVar(&flags.merchant, "merchant", "", "merchant name")
	cmd.Flags().StringVar(&flags.mcc, "mcc", "", "merchant category code")
	cmd.Flags().BoolVar(&save, "save", false, "store the transaction and its category")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("org")

	return cmd
}
