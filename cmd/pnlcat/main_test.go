package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	plaidapi "github.com/plaid/plaid-go/v20/plaid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/pnl-categorizer/internal/common"
	"github.com/Veraticus/pnl-categorizer/internal/taxonomy"
)

func TestTransactionFlags(t *testing.T) {
	now := time.Date(2024, 3, 20, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		wantErr    error
		name       string
		wantAmount string
		wantDate   string
		flags      transactionFlags
	}{
		{
			name:       "major units",
			flags:      transactionFlags{orgID: "acme", amount: "-49.99", date: "2024-03-15"},
			wantAmount: "-4999",
			wantDate:   "2024-03-15",
		},
		{
			name:       "cents win over major units",
			flags:      transactionFlags{orgID: "acme", amount: "1", amountCents: "250"},
			wantAmount: "250",
			wantDate:   "2024-03-20",
		},
		{name: "missing org", flags: transactionFlags{amount: "1"}, wantErr: common.ErrInvalidTransaction},
		{name: "missing amount", flags: transactionFlags{orgID: "acme"}, wantErr: common.ErrInvalidTransaction},
		{name: "bad date", flags: transactionFlags{orgID: "acme", amount: "1", date: "3/15/24"}, wantErr: common.ErrInvalidTransaction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn, err := tt.flags.transaction(now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAmount, txn.AmountCents)
			assert.Equal(t, tt.wantDate, txn.Date.Format(time.DateOnly))
			assert.Equal(t, "USD", txn.Currency)
			assert.NotEmpty(t, txn.ID)
		})
	}
}

func TestNewOverride(t *testing.T) {
	tax := taxonomy.Ecommerce()

	o, err := newOverride(tax, "acme", "Acme Boxes", "packaging_materials", 0.97)
	require.NoError(t, err)
	assert.Equal(t, "packaging_materials", o.CategorySlug)
	assert.Equal(t, "acme", o.OrgID)

	_, err = newOverride(tax, "acme", "x", "not_a_category", 0.9)
	assert.ErrorIs(t, err, common.ErrUnknownCategory)

	_, err = newOverride(tax, "acme", " ", "packaging_materials", 0.9)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	_, err = newOverride(tax, "acme", "x", "packaging_materials", 1.5)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestValidateTaxonomy(t *testing.T) {
	table, err := validateTaxonomy(taxonomy.Ecommerce())
	require.NoError(t, err)
	assert.NotNil(t, table)
}

func TestCollectOFXFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.ofx", "b.QFX", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}

	files, err := collectOFXFiles([]string{dir})
	require.NoError(t, err)
	assert.Len(t, files, 2)

	single := filepath.Join(dir, "notes.txt")
	files, err = collectOFXFiles([]string{single})
	require.NoError(t, err)
	assert.Equal(t, []string{single}, files)

	_, err = collectOFXFiles([]string{t.TempDir()})
	assert.Error(t, err)

	_, err = collectOFXFiles([]string{filepath.Join(dir, "missing.ofx")})
	assert.Error(t, err)
}

func useTempDatabase(t *testing.T) {
	t.Helper()
	viper.Set("database.path", filepath.Join(t.TempDir(), "pnlcat.db"))
	t.Setenv("OPENAI_API_KEY", "")
	t.Cleanup(func() { viper.Set("database.path", "") })
}

func run(t *testing.T, cmd *cobra.Command, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.ExecuteContext(context.Background()), out.String())
	return out.String()
}

func writePlaidFile(t *testing.T) string {
	t.Helper()

	payout := plaidapi.Transaction{}
	payout.SetTransactionId("plaid-1")
	payout.SetAccountId("acct-1")
	payout.SetAmount(-1200)
	payout.SetDate("2024-03-15")
	payout.SetName("SHOPIFY PAYOUT 5521")
	payout.SetIsoCurrencyCode("USD")
	payout.SetPending(false)

	mystery := plaidapi.Transaction{}
	mystery.SetTransactionId("plaid-2")
	mystery.SetAccountId("acct-1")
	mystery.SetAmount(12.34)
	mystery.SetDate("2024-03-16")
	mystery.SetName("XQZ 4411 POS")
	mystery.SetIsoCurrencyCode("USD")
	mystery.SetPending(false)

	data, err := json.Marshal(map[string]any{"added": []plaidapi.Transaction{payout, mystery}})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "plaid.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestCommands_ImportBatchReview(t *testing.T) {
	useTempDatabase(t)

	out := run(t, orgSetCmd(), "acme", "--name", "Acme Goods", "--auto-apply-threshold", "0.9")
	assert.Contains(t, out, "Saved organization acme")

	out = run(t, orgShowCmd(), "acme")
	assert.Contains(t, out, "Acme Goods")
	assert.Contains(t, out, "0.90")

	out = run(t, vendorAddCmd(), "--org", "acme", "acme boxes", "packaging_materials")
	assert.Contains(t, out, "packaging_materials")
	out = run(t, vendorListCmd(), "--org", "acme")
	assert.Contains(t, out, "acme boxes")

	out = run(t, importPlaidCmd(), "--org", "acme", writePlaidFile(t))
	assert.Contains(t, out, "Imported 2 transactions")

	out = run(t, batchCmd(), "--no-progress", "--org", "acme")
	assert.Contains(t, out, "Processed: 2")

	out = run(t, reviewCmd(), "--org", "acme")
	assert.Contains(t, out, "plaid-2")
	assert.NotContains(t, out, "plaid-1")

	out = run(t, reviewCmd(), "plaid-2", "--category", "office_supplies")
	assert.Contains(t, out, "Marked plaid-2 as reviewed")

	out = run(t, reviewCmd(), "--org", "acme")
	assert.Contains(t, out, "Nothing to review")
}

func TestCommands_MigrateStatus(t *testing.T) {
	useTempDatabase(t)

	out := run(t, migrateCmd(), "--status")
	assert.Contains(t, out, "Current version: 0")
	assert.Contains(t, out, "Migrations pending")

	run(t, migrateCmd())

	out = run(t, migrateCmd(), "--status")
	assert.NotContains(t, out, "Migrations pending")
}

func TestCommands_Taxonomy(t *testing.T) {
	out := run(t, taxonomyListCmd(), "--type", "clearing")
	assert.Contains(t, out, "stripe_clearing")
	assert.NotContains(t, out, "dtc_sales")

	out = run(t, taxonomyValidateCmd())
	assert.Contains(t, out, "consistent")
}
