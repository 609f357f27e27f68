package plaid

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/plaid/plaid-go/v20/plaid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/pnl-categorizer/internal/common"
	"github.com/Veraticus/pnl-categorizer/internal/model"
)

func plaidTxn(id string, amount float64, name string) plaid.Transaction {
	var pt plaid.Transaction
	pt.SetTransactionId(id)
	pt.SetAccountId("acct-1")
	pt.SetAmount(amount)
	pt.SetDate("2024-03-15")
	pt.SetName(name)
	pt.SetIsoCurrencyCode("USD")
	pt.SetPending(false)
	return pt
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name       string
		amount     float64
		wantAmount string
	}{
		{name: "outflow becomes negative", amount: 25.5, wantAmount: "-2550"},
		{name: "inflow becomes positive", amount: -1200, wantAmount: "120000"},
		{name: "rounds to cents", amount: 10.005, wantAmount: "-1001"},
		{name: "zero", amount: 0, wantAmount: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pt := plaidTxn("txn-1", tt.amount, "SHOPIFY* 1234")
			got, err := Normalize("org-1", pt)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAmount, got.AmountCents)
		})
	}
}

func TestNormalize_Fields(t *testing.T) {
	pt := plaidTxn("txn-1", 42.10, "GUSTO PAYROLL")
	pt.SetMerchantName(" Gusto ")
	pt.SetOriginalDescription("GUSTO PAYROLL 031524 XXXX")

	got, err := Normalize("org-1", pt)
	require.NoError(t, err)

	assert.Equal(t, "txn-1", got.ID)
	assert.Equal(t, "org-1", got.OrgID)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), got.Date)
	assert.Equal(t, "USD", got.Currency)
	assert.Equal(t, "GUSTO PAYROLL 031524 XXXX", got.Description)
	assert.Equal(t, "Gusto", got.Merchant())
	assert.Nil(t, got.MCC)
	assert.Equal(t, model.SourcePlaid, got.Source)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(got.Raw, &raw))
	assert.Equal(t, "txn-1", raw["transaction_id"])
	assert.InDelta(t, 42.10, raw["amount"], 1e-9)
}

func TestNormalize_DescriptionFallbackAndCurrency(t *testing.T) {
	var pt plaid.Transaction
	pt.SetTransactionId("txn-2")
	pt.SetAmount(5)
	pt.SetDate("2024-03-16")
	pt.SetName("UPS STORE")
	pt.SetUnofficialCurrencyCode("btc")

	got, err := Normalize("org-1", pt)
	require.NoError(t, err)
	assert.Equal(t, "UPS STORE", got.Description)
	assert.Equal(t, "BTC", got.Currency)
	assert.Nil(t, got.MerchantName)
}

func TestNormalize_Invalid(t *testing.T) {
	badDate := plaidTxn("txn-1", 1, "X")
	badDate.SetDate("03/15/2024")

	tests := []struct {
		name  string
		orgID string
		txn   plaid.Transaction
	}{
		{name: "missing org", orgID: "", txn: plaidTxn("txn-1", 1, "X")},
		{name: "missing id", orgID: "org-1", txn: plaidTxn("", 1, "X")},
		{name: "bad date", orgID: "org-1", txn: badDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.orgID, tt.txn)
			assert.ErrorIs(t, err, common.ErrInvalidTransaction)
		})
	}
}

func TestNormalizeAll_SkipsPending(t *testing.T) {
	pending := plaidTxn("p1", 3, "PENDING CHARGE")
	pending.SetPending(true)

	got, skipped, err := NormalizeAll("org-1", []plaid.Transaction{
		plaidTxn("a", 1, "A"),
		pending,
		plaidTxn("b", 2, "B"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	_, _, err = NormalizeAll("org-1", []plaid.Transaction{plaidTxn("", 1, "X")})
	assert.ErrorIs(t, err, common.ErrInvalidTransaction)
}

func TestDecodeTransactions(t *testing.T) {
	list := []plaid.Transaction{plaidTxn("a", 1, "A"), plaidTxn("b", 2, "B")}
	arrayJSON, err := json.Marshal(list)
	require.NoError(t, err)

	t.Run("bare array", func(t *testing.T) {
		got, err := DecodeTransactions(bytes.NewReader(arrayJSON))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "b", got[1].GetTransactionId())
	})

	t.Run("get response", func(t *testing.T) {
		payload := `{"transactions": ` + string(arrayJSON) + `, "total_transactions": 2}`
		got, err := DecodeTransactions(strings.NewReader(payload))
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("sync response", func(t *testing.T) {
		payload := `{"added": ` + string(arrayJSON) + `, "modified": [], "removed": [], "has_more": false}`
		got, err := DecodeTransactions(strings.NewReader(payload))
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := DecodeTransactions(strings.NewReader("  "))
		assert.ErrorIs(t, err, common.ErrInvalidTransaction)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := DecodeTransactions(strings.NewReader("{not json"))
		assert.Error(t, err)
	})
}
