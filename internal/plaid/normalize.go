// Package plaid converts Plaid transaction payloads into normalized transactions.
// It does not talk to the Plaid API.
package plaid

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/plaid/plaid-go/v20/plaid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/pnl-categorizer/internal/common"
	"github.com/Veraticus/pnl-categorizer/internal/model"
	"github.com/Veraticus/pnl-categorizer/internal/money"
)

// Normalize converts a Plaid transaction. Plaid reports money out as positive
// amounts; the sign is flipped so that outflows are negative. The original
// payload is kept in Raw.
func Normalize(orgID string, pt plaid.Transaction) (model.NormalizedTransaction, error) {
	if strings.TrimSpace(orgID) == "" {
		return model.NormalizedTransaction{}, fmt.Errorf("%w: missing organization ID", common.ErrInvalidTransaction)
	}
	if pt.GetTransactionId() == "" {
		return model.NormalizedTransaction{}, fmt.Errorf("%w: missing Plaid transaction ID", common.ErrInvalidTransaction)
	}

	date, err := time.Parse(time.DateOnly, pt.GetDate())
	if err != nil {
		return model.NormalizedTransaction{}, fmt.Errorf("%w: transaction %s has bad date %q", common.ErrInvalidTransaction, pt.GetTransactionId(), pt.GetDate())
	}

	raw, err := json.Marshal(pt)
	if err != nil {
		return model.NormalizedTransaction{}, fmt.Errorf("failed to encode raw payload: %w", err)
	}

	description := pt.GetOriginalDescription()
	if strings.TrimSpace(description) == "" {
		description = pt.GetName()
	}

	return model.NormalizedTransaction{
		ID:           pt.GetTransactionId(),
		OrgID:        orgID,
		Date:         date,
		AmountCents:  money.ToCentsString(decimal.NewFromFloat(pt.GetAmount()).Neg()),
		Currency:     currency(pt),
		Description:  strings.TrimSpace(description),
		MerchantName: model.StringPtr(strings.TrimSpace(pt.GetMerchantName())),
		Source:       model.SourcePlaid,
		Raw:          raw,
	}, nil
}

func currency(pt plaid.Transaction) string {
	if c := pt.GetIsoCurrencyCode(); c != "" {
		return strings.ToUpper(c)
	}
	if c := pt.GetUnofficialCurrencyCode(); c != "" {
		return strings.ToUpper(c)
	}
	return "USD"
}

// NormalizeAll converts posted transactions and skips pending ones, whose IDs
// change once they post. Invalid transactions abort the conversion.
func NormalizeAll(orgID string, transactions []plaid.Transaction) ([]model.NormalizedTransaction, int, error) {
	normalized := make([]model.NormalizedTransaction, 0, len(transactions))
	skipped := 0
	for i, pt := range transactions {
		if pt.GetPending() {
			skipped++
			continue
		}
		txn, err := Normalize(orgID, pt)
		if err != nil {
			return nil, skipped, fmt.Errorf("transaction at index %d: %w", i, err)
		}
		normalized = append(normalized, txn)
	}
	return normalized, skipped, nil
}

type transactionsEnvelope struct {
	Transactions []plaid.Transaction `json:"transactions"`
	Added        []plaid.Transaction `json:"added"`
	Modified     []plaid.Transaction `json:"modified"`
}

// DecodeTransactions reads a saved Plaid payload: a bare transaction array, a
// /transactions/get response or a /transactions/sync response.
func DecodeTransactions(r io.Reader) ([]plaid.Transaction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read Plaid payload: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty Plaid payload", common.ErrInvalidTransaction)
	}

	if data[0] == '[' {
		var list []plaid.Transaction
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("failed to decode Plaid transactions: %w", err)
		}
		return list, nil
	}

	var env transactionsEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode Plaid response: %w", err)
	}
	list := make([]plaid.Transaction, 0, len(env.Transactions)+len(env.Added)+len(env.Modified))
	list = append(list, env.Transactions...)
	list = append(list, env.Added...)
	list = append(list, env.Modified...)
	return list, nil
}
