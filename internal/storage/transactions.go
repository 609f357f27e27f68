package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Veraticus/pnl-categorizer/internal/common"
	"github.com/Veraticus/pnl-categorizer/internal/model"
)

const transactionColumns = `id, org_id, date, amount_cents, currency, description, merchant_name, mcc,
	category_id, confidence, reviewed, needs_review, source, raw`

// SaveTransactions upserts imported transactions.
// Re-importing a transaction refreshes its provider fields but keeps any
// category, confidence or review state already recorded.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.NormalizedTransaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO transactions (
				id, org_id, date, amount_cents, currency, description,
				merchant_name, mcc, source, raw
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				org_id = excluded.org_id,
				date = excluded.date,
				amount_cents = excluded.amount_cents,
				currency = excluded.currency,
				description = excluded.description,
				merchant_name = excluded.merchant_name,
				mcc = excluded.mcc,
				source = excluded.source,
				raw = excluded.raw,
				updated_at = CURRENT_TIMESTAMP
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, txn := range transactions {
			currency := txn.Currency
			if currency == "" {
				currency = "USD"
			}
			var raw sql.NullString
			if len(txn.Raw) > 0 {
				raw = sql.NullString{String: string(txn.Raw), Valid: true}
			}
			_, err := stmt.ExecContext(ctx,
				txn.ID,
				txn.OrgID,
				txn.Date,
				txn.AmountCents,
				currency,
				txn.Description,
				nullString(txn.MerchantName),
				nullString(txn.MCC),
				txn.Source,
				raw,
			)
			if err != nil {
				return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
			}
		}
		return nil
	})
}

// GetTransaction returns a single transaction by ID.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, id string) (*model.NormalizedTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return getTransactionTx(ctx, s.db, id)
}

func getTransactionTx(ctx context.Context, q queryable, id string) (*model.NormalizedTransaction, error) {
	row := q.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", id, err)
	}
	return txn, nil
}

// GetUncategorizedTransactions returns an organization's transactions that have
// no category yet, oldest first. A limit of zero or less returns all of them.
func (s *SQLiteStorage) GetUncategorizedTransactions(ctx context.Context, orgID string, limit int) ([]model.NormalizedTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(orgID, "orgID"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = -1
	}

	return s.queryTransactions(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE org_id = ? AND category_id IS NULL
		ORDER BY date, id
		LIMIT ?
	`, orgID, limit)
}

// GetReviewQueue returns categorized transactions flagged for human review.
func (s *SQLiteStorage) GetReviewQueue(ctx context.Context, orgID string) ([]model.NormalizedTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(orgID, "orgID"); err != nil {
		return nil, err
	}

	return s.queryTransactions(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE org_id = ? AND needs_review = 1 AND reviewed = 0
		ORDER BY date, id
	`, orgID)
}

// OrgsWithUncategorized returns the IDs of organizations that still have
// uncategorized transactions.
func (s *SQLiteStorage) OrgsWithUncategorized(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT org_id FROM transactions WHERE category_id IS NULL ORDER BY org_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan organization ID: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ApplyCategorization records a categorization decision on the transaction
// and appends it to the history. Reviewed transactions are left untouched.
func (s *SQLiteStorage) ApplyCategorization(ctx context.Context, txnID string, result *model.CategorizationResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(txnID, "txnID"); err != nil {
		return err
	}
	if err := validateResult(result); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getTransactionTx(ctx, tx, txnID)
		if err != nil {
			return err
		}
		if current.Reviewed {
			return fmt.Errorf("transaction %s: %w", txnID, ErrAlreadyReviewed)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE transactions
			SET category_id = ?, confidence = ?, needs_review = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, result.CategoryID, result.Confidence, result.NeedsReview, txnID)
		if err != nil {
			return fmt.Errorf("failed to update transaction %s: %w", txnID, err)
		}

		return insertHistoryTx(ctx, tx, model.HistoryEntry{
			TransactionID:     txnID,
			CategoryID:        result.CategoryID,
			Confidence:        result.Confidence,
			Stage:             result.Stage,
			GuardrailsApplied: result.GuardrailsApplied,
			Violations:        result.Violations,
		})
	})
}

// MarkReviewed confirms a transaction's category. A non-empty categoryID
// replaces the current category first; otherwise the existing category is
// confirmed and must be present.
func (s *SQLiteStorage) MarkReviewed(ctx context.Context, txnID, categoryID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(txnID, "txnID"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getTransactionTx(ctx, tx, txnID)
		if err != nil {
			return err
		}
		if categoryID == "" {
			if current.CategoryID == nil {
				return fmt.Errorf("%w: %s has no category to confirm", ErrInvalidTransaction, txnID)
			}
			categoryID = *current.CategoryID
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE transactions
			SET category_id = ?, confidence = 1.0, reviewed = 1, needs_review = 0, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, categoryID, txnID)
		if err != nil {
			return fmt.Errorf("failed to mark transaction %s reviewed: %w", txnID, err)
		}

		return insertHistoryTx(ctx, tx, model.HistoryEntry{
			TransactionID: txnID,
			CategoryID:    categoryID,
			Confidence:    1.0,
			Stage:         model.StageReview,
		})
	})
}

func (s *SQLiteStorage) queryTransactions(ctx context.Context, query string, args ...any) ([]model.NormalizedTransaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.NormalizedTransaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *txn)
	}
	return transactions, rows.Err()
}

func scanTransaction(sc scanner) (*model.NormalizedTransaction, error) {
	var (
		txn        model.NormalizedTransaction
		merchant   sql.NullString
		mcc        sql.NullString
		categoryID sql.NullString
		confidence sql.NullFloat64
		raw        sql.NullString
	)
	err := sc.Scan(
		&txn.ID,
		&txn.OrgID,
		&txn.Date,
		&txn.AmountCents,
		&txn.Currency,
		&txn.Description,
		&merchant,
		&mcc,
		&categoryID,
		&confidence,
		&txn.Reviewed,
		&txn.NeedsReview,
		&txn.Source,
		&raw,
	)
	if err != nil {
		return nil, err
	}
	if merchant.Valid {
		txn.MerchantName = &merchant.String
	}
	if mcc.Valid {
		txn.MCC = &mcc.String
	}
	if categoryID.Valid {
		txn.CategoryID = &categoryID.String
	}
	if confidence.Valid {
		txn.Confidence = &confidence.Float64
	}
	if raw.Valid {
		txn.Raw = json.RawMessage(raw.String)
	}
	return &txn, nil
}
