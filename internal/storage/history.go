package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/Veraticus/pnl-categorizer/internal/model"
)

// GetCategorizationHistory returns every recorded decision for a transaction, oldest first.
func (s *SQLiteStorage) GetCategorizationHistory(ctx context.Context, txnID string) ([]model.HistoryEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(txnID, "txnID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, category_id, confidence, stage, guardrails_applied, violations, created_at
		FROM categorization_history
		WHERE transaction_id = ?
		ORDER BY id
	`, txnID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.HistoryEntry
	for rows.Next() {
		var (
			entry      model.HistoryEntry
			stage      string
			guardrails string
			violations string
			createdAt  sql.NullTime
		)
		if err := rows.Scan(&entry.ID, &entry.TransactionID, &entry.CategoryID, &entry.Confidence,
			&stage, &guardrails, &violations, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entry.Stage = model.Stage(stage)
		if err := json.Unmarshal([]byte(guardrails), &entry.GuardrailsApplied); err != nil {
			return nil, fmt.Errorf("failed to decode guardrails for entry %d: %w", entry.ID, err)
		}
		if err := json.Unmarshal([]byte(violations), &entry.Violations); err != nil {
			return nil, fmt.Errorf("failed to decode violations for entry %d: %w", entry.ID, err)
		}
		if createdAt.Valid {
			entry.CreatedAt = createdAt.Time
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func insertHistoryTx(ctx context.Context, q queryable, entry model.HistoryEntry) error {
	guardrails, err := marshalList(entry.GuardrailsApplied)
	if err != nil {
		return fmt.Errorf("failed to encode guardrails: %w", err)
	}
	violations, err := marshalList(entry.Violations)
	if err != nil {
		return fmt.Errorf("failed to encode violations: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO categorization_history (transaction_id, category_id, confidence, stage, guardrails_applied, violations)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.TransactionID, entry.CategoryID, entry.Confidence, string(entry.Stage), guardrails, violations)
	if err != nil {
		return fmt.Errorf("failed to insert history for %s: %w", entry.TransactionID, err)
	}
	return nil
}

func marshalList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
