package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Veraticus/pnl-categorizer/internal/common"
	"github.com/Veraticus/pnl-categorizer/internal/model"
)

// SaveVendorOverride creates or replaces an organization's keyword override.
// The keyword is stored lowercased and trimmed; ID is set on the passed value.
func (s *SQLiteStorage) SaveVendorOverride(ctx context.Context, override *model.VendorOverride) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateOverride(override); err != nil {
		return err
	}

	keyword := strings.ToLower(strings.TrimSpace(override.Keyword))

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO vendor_overrides (org_id, keyword, category_slug, confidence)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(org_id, keyword) DO UPDATE SET
				category_slug = excluded.category_slug,
				confidence = excluded.confidence
		`, override.OrgID, keyword, override.CategorySlug, override.Confidence)
		if err != nil {
			return fmt.Errorf("failed to save vendor override %q: %w", keyword, err)
		}

		var id int64
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM vendor_overrides WHERE org_id = ? AND keyword = ?`,
			override.OrgID, keyword).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to read vendor override ID: %w", err)
		}
		override.ID = id
		override.Keyword = keyword
		return nil
	})
}

// GetVendorOverrides returns an organization's overrides in creation order.
func (s *SQLiteStorage) GetVendorOverrides(ctx context.Context, orgID string) ([]model.VendorOverride, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(orgID, "orgID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org_id, keyword, category_slug, confidence, created_at
		FROM vendor_overrides
		WHERE org_id = ?
		ORDER BY id
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query vendor overrides: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var overrides []model.VendorOverride
	for rows.Next() {
		var (
			o         model.VendorOverride
			createdAt sql.NullTime
		)
		if err := rows.Scan(&o.ID, &o.OrgID, &o.Keyword, &o.CategorySlug, &o.Confidence, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan vendor override: %w", err)
		}
		if createdAt.Valid {
			o.CreatedAt = createdAt.Time
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// DeleteVendorOverride removes an organization's override for a keyword.
func (s *SQLiteStorage) DeleteVendorOverride(ctx context.Context, orgID, keyword string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(orgID, "orgID"); err != nil {
		return err
	}
	if err := validateString(keyword, "keyword"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM vendor_overrides WHERE org_id = ? AND keyword = ?`,
		orgID, strings.ToLower(strings.TrimSpace(keyword)))
	if err != nil {
		return fmt.Errorf("failed to delete vendor override: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("vendor override %q: %w", keyword, common.ErrNotFound)
	}
	return nil
}
