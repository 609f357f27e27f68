package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/pnl-categorizer/internal/common"
	"github.com/Veraticus/pnl-categorizer/internal/model"
)

// SaveOrganization creates or updates an organization and its categorization overrides.
func (s *SQLiteStorage) SaveOrganization(ctx context.Context, org *model.Organization) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateOrganization(org); err != nil {
		return err
	}

	industry := strings.TrimSpace(org.Industry)
	if industry == "" {
		industry = model.IndustryEcommerce
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name, industry, auto_apply_threshold, hybrid_threshold, use_guardrails)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			industry = excluded.industry,
			auto_apply_threshold = excluded.auto_apply_threshold,
			hybrid_threshold = excluded.hybrid_threshold,
			use_guardrails = excluded.use_guardrails
	`, org.ID, org.Name, industry,
		nullFloat(org.AutoApplyThreshold),
		nullFloat(org.HybridThreshold),
		nullBool(org.UseGuardrails),
	)
	if err != nil {
		return fmt.Errorf("failed to save organization %s: %w", org.ID, err)
	}
	return nil
}

// GetOrganization returns the organization with the given ID.
// A missing organization yields an error wrapping common.ErrNotFound.
func (s *SQLiteStorage) GetOrganization(ctx context.Context, orgID string) (*model.Organization, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(orgID, "orgID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, industry, auto_apply_threshold, hybrid_threshold, use_guardrails, created_at
		FROM organizations WHERE id = ?
	`, orgID)

	org, err := scanOrganization(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("organization %s: %w", orgID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization %s: %w", orgID, err)
	}
	return org, nil
}

// ListOrganizations returns all organizations ordered by ID.
func (s *SQLiteStorage) ListOrganizations(ctx context.Context) ([]model.Organization, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, industry, auto_apply_threshold, hybrid_threshold, use_guardrails, created_at
		FROM organizations ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var orgs []model.Organization
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, *org)
	}
	return orgs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrganization(sc scanner) (*model.Organization, error) {
	var (
		org       model.Organization
		autoApply sql.NullFloat64
		hybrid    sql.NullFloat64
		guard     sql.NullBool
		createdAt sql.NullTime
	)
	if err := sc.Scan(&org.ID, &org.Name, &org.Industry, &autoApply, &hybrid, &guard, &createdAt); err != nil {
		return nil, err
	}
	if autoApply.Valid {
		org.AutoApplyThreshold = &autoApply.Float64
	}
	if hybrid.Valid {
		org.HybridThreshold = &hybrid.Float64
	}
	if guard.Valid {
		org.UseGuardrails = &guard.Bool
	}
	if createdAt.Valid {
		org.CreatedAt = createdAt.Time
	}
	return &org, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
