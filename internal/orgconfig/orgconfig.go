// Package orgconfig resolves the categorization settings of an organization.
package orgconfig

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/pnl-categorizer/internal/common"
	"github.com/Veraticus/pnl-categorizer/internal/model"
	"github.com/Veraticus/pnl-categorizer/internal/taxonomy"
)

// Lookup returns the stored settings of an organization.
type Lookup interface {
	GetOrganization(ctx context.Context, orgID string) (*model.Organization, error)
}

// Defaults are the settings used when an organization does not override them.
type Defaults struct {
	AutoApplyThreshold float64
	HybridThreshold    float64
	UseGuardrails      bool
}

// EcommerceDefaults returns the ecommerce defaults, which every unsupported industry also gets.
func EcommerceDefaults() Defaults {
	return Defaults{
		AutoApplyThreshold: 0.95,
		HybridThreshold:    0.85,
		UseGuardrails:      true,
	}
}

// Validate checks that both thresholds are within [0,1].
func (d Defaults) Validate() error {
	if !validThreshold(d.AutoApplyThreshold) {
		return fmt.Errorf("%w: auto apply threshold %v outside [0,1]", common.ErrInvalidConfig, d.AutoApplyThreshold)
	}
	if !validThreshold(d.HybridThreshold) {
		return fmt.Errorf("%w: hybrid threshold %v outside [0,1]", common.ErrInvalidConfig, d.HybridThreshold)
	}
	return nil
}

// Resolver builds CategorizationConfig values. Nothing it does is fatal: lookup failures and
// malformed overrides fall back to the defaults with a warning.
type Resolver struct {
	lookup   Lookup
	logger   *slog.Logger
	defaults Defaults
}

// NewResolver creates a resolver. Invalid defaults are replaced by EcommerceDefaults.
func NewResolver(lookup Lookup, defaults Defaults, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	logger = common.ComponentLogger(logger, "orgconfig")
	if err := defaults.Validate(); err != nil {
		logger.Warn("ignoring invalid categorization defaults", "error", err)
		defaults = EcommerceDefaults()
	}
	return &Resolver{lookup: lookup, defaults: defaults, logger: logger}
}

// GetCategorizationConfig resolves orgID with the ecommerce defaults.
func GetCategorizationConfig(ctx context.Context, lookup Lookup, orgID string) model.CategorizationConfig {
	return NewResolver(lookup, EcommerceDefaults(), nil).Get(ctx, orgID)
}

// Get resolves the configuration of orgID.
func (r *Resolver) Get(ctx context.Context, orgID string) model.CategorizationConfig {
	cfg := model.CategorizationConfig{
		Industry:           model.IndustryEcommerce,
		AutoApplyThreshold: r.defaults.AutoApplyThreshold,
		HybridThreshold:    r.defaults.HybridThreshold,
		UseGuardrails:      r.defaults.UseGuardrails,
	}

	if r.lookup == nil {
		return cfg
	}

	org, err := r.lookup.GetOrganization(ctx, orgID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			r.logger.Info("organization not found, using defaults", "org_id", orgID)
		} else {
			r.logger.Warn("organization lookup failed, using defaults", "org_id", orgID, "error", err)
		}
		return cfg
	}
	if org == nil {
		return cfg
	}

	if !taxonomy.IsSupportedIndustry(org.Industry) {
		r.logger.Debug("unsupported industry, using ecommerce defaults", "org_id", orgID, "industry", org.Industry)
	}

	if org.AutoApplyThreshold != nil {
		if validThreshold(*org.AutoApplyThreshold) {
			cfg.AutoApplyThreshold = *org.AutoApplyThreshold
		} else {
			r.logger.Warn("discarding malformed auto apply threshold", "org_id", orgID, "value", *org.AutoApplyThreshold)
		}
	}
	if org.HybridThreshold != nil {
		if validThreshold(*org.HybridThreshold) {
			cfg.HybridThreshold = *org.HybridThreshold
		} else {
			r.logger.Warn("discarding malformed hybrid threshold", "org_id", orgID, "value", *org.HybridThreshold)
		}
	}
	if org.UseGuardrails != nil {
		cfg.UseGuardrails = *org.UseGuardrails
	}

	return cfg
}

func validThreshold(v float64) bool {
	return v >= 0 && v <= 1
}
