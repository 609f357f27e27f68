package orgconfig

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/pnl-categorizer/internal/common"
	"github.com/Veraticus/pnl-categorizer/internal/model"
)

type mapLookup struct {
	err  error
	orgs map[string]*model.Organization
}

func (m mapLookup) GetOrganization(_ context.Context, orgID string) (*model.Organization, error) {
	if m.err != nil {
		return nil, m.err
	}
	org, ok := m.orgs[orgID]
	if !ok {
		return nil, fmt.Errorf("organization %s: %w", orgID, common.ErrNotFound)
	}
	return org, nil
}

func floatPtr(f float64) *float64 { return &f }

func boolPtr(b bool) *bool { return &b }

func TestGetCategorizationConfig(t *testing.T) {
	ecommerce := model.CategorizationConfig{
		Industry:           model.IndustryEcommerce,
		AutoApplyThreshold: 0.95,
		HybridThreshold:    0.85,
		UseGuardrails:      true,
	}

	tests := []struct {
		name   string
		lookup Lookup
		want   model.CategorizationConfig
	}{
		{
			name:   "unsupported industry gets ecommerce defaults",
			lookup: mapLookup{orgs: map[string]*model.Organization{"org-1": {ID: "org-1", Industry: "salon"}}},
			want:   ecommerce,
		},
		{
			name:   "ecommerce org",
			lookup: mapLookup{orgs: map[string]*model.Organization{"org-1": {ID: "org-1", Industry: "ecommerce"}}},
			want:   ecommerce,
		},
		{
			name:   "missing org",
			lookup: mapLookup{orgs: map[string]*model.Organization{}},
			want:   ecommerce,
		},
		{
			name:   "lookup failure",
			lookup: mapLookup{err: errors.New("connection reset")},
			want:   ecommerce,
		},
		{
			name: "valid overrides",
			lookup: mapLookup{orgs: map[string]*model.Organization{"org-1": {
				ID:                 "org-1",
				Industry:           "ecommerce",
				AutoApplyThreshold: floatPtr(0.9),
				HybridThreshold:    floatPtr(0.7),
				UseGuardrails:      boolPtr(false),
			}}},
			want: model.CategorizationConfig{
				Industry:           model.IndustryEcommerce,
				AutoApplyThreshold: 0.9,
				HybridThreshold:    0.7,
				UseGuardrails:      false,
			},
		},
		{
			name: "malformed overrides are discarded",
			lookup: mapLookup{orgs: map[string]*model.Organization{"org-1": {
				ID:                 "org-1",
				Industry:           "salon",
				AutoApplyThreshold: floatPtr(1.5),
				HybridThreshold:    floatPtr(math.NaN()),
			}}},
			want: ecommerce,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetCategorizationConfig(context.Background(), tt.lookup, "org-1")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetCategorizationConfig_NilLookup(t *testing.T) {
	got := GetCategorizationConfig(context.Background(), nil, "org-1")
	assert.InDelta(t, 0.95, got.AutoApplyThreshold, 1e-12)
}

func TestNewResolver_InvalidDefaults(t *testing.T) {
	r := NewResolver(nil, Defaults{AutoApplyThreshold: 2, HybridThreshold: 0.5}, nil)
	assert.Equal(t, EcommerceDefaults(), r.defaults)

	tuned := Defaults{AutoApplyThreshold: 0.9, HybridThreshold: 0.6, UseGuardrails: true}
	r = NewResolver(nil, tuned, nil)
	got := r.Get(context.Background(), "org-1")
	assert.InDelta(t, 0.9, got.AutoApplyThreshold, 1e-12)
	assert.InDelta(t, 0.6, got.HybridThreshold, 1e-12)
}
