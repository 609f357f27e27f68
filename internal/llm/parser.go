package llm

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/pnl-categorizer/internal/model"
)

type categorizationPayload struct {
	CategorySlug *string  `json:"category_slug"`
	Confidence   *float64 `json:"confidence"`
	Rationale    *string  `json:"rationale"`
}

// ParseCategorization parses a strict {category_slug, confidence, rationale} object.
// Extra or missing fields, a non-numeric or out-of-range confidence, trailing data and slugs
// outside allowed are rejected.
func ParseCategorization(content string, allowed map[string]bool) (model.Pass2Score, error) {
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(content)))
	dec.DisallowUnknownFields()

	var payload categorizationPayload
	if err := dec.Decode(&payload); err != nil {
		return model.Pass2Score{}, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return model.Pass2Score{}, fmt.Errorf("%w: trailing data after JSON object", ErrMalformedResponse)
	}

	switch {
	case payload.CategorySlug == nil:
		return model.Pass2Score{}, fmt.Errorf("%w: missing category_slug", ErrMalformedResponse)
	case payload.Confidence == nil:
		return model.Pass2Score{}, fmt.Errorf("%w: missing confidence", ErrMalformedResponse)
	case payload.Rationale == nil:
		return model.Pass2Score{}, fmt.Errorf("%w: missing rationale", ErrMalformedResponse)
	}

	confidence := *payload.Confidence
	if confidence < 0 || confidence > 1 {
		return model.Pass2Score{}, fmt.Errorf("%w: confidence %v outside [0,1]", ErrMalformedResponse, confidence)
	}

	slug := strings.TrimSpace(*payload.CategorySlug)
	if !allowed[slug] {
		return model.Pass2Score{}, fmt.Errorf("%w: %q", ErrInvalidCategory, slug)
	}

	return model.Pass2Score{
		CategorySlug: slug,
		Confidence:   clamp01(confidence),
		Rationale:    strings.TrimSpace(*payload.Rationale),
	}, nil
}

// AllowedSlugs returns the lookup set for ParseCategorization.
func AllowedSlugs(nodes []model.CategoryNode) map[string]bool {
	allowed := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		allowed[n.Slug] = true
	}
	return allowed
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
