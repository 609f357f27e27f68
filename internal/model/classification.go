// Package model defines the core domain models used throughout the application.
package model

import "time"

// IndustryEcommerce is the only industry with a dedicated taxonomy and defaults.
const IndustryEcommerce = "ecommerce"

// Stage names the pipeline step that produced a category proposal.
type Stage string

// Pipeline stages.
const (
	StagePass1    Stage = "pass1"
	StagePass2    Stage = "pass2"
	StageFallback Stage = "fallback"
	StageReview   Stage = "review"
)

// OutcomeKind tags the result of a single categorization stage.
type OutcomeKind int

// Stage outcome kinds.
const (
	OutcomeNoMatch OutcomeKind = iota
	OutcomeMatched
	OutcomeProviderFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeMatched:
		return "matched"
	case OutcomeProviderFailed:
		return "provider_failed"
	default:
		return "no_match"
	}
}

// StageOutcome is the tagged result of pass 1 or pass 2.
type StageOutcome struct {
	Err        error
	Stage      Stage
	Slug       string
	Rationale  string
	RuleID     string
	Confidence float64
	Kind       OutcomeKind
}

// Matched reports whether the stage proposed a category.
func (o StageOutcome) Matched() bool {
	return o.Kind == OutcomeMatched
}

// Pass2Score is a parsed language model answer.
type Pass2Score struct {
	CategorySlug string
	Rationale    string
	Confidence   float64
}

// GuardrailOutcome is the category decision after guardrail correction.
type GuardrailOutcome struct {
	CategoryID        string
	CategorySlug      string
	GuardrailsApplied []string
	Violations        []string
	Confidence        float64
}

// CategorizationResult is the orchestrator's decision for one transaction.
type CategorizationResult struct {
	TransactionID     string   `json:"transaction_id"`
	CategoryID        string   `json:"category_id"`
	CategorySlug      string   `json:"category_slug"`
	Rationale         string   `json:"rationale,omitempty"`
	Stage             Stage    `json:"stage"`
	GuardrailsApplied []string `json:"guardrails_applied"`
	Violations        []string `json:"violations"`
	Confidence        float64  `json:"confidence"`
	AutoApply         bool     `json:"auto_apply"`
	NeedsReview       bool     `json:"needs_review"`
}

// CategorizationConfig holds per-organization categorization settings.
type CategorizationConfig struct {
	Industry           string
	AutoApplyThreshold float64
	HybridThreshold    float64
	UseGuardrails      bool
}

// Organization is the subset of organization settings categorization reads.
// Nil overrides mean "use the industry default".
type Organization struct {
	CreatedAt          time.Time
	AutoApplyThreshold *float64
	HybridThreshold    *float64
	UseGuardrails      *bool
	ID                 string
	Name               string
	Industry           string
}

// HistoryEntry is one audited categorization decision.
type HistoryEntry struct {
	CreatedAt         time.Time
	TransactionID     string
	CategoryID        string
	Stage             Stage
	GuardrailsApplied []string
	Violations        []string
	ID                int64
	Confidence        float64
}
