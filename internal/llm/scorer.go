package llm

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Veraticus/pnl-categorizer/internal/common"
	"github.com/Veraticus/pnl-categorizer/internal/model"
	"github.com/Veraticus/pnl-categorizer/internal/taxonomy"
)

// Scorer runs pass 2 for single transactions. It is safe for concurrent use.
type Scorer struct {
	client      Client
	tax         *taxonomy.Taxonomy
	allowed     map[string]bool
	cache       *scoreCache
	rateLimiter *rateLimiter
	logger      *slog.Logger
}

// NewScorer creates a scorer over client. A zero CacheTTL uses the default TTL; a negative
// one disables caching.
func NewScorer(client Client, tax *taxonomy.Taxonomy, cfg Config, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scorer{
		client:      client,
		tax:         tax,
		allowed:     AllowedSlugs(tax.PromptCategories()),
		rateLimiter: newRateLimiter(cfg.RateLimit),
		logger:      common.ComponentLogger(logger, "llm"),
	}
	if cfg.CacheTTL >= 0 {
		s.cache = newScoreCache(cfg.CacheTTL)
	}
	return s
}

// Score asks the model for a category. Every failure is a *ProviderError.
func (s *Scorer) Score(ctx context.Context, txn model.NormalizedTransaction, industry, prior string) (model.Pass2Score, error) {
	prompt := BuildCategorizationPrompt(txn, s.tax, industry, prior)
	provider := s.client.Provider()

	key := cacheKey(provider, prompt)
	if s.cache != nil {
		if score, ok := s.cache.get(key); ok {
			s.logger.Debug("using cached score", "transaction_id", txn.ID, "category", score.CategorySlug)
			return score, nil
		}
	}

	if err := s.rateLimiter.wait(ctx); err != nil {
		return model.Pass2Score{}, transportError(provider, err)
	}

	content, err := s.client.Complete(ctx, Request{System: systemPrompt, Prompt: prompt})
	if err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) {
			return model.Pass2Score{}, perr
		}
		return model.Pass2Score{}, transportError(provider, err)
	}

	score, err := ParseCategorization(content, s.allowed)
	if err != nil {
		kind := KindMalformedResponse
		if errors.Is(err, ErrInvalidCategory) {
			kind = KindInvalidCategory
		}
		s.logger.Debug("rejected model answer", "transaction_id", txn.ID, "kind", kind, "error", err)
		return model.Pass2Score{}, &ProviderError{Kind: kind, Provider: provider, Err: err}
	}

	if s.cache != nil {
		s.cache.set(key, score)
	}
	return score, nil
}

// Close releases background resources.
func (s *Scorer) Close() error {
	if s.cache != nil {
		s.cache.Close()
	}
	return nil
}
