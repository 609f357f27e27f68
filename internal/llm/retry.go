package llm

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Veraticus/pnl-categorizer/internal/common"
	"github.com/Veraticus/pnl-categorizer/internal/model"
)

// CategoryScorer is anything that can run pass 2 for one transaction.
type CategoryScorer interface {
	Score(ctx context.Context, txn model.NormalizedTransaction, industry, prior string) (model.Pass2Score, error)
}

// RetryingScorer retries temporary provider failures with exponential backoff. Batch callers
// wrap the scorer with it; the categorizer itself never retries.
type RetryingScorer struct {
	next   CategoryScorer
	logger *slog.Logger
	opts   common.RetryOptions
}

// NewRetryingScorer wraps next with retry behavior.
func NewRetryingScorer(next CategoryScorer, opts common.RetryOptions, logger *slog.Logger) *RetryingScorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryingScorer{next: next, opts: opts, logger: common.ComponentLogger(logger, "llm-retry")}
}

// Score calls the wrapped scorer until it succeeds, fails permanently or runs out of attempts.
// The last provider error is returned unchanged so callers can inspect its kind.
func (r *RetryingScorer) Score(ctx context.Context, txn model.NormalizedTransaction, industry, prior string) (model.Pass2Score, error) {
	var (
		score   model.Pass2Score
		lastErr error
		attempt int
	)

	err := common.WithRetry(ctx, func() error {
		attempt++
		var err error
		score, err = r.next.Score(ctx, txn, industry, prior)
		if err == nil {
			return nil
		}
		lastErr = err

		var perr *ProviderError
		temporary := errors.As(err, &perr) && perr.Temporary()
		if temporary {
			r.logger.Debug("retrying pass 2", "transaction_id", txn.ID, "attempt", attempt, "error", err)
		}
		return &common.RetryableError{Err: err, Retryable: temporary}
	}, r.opts)

	if err != nil {
		if lastErr != nil {
			return model.Pass2Score{}, lastErr
		}
		return model.Pass2Score{}, err
	}
	return score, nil
}
