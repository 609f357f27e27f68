package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/pnl-categorizer/internal/common"
	"github.com/Veraticus/pnl-categorizer/internal/model"
)

type scriptedScorer struct {
	errs  []error
	calls int
}

func (s *scriptedScorer) Score(context.Context, model.NormalizedTransaction, string, string) (model.Pass2Score, error) {
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return model.Pass2Score{}, err
		}
	}
	return model.Pass2Score{CategorySlug: "dtc_sales", Confidence: 0.9, Rationale: "ok"}, nil
}

func fastRetry() common.RetryOptions {
	return common.RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
}

func TestRetryingScorer(t *testing.T) {
	rateLimited := &ProviderError{Kind: KindRateLimit, Provider: "fake", StatusCode: 429}
	invalid := &ProviderError{Kind: KindInvalidCategory, Provider: "fake", Err: ErrInvalidCategory}

	tests := []struct {
		wantErr   error
		name      string
		errs      []error
		wantCalls int
	}{
		{
			name:      "succeeds first time",
			wantCalls: 1,
		},
		{
			name:      "recovers from rate limit",
			errs:      []error{rateLimited, rateLimited},
			wantCalls: 3,
		},
		{
			name:      "gives up after max attempts",
			errs:      []error{rateLimited, rateLimited, rateLimited, rateLimited},
			wantCalls: 3,
			wantErr:   rateLimited,
		},
		{
			name:      "permanent failure is not retried",
			errs:      []error{invalid},
			wantCalls: 1,
			wantErr:   invalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &scriptedScorer{errs: append([]error(nil), tt.errs...)}
			r := NewRetryingScorer(next, fastRetry(), nil)

			got, err := r.Score(context.Background(), promptTxn(), "ecommerce", "")
			assert.Equal(t, tt.wantCalls, next.calls)
			if tt.wantErr != nil {
				require.Error(t, err)
				var perr *ProviderError
				require.True(t, errors.As(err, &perr))
				assert.Same(t, tt.wantErr, perr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "dtc_sales", got.CategorySlug)
		})
	}
}
