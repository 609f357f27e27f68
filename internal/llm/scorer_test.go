package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/pnl-categorizer/internal/common"
	"github.com/Veraticus/pnl-categorizer/internal/model"
	"github.com/Veraticus/pnl-categorizer/internal/taxonomy"
)

type fakeClient struct {
	err       error
	responses []string
	prompts   []Request
	mu        sync.Mutex
}

func (f *fakeClient) Provider() string { return "fake" }

func (f *fakeClient) Complete(_ context.Context, req Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", errors.New("no responses left")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func newTestScorer(t *testing.T, client Client, cacheTTL time.Duration) *Scorer {
	t.Helper()
	s := NewScorer(client, taxonomy.Ecommerce(), Config{RateLimit: 6000, CacheTTL: cacheTTL}, nil)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestScorer_Score(t *testing.T) {
	client := &fakeClient{responses: []string{
		`{"category_slug": "marketplace_sales", "confidence": 0.76, "rationale": "Etsy deposit"}`,
	}}
	s := newTestScorer(t, client, -1)

	got, err := s.Score(context.Background(), promptTxn(), "ecommerce", "")
	require.NoError(t, err)
	assert.Equal(t, model.Pass2Score{CategorySlug: "marketplace_sales", Confidence: 0.76, Rationale: "Etsy deposit"}, got)

	require.Len(t, client.prompts, 1)
	assert.Equal(t, systemPrompt, client.prompts[0].System)
	assert.Contains(t, client.prompts[0].Prompt, "ETSY DEPOSIT")
}

func TestScorer_Failures(t *testing.T) {
	tests := []struct {
		client   *fakeClient
		name     string
		wantKind ErrorKind
	}{
		{
			name:     "slug outside prompt set",
			client:   &fakeClient{responses: []string{`{"category_slug": "stripe_clearing", "confidence": 0.9, "rationale": "payout"}`}},
			wantKind: KindInvalidCategory,
		},
		{
			name:     "malformed",
			client:   &fakeClient{responses: []string{`category: dtc_sales`}},
			wantKind: KindMalformedResponse,
		},
		{
			name:     "provider error passes through",
			client:   &fakeClient{err: &ProviderError{Kind: KindRateLimit, Provider: "fake", StatusCode: 429}},
			wantKind: KindRateLimit,
		},
		{
			name:     "untyped client error",
			client:   &fakeClient{err: errors.New("boom")},
			wantKind: KindTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScorer(t, tt.client, -1)

			_, err := s.Score(context.Background(), promptTxn(), "ecommerce", "")
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrProviderFailure)

			var perr *ProviderError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.wantKind, perr.Kind)
		})
	}
}

func TestScorer_CachesByPrompt(t *testing.T) {
	client := &fakeClient{responses: []string{
		`{"category_slug": "dtc_sales", "confidence": 0.8, "rationale": "order"}`,
		`{"category_slug": "wholesale_sales", "confidence": 0.8, "rationale": "order"}`,
	}}
	s := newTestScorer(t, client, time.Minute)

	first, err := s.Score(context.Background(), promptTxn(), "ecommerce", "")
	require.NoError(t, err)
	second, err := s.Score(context.Background(), promptTxn(), "ecommerce", "")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, client.calls())

	third, err := s.Score(context.Background(), promptTxn(), "ecommerce", "DTC Sales")
	require.NoError(t, err)
	assert.Equal(t, "wholesale_sales", third.CategorySlug)
	assert.Equal(t, 2, client.calls())
}

func TestScorer_CanceledContext(t *testing.T) {
	client := &fakeClient{responses: []string{`{}`}}
	s := NewScorer(client, taxonomy.Ecommerce(), Config{RateLimit: 1, CacheTTL: -1}, nil)
	defer func() { _ = s.Close() }()

	// Drain the single burst token.
	require.NoError(t, s.rateLimiter.wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Score(ctx, promptTxn(), "ecommerce", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrProviderFailure)
	assert.Equal(t, 0, client.calls())
}
