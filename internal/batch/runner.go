// Package batch categorizes stored transactions for many organizations under
// concurrency caps.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/Veraticus/pnl-categorizer/internal/categorize"
	"github.com/Veraticus/pnl-categorizer/internal/common"
	"github.com/Veraticus/pnl-categorizer/internal/llm"
	"github.com/Veraticus/pnl-categorizer/internal/model"
	"github.com/Veraticus/pnl-categorizer/internal/pattern"
	"github.com/Veraticus/pnl-categorizer/internal/taxonomy"
)

// Store is the persistence the runner reads from and writes to.
type Store interface {
	OrgsWithUncategorized(ctx context.Context) ([]string, error)
	GetUncategorizedTransactions(ctx context.Context, orgID string, limit int) ([]model.NormalizedTransaction, error)
	GetVendorOverrides(ctx context.Context, orgID string) ([]model.VendorOverride, error)
	ApplyCategorization(ctx context.Context, txnID string, result *model.CategorizationResult) error
}

// ConfigResolver returns an organization's categorization settings.
type ConfigResolver interface {
	Get(ctx context.Context, orgID string) model.CategorizationConfig
}

// Config configures batch behavior.
type Config struct {
	MaxConcurrentOrgs   int  // Organizations processed at once
	MaxConcurrentGlobal int  // Transactions in flight across all organizations
	Limit               int  // Per-organization transaction cap, 0 for all
	DryRun              bool // Categorize without persisting
}

// DefaultConfig returns the default concurrency caps.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentOrgs:   3,
		MaxConcurrentGlobal: 10,
	}
}

// Summary contains statistics about a batch run.
type Summary struct {
	Organizations  int
	Processed      int
	AutoApplied    int
	NeedsReview    int
	Failed         int
	Fallbacks      int
	ProcessingTime time.Duration
}

// Result is the outcome for a single transaction.
type Result struct {
	Err           error
	OrgID         string
	TransactionID string
	Result        model.CategorizationResult
}

// Runner categorizes uncategorized transactions organization by organization.
type Runner struct {
	store      Store
	resolver   ConfigResolver
	tax        *taxonomy.Taxonomy
	guardrails categorize.Guardrails
	scorer     categorize.Scorer
	rawScorer  llm.CategoryScorer
	logger     *slog.Logger
	onResult   func(Result)
	retry      common.RetryOptions
	cfg        Config
}

// Option configures a Runner.
type Option func(*Runner)

// WithScorer enables pass 2, retrying temporary provider failures with opts.
func WithScorer(s llm.CategoryScorer, opts common.RetryOptions) Option {
	return func(r *Runner) {
		r.rawScorer = s
		r.retry = opts
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithProgress registers a callback invoked once per finished transaction.
// Calls are serialized.
func WithProgress(fn func(Result)) Option {
	return func(r *Runner) { r.onResult = fn }
}

// NewRunner creates a batch runner. Non-positive caps are replaced by the defaults.
func NewRunner(store Store, resolver ConfigResolver, tax *taxonomy.Taxonomy, guardrails categorize.Guardrails, cfg Config, opts ...Option) *Runner {
	defaults := DefaultConfig()
	if cfg.MaxConcurrentOrgs <= 0 {
		cfg.MaxConcurrentOrgs = defaults.MaxConcurrentOrgs
	}
	if cfg.MaxConcurrentGlobal <= 0 {
		cfg.MaxConcurrentGlobal = defaults.MaxConcurrentGlobal
	}

	r := &Runner{
		store:      store,
		resolver:   resolver,
		tax:        tax,
		guardrails: guardrails,
		cfg:        cfg,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.rawScorer != nil {
		r.scorer = llm.NewRetryingScorer(r.rawScorer, r.retry, r.logger)
	}
	r.logger = common.ComponentLogger(r.logger, "batch")
	return r
}

type tally struct {
	onResult func(Result)
	summary  Summary
	mu       sync.Mutex
}

func (t *tally) record(res Result) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.summary.Processed++
	switch {
	case res.Err != nil:
		t.summary.Failed++
	case res.Result.AutoApply:
		t.summary.AutoApplied++
	default:
		t.summary.NeedsReview++
	}
	if res.Err == nil && res.Result.Stage == model.StageFallback {
		t.summary.Fallbacks++
	}
	if t.onResult != nil {
		t.onResult(res)
	}
}

// Run categorizes the uncategorized transactions of orgIDs, or of every
// organization that has any when orgIDs is empty. Individual failures are
// counted in the summary; only cancellation or an unreadable organization list
// returns an error.
func (r *Runner) Run(ctx context.Context, orgIDs []string) (*Summary, error) {
	start := time.Now()

	if len(orgIDs) == 0 {
		ids, err := r.store.OrgsWithUncategorized(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list organizations: %w", err)
		}
		orgIDs = ids
	}

	t := &tally{onResult: r.onResult}
	t.summary.Organizations = len(orgIDs)
	if len(orgIDs) == 0 {
		r.logger.Info("No transactions to categorize")
		return &t.summary, nil
	}

	r.logger.Info("Starting batch categorization",
		"organizations", len(orgIDs),
		"max_concurrent_orgs", r.cfg.MaxConcurrentOrgs,
		"max_concurrent_global", r.cfg.MaxConcurrentGlobal,
		"dry_run", r.cfg.DryRun)

	global := semaphore.NewWeighted(int64(r.cfg.MaxConcurrentGlobal))

	var g errgroup.Group
	g.SetLimit(r.cfg.MaxConcurrentOrgs)
	for _, orgID := range orgIDs {
		g.Go(func() error {
			return r.runOrg(ctx, orgID, global, t)
		})
	}
	err := g.Wait()

	t.mu.Lock()
	summary := t.summary
	t.mu.Unlock()
	summary.ProcessingTime = time.Since(start)

	r.logger.Info("Batch categorization finished",
		"organizations", summary.Organizations,
		"processed", summary.Processed,
		"auto_applied", summary.AutoApplied,
		"needs_review", summary.NeedsReview,
		"failed", summary.Failed,
		"fallbacks", summary.Fallbacks,
		"duration", summary.ProcessingTime)

	return &summary, err
}

func (r *Runner) runOrg(ctx context.Context, orgID string, global *semaphore.Weighted, t *tally) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger := r.logger.With("org_id", orgID)

	txns, err := r.store.GetUncategorizedTransactions(ctx, orgID, r.cfg.Limit)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Error("Failed to load transactions, skipping organization", "error", err)
		return nil
	}
	if len(txns) == 0 {
		return nil
	}

	cfg := r.resolver.Get(ctx, orgID)
	categorizer := r.categorizerFor(ctx, orgID, logger)

	logger.Debug("Categorizing organization", "transactions", len(txns))

	var g errgroup.Group
	for _, txn := range txns {
		if err := global.Acquire(ctx, 1); err != nil {
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			defer global.Release(1)
			t.record(r.categorizeOne(ctx, categorizer, orgID, txn, cfg, logger))
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}

// categorizerFor builds a categorizer whose pass 1 includes the organization's vendor overrides.
func (r *Runner) categorizerFor(ctx context.Context, orgID string, logger *slog.Logger) *categorize.Categorizer {
	overrides, err := r.store.GetVendorOverrides(ctx, orgID)
	if err != nil {
		logger.Warn("Failed to load vendor overrides, using default rules", "error", err)
		overrides = nil
	}

	opts := []categorize.Option{
		categorize.WithMatcher(pattern.NewDefaultMatcher(overrides)),
		categorize.WithLogger(r.logger),
	}
	if r.scorer != nil {
		opts = append(opts, categorize.WithScorer(r.scorer))
	}
	return categorize.New(r.tax, r.guardrails, opts...)
}

func (r *Runner) categorizeOne(
	ctx context.Context,
	c *categorize.Categorizer,
	orgID string,
	txn model.NormalizedTransaction,
	cfg model.CategorizationConfig,
	logger *slog.Logger,
) Result {
	res := Result{OrgID: orgID, TransactionID: txn.ID}

	result, err := c.Categorize(ctx, txn, cfg)
	if err != nil {
		logger.Warn("Failed to categorize transaction", "transaction_id", txn.ID, "error", err)
		res.Err = err
		return res
	}
	res.Result = result

	if r.cfg.DryRun {
		return res
	}
	if err := r.store.ApplyCategorization(ctx, txn.ID, &result); err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Warn("Failed to save categorization", "transaction_id", txn.ID, "error", err)
		}
		res.Err = fmt.Errorf("failed to save categorization: %w", err)
	}
	return res
}
