package llm

import (
	"context"
	"net/http"
	"time"
)

// Client sends one completion request to a provider and returns the raw text answer.
// Failures are *ProviderError values.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Provider() string
}

// Request is a single system + user prompt exchange.
type Request struct {
	System string
	Prompt string
}

// Config holds configuration for the LLM provider and scorer.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	MaxRetries  int
	RetryDelay  time.Duration
	CacheTTL    time.Duration
	Timeout     time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}

const (
	defaultTemperature = 0.1
	defaultMaxTokens   = 300
	defaultTimeout     = 30 * time.Second
)

func (cfg Config) temperature() float64 {
	if cfg.Temperature == 0 {
		return defaultTemperature
	}
	return cfg.Temperature
}

func (cfg Config) maxTokens() int {
	if cfg.MaxTokens == 0 {
		return defaultMaxTokens
	}
	return cfg.MaxTokens
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
