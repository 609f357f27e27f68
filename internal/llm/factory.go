package llm

import (
	"fmt"
	"strings"

	"github.com/Veraticus/pnl-categorizer/internal/common"
)

// NewClient creates a provider client based on the provided configuration.
func NewClient(cfg Config) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		client, err := newOpenAIClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrMissingConfig, err)
		}
		return client, nil
	case ProviderAnthropic:
		client, err := newAnthropicClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrMissingConfig, err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %q", common.ErrInvalidConfig, cfg.Provider)
	}
}
