// Package config reads application settings from viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/pnl-categorizer/internal/batch"
	"github.com/Veraticus/pnl-categorizer/internal/common"
	"github.com/Veraticus/pnl-categorizer/internal/llm"
	"github.com/Veraticus/pnl-categorizer/internal/orgconfig"
)

// DefaultDatabasePath is used when database.path is unset.
const DefaultDatabasePath = "~/.local/share/pnlcat/pnlcat.db"

// SetDefaults registers default values for every known key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("database.path", DefaultDatabasePath)

	v.SetDefault("llm.provider", llm.ProviderOpenAI)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay", time.Second)
	v.SetDefault("llm.cache_ttl", 15*time.Minute)
	v.SetDefault("llm.rate_limit", 60)
	v.SetDefault("llm.timeout", 30*time.Second)

	d := orgconfig.EcommerceDefaults()
	v.SetDefault("categorization.auto_apply_threshold", d.AutoApplyThreshold)
	v.SetDefault("categorization.hybrid_threshold", d.HybridThreshold)
	v.SetDefault("categorization.use_guardrails", d.UseGuardrails)

	b := batch.DefaultConfig()
	v.SetDefault("batch.max_concurrent_orgs", b.MaxConcurrentOrgs)
	v.SetDefault("batch.max_concurrent_global", b.MaxConcurrentGlobal)
}

// DatabasePath returns the expanded database path.
func DatabasePath(v *viper.Viper) string {
	path := v.GetString("database.path")
	if path == "" {
		path = DefaultDatabasePath
	}
	return ExpandPath(path)
}

// LoadLLMConfig builds the provider configuration. The API key falls back to
// OPENAI_API_KEY or ANTHROPIC_API_KEY depending on the provider. A missing key
// yields common.ErrMissingConfig so callers can run without pass 2.
func LoadLLMConfig(v *viper.Viper) (llm.Config, error) {
	provider := strings.ToLower(strings.TrimSpace(v.GetString("llm.provider")))
	if provider == "" {
		provider = llm.ProviderOpenAI
	}

	cfg := llm.Config{
		Provider:    provider,
		APIKey:      v.GetString("llm.api_key"),
		Model:       v.GetString("llm.model"),
		BaseURL:     v.GetString("llm.base_url"),
		Temperature: v.GetFloat64("llm.temperature"),
		MaxTokens:   v.GetInt("llm.max_tokens"),
		MaxRetries:  v.GetInt("llm.max_retries"),
		RetryDelay:  v.GetDuration("llm.retry_delay"),
		CacheTTL:    v.GetDuration("llm.cache_ttl"),
		RateLimit:   v.GetInt("llm.rate_limit"),
		Timeout:     v.GetDuration("llm.timeout"),
	}

	var envKey string
	switch provider {
	case llm.ProviderOpenAI:
		envKey = "OPENAI_API_KEY"
	case llm.ProviderAnthropic:
		envKey = "ANTHROPIC_API_KEY"
	default:
		return llm.Config{}, fmt.Errorf("%w: unsupported LLM provider %q", common.ErrInvalidConfig, provider)
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(envKey)
	}
	if cfg.APIKey == "" {
		return cfg, fmt.Errorf("%w: %s API key not found in llm.api_key or %s", common.ErrMissingConfig, provider, envKey)
	}

	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return llm.Config{}, fmt.Errorf("%w: llm.temperature %v outside [0,2]", common.ErrInvalidConfig, cfg.Temperature)
	}
	if cfg.MaxTokens < 0 {
		return llm.Config{}, fmt.Errorf("%w: llm.max_tokens must not be negative", common.ErrInvalidConfig)
	}

	return cfg, nil
}

// RetryOptions returns the pass 2 retry policy used by batch callers.
func RetryOptions(v *viper.Viper) common.RetryOptions {
	return common.RetryOptions{
		MaxAttempts:  v.GetInt("llm.max_retries"),
		InitialDelay: v.GetDuration("llm.retry_delay"),
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// LoadCategorizationDefaults returns the thresholds applied to organizations without overrides.
func LoadCategorizationDefaults(v *viper.Viper) (orgconfig.Defaults, error) {
	d := orgconfig.Defaults{
		AutoApplyThreshold: v.GetFloat64("categorization.auto_apply_threshold"),
		HybridThreshold:    v.GetFloat64("categorization.hybrid_threshold"),
		UseGuardrails:      v.GetBool("categorization.use_guardrails"),
	}
	if err := d.Validate(); err != nil {
		return orgconfig.Defaults{}, err
	}
	return d, nil
}

// LoadBatchConfig returns the batch concurrency caps.
func LoadBatchConfig(v *viper.Viper) (batch.Config, error) {
	cfg := batch.Config{
		MaxConcurrentOrgs:   v.GetInt("batch.max_concurrent_orgs"),
		MaxConcurrentGlobal: v.GetInt("batch.max_concurrent_global"),
	}
	if cfg.MaxConcurrentOrgs < 1 || cfg.MaxConcurrentGlobal < 1 {
		return batch.Config{}, fmt.Errorf("%w: batch concurrency caps must be at least 1", common.ErrInvalidConfig)
	}
	return cfg, nil
}

// ExpandPath expands a leading ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}

	return os.ExpandEnv(path)
}
