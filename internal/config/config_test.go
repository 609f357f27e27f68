package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/pnl-categorizer/internal/common"
	"github.com/Veraticus/pnl-categorizer/internal/llm"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("PNLCAT_TEST_DIR", "/tmp/pnl")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "tilde", in: "~", want: home},
		{name: "tilde path", in: "~/data/pnl.db", want: filepath.Join(home, "data", "pnl.db")},
		{name: "env var", in: "$PNLCAT_TEST_DIR/pnl.db", want: "/tmp/pnl/pnl.db"},
		{name: "absolute", in: "/var/lib/pnl.db", want: "/var/lib/pnl.db"},
		{name: "tilde in middle", in: "/a/~/b", want: "/a/~/b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestDatabasePath(t *testing.T) {
	v := newViper()
	v.Set("database.path", "/srv/pnl.db")
	assert.Equal(t, "/srv/pnl.db", DatabasePath(v))

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".local", "share", "pnlcat", "pnlcat.db"), DatabasePath(newViper()))
}

func TestLoadLLMConfig(t *testing.T) {
	t.Run("key from config", func(t *testing.T) {
		v := newViper()
		v.Set("llm.provider", "Anthropic")
		v.Set("llm.api_key", "sk-test")
		v.Set("llm.model", "claude-test")

		cfg, err := LoadLLMConfig(v)
		require.NoError(t, err)
		assert.Equal(t, llm.ProviderAnthropic, cfg.Provider)
		assert.Equal(t, "sk-test", cfg.APIKey)
		assert.Equal(t, "claude-test", cfg.Model)
		assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
		assert.Equal(t, 60, cfg.RateLimit)
	})

	t.Run("key from environment", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-env")
		cfg, err := LoadLLMConfig(newViper())
		require.NoError(t, err)
		assert.Equal(t, llm.ProviderOpenAI, cfg.Provider)
		assert.Equal(t, "sk-env", cfg.APIKey)
	})

	t.Run("missing key", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")
		_, err := LoadLLMConfig(newViper())
		assert.ErrorIs(t, err, common.ErrMissingConfig)
	})

	t.Run("unsupported provider", func(t *testing.T) {
		v := newViper()
		v.Set("llm.provider", "mystery")
		_, err := LoadLLMConfig(v)
		assert.ErrorIs(t, err, common.ErrInvalidConfig)
	})

	t.Run("bad temperature", func(t *testing.T) {
		v := newViper()
		v.Set("llm.api_key", "k")
		v.Set("llm.temperature", 3.5)
		_, err := LoadLLMConfig(v)
		assert.ErrorIs(t, err, common.ErrInvalidConfig)
	})
}

func TestRetryOptions(t *testing.T) {
	v := newViper()
	v.Set("llm.max_retries", 5)
	v.Set("llm.retry_delay", "250ms")

	opts := RetryOptions(v)
	assert.Equal(t, 5, opts.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, opts.InitialDelay)
	assert.InDelta(t, 2.0, opts.Multiplier, 1e-9)
}

func TestLoadCategorizationDefaults(t *testing.T) {
	d, err := LoadCategorizationDefaults(newViper())
	require.NoError(t, err)
	assert.InDelta(t, 0.95, d.AutoApplyThreshold, 1e-9)
	assert.InDelta(t, 0.85, d.HybridThreshold, 1e-9)
	assert.True(t, d.UseGuardrails)

	v := newViper()
	v.Set("categorization.hybrid_threshold", 1.5)
	_, err = LoadCategorizationDefaults(v)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestLoadBatchConfig(t *testing.T) {
	cfg, err := LoadBatchConfig(newViper())
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxConcurrentOrgs)
	assert.Equal(t, 10, cfg.MaxConcurrentGlobal)

	v := newViper()
	v.Set("batch.max_concurrent_global", 0)
	_, err = LoadBatchConfig(v)
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}
