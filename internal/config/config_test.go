package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(envFrom(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 20, cfg.MaxLogSize)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := load(envFrom(map[string]string{
		"CHAT_ADDR":          ":9000",
		"CHAT_DB_PATH":       "/tmp/x.db",
		"LLM_BASE_URL":       "https://api.example.com/v1/",
		"OPENAI_API_KEY":     "secret",
		"LLM_MODEL":          "gpt-4o-mini",
		"LLM_TIMEOUT":        "5s",
		"LLM_TEMPERATURE":    "0.2",
		"LLM_MAX_TOKENS":     "512",
		"CHAT_MAX_LOG_SIZE":  "8",
		"CHAT_SYSTEM_PROMPT": "be brief",
		"LOG_LEVEL":          "debug",
		"LOG_FORMAT":         "console",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.Equal(t, "https://api.example.com/v1/", cfg.LLMBaseURL)
	assert.Equal(t, "secret", cfg.LLMToken)
	assert.Equal(t, "gpt-4o-mini", cfg.LLMModel)
	assert.Equal(t, 5*time.Second, cfg.LLMTimeout)
	require.NotNil(t, cfg.LLMTemperature)
	assert.Equal(t, 0.2, *cfg.LLMTemperature)
	assert.Equal(t, 512, cfg.LLMMaxTokens)
	assert.Equal(t, 8, cfg.MaxLogSize)
	assert.Equal(t, "be brief", cfg.SystemPrompt)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad size", map[string]string{"CHAT_MAX_LOG_SIZE": "many"}},
		{"zero size", map[string]string{"CHAT_MAX_LOG_SIZE": "0"}},
		{"bad timeout", map[string]string{"LLM_TIMEOUT": "soon"}},
		{"negative timeout", map[string]string{"LLM_TIMEOUT": "-1s"}},
		{"bad temperature", map[string]string{"LLM_TEMPERATURE": "warm"}},
		{"negative tokens", map[string]string{"LLM_MAX_TOKENS": "-5"}},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(envFrom(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestLoadZeroTemperatureIsKept(t *testing.T) {
	cfg, err := load(envFrom(map[string]string{"LLM_TEMPERATURE": "0"}))
	require.NoError(t, err)
	require.NotNil(t, cfg.LLMTemperature)
	assert.Equal(t, 0.0, *cfg.LLMTemperature)
	assert.Len(t, cfg.LLMOptions(), 3)

	unset, err := load(envFrom(nil))
	require.NoError(t, err)
	assert.Nil(t, unset.LLMTemperature)
	assert.Len(t, unset.LLMOptions(), 2)
}
