package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/RichardoC/chat-relay/internal/chat"
	"github.com/RichardoC/chat-relay/internal/llm"
	"github.com/RichardoC/chat-relay/internal/session"
)

type Config struct {
	Addr   string
	DBPath string

	LLMBaseURL     string
	LLMToken       string
	LLMModel       string
	LLMTimeout     time.Duration
	LLMTemperature *float64 // nil leaves the provider default
	LLMMaxTokens   int

	// MaxLogSize is the number of most recent messages each session keeps.
	MaxLogSize   int
	SystemPrompt string

	LogLevel  string
	LogFormat string // "json" or "console"
}

func Default() Config {
	return Config{
		Addr:         ":8100",
		DBPath:       "chat-relay.db",
		LLMBaseURL:   "http://localhost:11434/v1/",
		LLMModel:     "llama3.1:8b",
		LLMTimeout:   llm.DefaultTimeout,
		MaxLogSize:   session.DefaultMaxSize,
		SystemPrompt: chat.DefaultSystemPrompt,
		LogLevel:     "info",
		LogFormat:    "json",
	}
}

// Load builds a Config from the environment, falling back to Default for
// unset variables.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Default()
	var errs []error

	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("CHAT_ADDR", &cfg.Addr)
	str("CHAT_DB_PATH", &cfg.DBPath)
	str("LLM_BASE_URL", &cfg.LLMBaseURL)
	str("OPENAI_API_KEY", &cfg.LLMToken)
	str("LLM_MODEL", &cfg.LLMModel)
	str("CHAT_SYSTEM_PROMPT", &cfg.SystemPrompt)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)
	integer("CHAT_MAX_LOG_SIZE", &cfg.MaxLogSize)
	integer("LLM_MAX_TOKENS", &cfg.LLMMaxTokens)

	if v := getenv("LLM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LLM_TIMEOUT: %w", err))
		} else {
			cfg.LLMTimeout = d
		}
	}
	if v := getenv("LLM_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("LLM_TEMPERATURE: %w", err))
		} else {
			cfg.LLMTemperature = &f
		}
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.MaxLogSize <= 0 {
		errs = append(errs, fmt.Errorf("max log size must be positive, got %d", c.MaxLogSize))
	}
	if c.LLMTimeout <= 0 {
		errs = append(errs, fmt.Errorf("llm timeout must be positive, got %s", c.LLMTimeout))
	}
	if c.LLMMaxTokens < 0 {
		errs = append(errs, fmt.Errorf("llm max tokens must not be negative, got %d", c.LLMMaxTokens))
	}
	if c.Addr == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// LLMOptions translates the inference settings into llm service options.
func (c Config) LLMOptions() []llm.Option {
	opts := []llm.Option{
		llm.WithTimeout(c.LLMTimeout),
		llm.WithMaxTokens(c.LLMMaxTokens),
	}
	if c.LLMTemperature != nil {
		opts = append(opts, llm.WithTemperature(*c.LLMTemperature))
	}
	return opts
}
