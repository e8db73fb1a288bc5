package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"github.com/RichardoC/chat-relay/internal/models"
)

// DefaultTimeout bounds a single completion call.
const DefaultTimeout = 30 * time.Second

// ErrEmptyResponse is returned when the model answers without any usable text.
var ErrEmptyResponse = errors.New("model returned no content")

// tokenEncoding is used for prompt size estimates regardless of the model
// served; local models have no tiktoken mapping of their own.
const tokenEncoding = "cl100k_base"

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
	encodingErr  error
)

// loadEncoding reads the BPE ranks embedded in the offline loader so nothing
// is fetched over the network.
func loadEncoding() (*tiktoken.Tiktoken, error) {
	encodingOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
		encoding, encodingErr = tiktoken.GetEncoding(tokenEncoding)
	})
	return encoding, encodingErr
}

// Service sends conversation prompts to an OpenAI-compatible chat endpoint.
type Service struct {
	llm         llms.Model
	model       string
	timeout     time.Duration
	temperature *float64
	maxTokens   int
	logger      *zap.Logger
	encoder     *tiktoken.Tiktoken
}

type Option func(*Service)

func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithTemperature sets the sampling temperature. Without it the provider
// default applies; an explicit 0 is sent as 0.
func WithTemperature(t float64) Option {
	return func(s *Service) { s.temperature = &t }
}

func WithMaxTokens(n int) Option {
	return func(s *Service) { s.maxTokens = n }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(baseURL, token, model string, opts ...Option) (*Service, error) {
	if token == "" {
		// Local OpenAI-compatible servers ignore the token, but the client insists on one.
		token = "fake"
	}
	llm, err := openai.New(
		openai.WithToken(token),
		openai.WithBaseURL(baseURL),
		openai.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	s := NewFromModel(llm, opts...)
	s.model = model
	return s, nil
}

// NewFromModel wraps an existing langchaingo model.
func NewFromModel(llm llms.Model, opts ...Option) *Service {
	s := &Service{
		llm:     llm,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	enc, err := loadEncoding()
	if err != nil {
		s.logger.Warn("Token estimates disabled", zap.String("encoding", tokenEncoding), zap.Error(err))
	}
	s.encoder = enc
	return s
}

// Run sends the prompt and returns the first choice's text.
func (s *Service) Run(ctx context.Context, prompt []models.Message) (string, error) {
	content, err := toMessageContent(prompt)
	if err != nil {
		return "", err
	}

	if ce := s.logger.Check(zap.DebugLevel, "Sending prompt"); ce != nil {
		ce.Write(
			zap.String("model", s.model),
			zap.Int("messages", len(prompt)),
			zap.Int("estimated_tokens", s.countTokens(prompt)))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.llm.GenerateContent(ctx, content, s.callOptions()...)
	if err != nil {
		return "", fmt.Errorf("failed to generate completion: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", ErrEmptyResponse
	}

	reply := resp.Choices[0].Content
	if strings.TrimSpace(reply) == "" {
		return "", ErrEmptyResponse
	}
	return reply, nil
}

func (s *Service) callOptions() []llms.CallOption {
	var opts []llms.CallOption
	if s.temperature != nil {
		opts = append(opts, llms.WithTemperature(*s.temperature))
	}
	if s.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(s.maxTokens))
	}
	return opts
}

// countTokens returns -1 when no encoder is available.
func (s *Service) countTokens(prompt []models.Message) int {
	if s.encoder == nil {
		return -1
	}
	total := 0
	for _, m := range prompt {
		total += len(s.encoder.Encode(m.Content, nil, nil))
	}
	return total
}

func toMessageContent(prompt []models.Message) ([]llms.MessageContent, error) {
	out := make([]llms.MessageContent, 0, len(prompt))
	for _, m := range prompt {
		role, err := chatMessageType(m.Role)
		if err != nil {
			return nil, err
		}
		out = append(out, llms.TextParts(role, m.Content))
	}
	return out, nil
}

func chatMessageType(r models.Role) (schema.ChatMessageType, error) {
	switch r {
	case models.RoleSystem:
		return schema.ChatMessageTypeSystem, nil
	case models.RoleUser:
		return schema.ChatMessageTypeHuman, nil
	case models.RoleAssistant:
		return schema.ChatMessageTypeAI, nil
	}
	return "", fmt.Errorf("unsupported role %q", r)
}
