// Package chat runs conversation turns against a session log and an
// inference backend.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/RichardoC/chat-relay/internal/metrics"
	"github.com/RichardoC/chat-relay/internal/models"
	"github.com/RichardoC/chat-relay/internal/session"
)

// DefaultSystemPrompt is prepended to every prompt unless overridden.
const DefaultSystemPrompt = "You are a helpful AI assistant. Provide clear, concise, and friendly responses."

// Inference generates an assistant reply for an ordered prompt.
type Inference interface {
	Run(ctx context.Context, prompt []models.Message) (string, error)
}

// Store persists whole session logs. Load reports false for a session that
// was never saved.
type Store interface {
	Load(ctx context.Context, sessionID string) ([]models.Message, bool, error)
	Save(ctx context.Context, sessionID string, msgs []models.Message) error
}

type Orchestrator struct {
	registry     *session.Registry
	inference    Inference
	store        Store
	systemPrompt string
	logger       *zap.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

type Option func(*Orchestrator)

func WithSystemPrompt(prompt string) Option {
	return func(o *Orchestrator) {
		if prompt != "" {
			o.systemPrompt = prompt
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// New builds an Orchestrator. A nil store keeps logs in memory only.
func New(registry *session.Registry, inference Inference, store Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:     registry,
		inference:    inference,
		store:        store,
		systemPrompt: DefaultSystemPrompt,
		logger:       zap.NewNop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// HandleTurn appends the user's text to the session, asks the model for a
// reply and stores it. The user turn is kept even if inference fails.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID, text string) (string, error) {
	userMsg := models.NewMessage(models.RoleUser, text)
	if err := userMsg.Validate(); err != nil {
		o.metrics.ObserveTurn(metrics.StatusInvalidInput)
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	sess := o.acquire(sessionID)
	defer sess.Unlock()

	log := o.logger.With(zap.String("session_id", sess.ID()))

	if err := o.ensureLoaded(ctx, sess); err != nil {
		log.Error("Failed to load session", zap.Error(err))
		o.metrics.ObserveTurn(metrics.StatusStorageError)
		return "", err
	}

	sess.Log().Append(userMsg)
	if err := o.persist(ctx, sess); err != nil {
		log.Error("Failed to save user message", zap.Error(err))
		o.metrics.ObserveTurn(metrics.StatusStorageError)
		return "", err
	}

	prompt := o.buildPrompt(sess.Log())

	start := o.now()
	reply, err := o.inference.Run(ctx, prompt)
	o.metrics.ObserveInference(o.now().Sub(start))
	replyMsg := models.NewMessage(models.RoleAssistant, reply)
	if err == nil {
		err = replyMsg.Validate()
	}
	if err != nil {
		log.Error("Failed to generate reply",
			zap.Error(err),
			zap.Int("prompt_messages", len(prompt)))
		o.metrics.ObserveTurn(metrics.StatusInferenceError)
		return "", errors.Join(ErrInferenceFailure, err)
	}

	sess.Log().Append(replyMsg)
	if err := o.persist(ctx, sess); err != nil {
		log.Error("Failed to save assistant message", zap.Error(err))
		o.metrics.ObserveTurn(metrics.StatusStorageError)
		return "", err
	}

	log.Debug("Completed turn",
		zap.Int("log_size", sess.Log().Len()),
		zap.Duration("duration", o.now().Sub(start)))
	o.metrics.ObserveTurn(metrics.StatusOK)
	return reply, nil
}

// HandleClear empties the session's log.
func (o *Orchestrator) HandleClear(ctx context.Context, sessionID string) error {
	sess := o.acquire(sessionID)
	defer sess.Unlock()

	sess.Log().Clear()
	sess.MarkLoaded()
	if err := o.persist(ctx, sess); err != nil {
		o.logger.Error("Failed to save cleared session",
			zap.String("session_id", sess.ID()),
			zap.Error(err))
		return err
	}

	o.metrics.ObserveClear()
	o.logger.Info("Cleared session", zap.String("session_id", sess.ID()))
	return nil
}

// HandleHistory returns the session's log, oldest first. A session that was
// never used yields an empty slice.
func (o *Orchestrator) HandleHistory(ctx context.Context, sessionID string) ([]models.Message, error) {
	sess := o.acquire(sessionID)
	defer sess.Unlock()

	if err := o.ensureLoaded(ctx, sess); err != nil {
		o.logger.Error("Failed to load session",
			zap.String("session_id", sess.ID()),
			zap.Error(err))
		return nil, err
	}
	return sess.Log().Messages(), nil
}

func (o *Orchestrator) acquire(sessionID string) *session.Session {
	sess := o.registry.GetOrCreate(sessionID)
	o.metrics.SetSessions(o.registry.Len())
	sess.Lock()
	return sess
}

func (o *Orchestrator) buildPrompt(l *session.Log) []models.Message {
	history := l.Messages()
	prompt := make([]models.Message, 0, len(history)+1)
	prompt = append(prompt, models.NewMessage(models.RoleSystem, o.systemPrompt))
	return append(prompt, history...)
}

func (o *Orchestrator) ensureLoaded(ctx context.Context, sess *session.Session) error {
	if sess.Loaded() {
		return nil
	}
	if o.store == nil {
		sess.MarkLoaded()
		return nil
	}

	msgs, found, err := o.store.Load(ctx, sess.ID())
	o.metrics.ObserveStorage("load", err)
	if err != nil {
		return fmt.Errorf("%w: failed to load session %q: %w", ErrStorageFailure, sess.ID(), err)
	}
	if found {
		sess.Log().Replace(msgs)
	} else {
		sess.Log().Clear()
	}
	sess.MarkLoaded()
	return nil
}

// persist writes the session log. On failure the in-memory copy is dropped so
// the next request reloads whatever storage actually holds.
func (o *Orchestrator) persist(ctx context.Context, sess *session.Session) error {
	if o.store == nil {
		return nil
	}

	err := o.store.Save(ctx, sess.ID(), sess.Log().Messages())
	o.metrics.ObserveStorage("save", err)
	if err != nil {
		sess.Invalidate()
		return fmt.Errorf("%w: failed to save session %q: %w", ErrStorageFailure, sess.ID(), err)
	}
	return nil
}
