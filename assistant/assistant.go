// Package assistant is the chat front end over a user's journal: it
// routes session switch commands, and answers everything else by handing
// a summary of the user's history to a text backend.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/rustyeddy/tradelog/journal"
	"github.com/rustyeddy/tradelog/llm"
	"github.com/rustyeddy/tradelog/logger"
	"github.com/rustyeddy/tradelog/stats"
)

var (
	// ErrChatBackend wraps every failure of the text backend call.
	ErrChatBackend  = errors.New("chat backend failed")
	ErrEmptyMessage = errors.New("message is empty")
)

const DefaultPersona = "Sydney"

// Reply is the outcome of one chat message. For SessionSwitch the caller
// is expected to change its current session to SessionID.
type Reply struct {
	Kind        Kind   `json:"kind"`
	Text        string `json:"message"`
	SessionID   string `json:"session_id,omitempty"`
	SessionName string `json:"session_name,omitempty"`
}

// Assistant handles chat messages. It keeps no per-user state; callers
// serialise messages for the same user.
type Assistant struct {
	store    journal.Store
	backend  llm.Completer
	router   *Router
	resolver *Resolver
	builder  *ContextBuilder
	quotes   *Quotes
	persona  string
}

type Option func(*Assistant)

func WithPersona(name string) Option {
	return func(a *Assistant) {
		if name != "" {
			a.persona = name
		}
	}
}

// WithLimits bounds how many recent sessions and trades go into a prompt.
func WithLimits(sessions, trades int) Option {
	return func(a *Assistant) {
		a.builder.recentSessions = sessions
		a.builder.recentTrades = trades
	}
}

func WithRouter(r *Router) Option {
	return func(a *Assistant) { a.router = r }
}

// WithQuotes replaces the built-in-only quote source.
func WithQuotes(q *Quotes) Option {
	return func(a *Assistant) {
		if q != nil {
			a.quotes = q
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Assistant) { a.builder.now = now }
}

func New(store journal.Store, backend llm.Completer, opts ...Option) *Assistant {
	a := &Assistant{
		store:    store,
		backend:  backend,
		router:   NewRouter(),
		resolver: NewResolver(store),
		builder:  NewContextBuilder(store, DefaultRecentSessions, DefaultRecentTrades),
		quotes:   NewQuotes("", 0),
		persona:  DefaultPersona,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Assistant) Persona() string { return a.persona }

// Quote returns a random quote for the greeting banner.
func (a *Assistant) Quote(ctx context.Context) Quote { return a.quotes.Random(ctx) }

// FailureMessage is the only text shown to a user when the backend fails.
func (a *Assistant) FailureMessage() string {
	return fmt.Sprintf("Failed to get %s's response", a.persona)
}

// HandleMessage answers one chat message from userID. currentSessionID
// may be empty.
//
// A switch command naming a session that does not resolve is answered as
// a general question. Backend failures are returned wrapped in
// ErrChatBackend; no reply text is ever made up.
func (a *Assistant) HandleMessage(ctx context.Context, text, userID, currentSessionID string) (reply Reply, err error) {
	ctx, span := logger.StartSpan(ctx, "assistant.handle_message")
	defer func() {
		logger.RecordError(span, err)
		span.End()
	}()

	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrEmptyMessage
	}
	log := logger.FromContext(ctx)

	intent := a.router.Classify(text)
	span.SetAttributes(attribute.String("chat.intent", string(intent.Kind)))

	if intent.Kind == SessionSwitch {
		s, ok, err := a.resolver.Resolve(ctx, intent.Fragment, userID)
		if err != nil {
			return Reply{}, err
		}
		if ok {
			log.Info("chat session switch", "fragment", intent.Fragment, "session_id", s.ID)
			return Reply{
				Kind:        SessionSwitch,
				Text:        SwitchAcknowledgment(s.Name),
				SessionID:   s.ID,
				SessionName: s.Name,
			}, nil
		}
		log.Debug("switch target not found, answering as a question", "fragment", intent.Fragment)
	}

	cc, err := a.builder.Build(ctx, userID, currentSessionID)
	if err != nil {
		return Reply{}, err
	}
	prompt, err := ChatPrompt(a.persona, cc, text)
	if err != nil {
		return Reply{}, fmt.Errorf("render prompt: %w", err)
	}

	answer, err := a.complete(ctx, prompt)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Kind: GeneralQuery, Text: answer}, nil
}

// Summarize asks the backend for a written review of one session.
func (a *Assistant) Summarize(ctx context.Context, userID, sessionID string) (summary string, err error) {
	ctx, span := logger.StartSpan(ctx, "assistant.summarize")
	defer func() {
		logger.RecordError(span, err)
		span.End()
	}()

	s, err := a.store.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if s.UserID != userID {
		return "", fmt.Errorf("session %q %w", sessionID, journal.ErrNotFound)
	}
	trades, err := a.store.ListTrades(ctx, s.ID)
	if err != nil {
		return "", fmt.Errorf("list trades: %w", err)
	}

	prompt, err := SummaryPrompt(a.persona, s, stats.Compute(trades, s.InitialCapital), trades)
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return a.complete(ctx, prompt)
}

func (a *Assistant) complete(ctx context.Context, prompt string) (string, error) {
	out, err := a.backend.Complete(ctx, prompt)
	if err != nil {
		logger.FromContext(ctx).Error("chat backend failed", "error", err)
		return "", fmt.Errorf("%w: %w", ErrChatBackend, err)
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("%w: %w", ErrChatBackend, llm.ErrEmptyReply)
	}
	return out, nil
}

// SwitchAcknowledgment is the reply text for a successful session switch.
func SwitchAcknowledgment(name string) string {
	return fmt.Sprintf("✅ Switched to \"%s\" session! You can now view and analyze the trades from this session.", name)
}
