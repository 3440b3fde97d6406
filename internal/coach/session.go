package coach

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tartampluch/go-cardology/internal/config"
	"github.com/tartampluch/go-cardology/internal/store"
)

var (
	ErrSessionBusy   = errors.New(config.ErrSessionBusy)
	ErrSessionClosed = errors.New(config.ErrSessionClosed)
)

// Session is one chat exchange with a persona. Replies arrive after a fixed delay;
// the wait ends early when the caller's context is done or the session is closed.
type Session struct {
	responder *Responder
	persona   string
	rc        ReadingContext
	delay     time.Duration

	mu       sync.Mutex
	messages []store.Message
	pending  bool

	closed    chan struct{}
	closeOnce sync.Once
}

// Reply is the outcome of an asynchronous Ask.
type Reply struct {
	Content string
	Err     error
}

// NewSession starts a session. An empty history is seeded with the persona greeting.
func NewSession(r *Responder, persona string, rc ReadingContext, delay time.Duration, history []store.Message) (*Session, error) {
	messages := append([]store.Message(nil), history...)
	if len(messages) == 0 {
		greeting, err := r.Greeting(persona, rc)
		if err != nil {
			return nil, err
		}
		messages = append(messages, store.Message{Role: config.RoleAssistant, Content: greeting})
	} else if !ValidPersona(persona) {
		return nil, ErrPersonaUnknown
	}

	return &Session{
		responder: r,
		persona:   persona,
		rc:        rc,
		delay:     delay,
		messages:  messages,
		closed:    make(chan struct{}),
	}, nil
}

// Ask appends the question, waits for the reply delay and appends the reply.
// If the wait is interrupted no assistant message is added.
func (s *Session) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrQuestionRequired
	}

	reply, err := s.responder.Respond(s.persona, question, s.rc)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	select {
	case <-s.closed:
		s.mu.Unlock()
		return "", ErrSessionClosed
	default:
	}
	if s.pending {
		s.mu.Unlock()
		return "", ErrSessionBusy
	}
	s.pending = true
	s.messages = append(s.messages, store.Message{Role: config.RoleUser, Content: question})
	s.mu.Unlock()

	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	log := slog.With(config.LogKeyComponent, config.CompCoach, config.LogKeyPersona, s.persona)

	select {
	case <-timer.C:
	case <-ctx.Done():
		s.finish(nil)
		log.Debug(config.MsgReplyCancelled, config.LogKeyError, ctx.Err())
		return "", ctx.Err()
	case <-s.closed:
		s.finish(nil)
		log.Debug(config.MsgReplyCancelled, config.LogKeyError, ErrSessionClosed)
		return "", ErrSessionClosed
	}

	s.finish(&store.Message{Role: config.RoleAssistant, Content: reply})
	log.Debug(config.MsgReplySent, config.LogKeySizeBytes, len(reply))
	return reply, nil
}

func (s *Session) finish(reply *store.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reply != nil {
		s.messages = append(s.messages, *reply)
	}
	s.pending = false
}

// AskAsync runs Ask in the background. The channel receives exactly one Reply and is
// then closed; cancel abandons the pending reply.
func (s *Session) AskAsync(ctx context.Context, question string) (<-chan Reply, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Reply, config.ChannelBufferSize)
	go func() {
		defer close(out)
		content, err := s.Ask(ctx, question)
		out <- Reply{Content: content, Err: err}
	}()
	return out, cancel
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []store.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.Message(nil), s.messages...)
}

// Close releases any pending Ask. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.closed) })
}
