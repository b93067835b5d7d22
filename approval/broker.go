package approval

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// The window needs a moment to finish loading before it can receive its
// first prompt.
const defaultLoadDelay = 300 * time.Millisecond

// Broker owns the single approval surface and the set of prompts awaiting
// a decision. The surface is created lazily on the first prompt and
// reused while further prompts are pending; it is closed once the last
// pending prompt resolves. Each prompt resolves exactly once: by a
// decision, by context cancellation, or by the surface being dismissed —
// the latter two count as rejection.
type Broker struct {
	surface   Surface
	loadDelay time.Duration
	log       *slog.Logger

	mu      sync.Mutex
	open    bool
	pending map[string]*pendingPrompt
}

type pendingPrompt struct {
	prompt   Prompt
	decision chan Decision
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithLoadDelay overrides the settle delay applied before the first
// prompt is emitted to a freshly opened surface.
func WithLoadDelay(d time.Duration) BrokerOption {
	return func(b *Broker) {
		b.loadDelay = d
	}
}

// WithLogger sets the structured logger. If not set, a default JSON
// logger writing to stderr is used.
func WithLogger(logger *slog.Logger) BrokerOption {
	return func(b *Broker) {
		b.log = logger
	}
}

// NewBroker creates a Broker presenting prompts on the given surface.
func NewBroker(surface Surface, opts ...BrokerOption) *Broker {
	b := &Broker{
		surface:   surface,
		loadDelay: defaultLoadDelay,
		pending:   make(map[string]*pendingPrompt),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.log == nil {
		b.log = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return b
}

// Request presents a prompt and blocks until the user decides or ctx is
// done. Cancellation resolves as a rejection, never an error: callers
// always get a usable Decision.
func (b *Broker) Request(ctx context.Context, p Prompt) (Decision, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	pp := &pendingPrompt{
		prompt:   p,
		decision: make(chan Decision, 1),
	}

	b.mu.Lock()
	freshSurface := !b.open
	if freshSurface {
		if err := b.surface.Open(); err != nil {
			b.mu.Unlock()
			return Decision{}, err
		}
		b.open = true
	}
	b.pending[p.ID] = pp
	b.mu.Unlock()

	if freshSurface && b.loadDelay > 0 {
		select {
		case <-time.After(b.loadDelay):
		case <-ctx.Done():
			b.resolveLocked(p.ID, Decision{})
			return Decision{}, nil
		}
	}

	if err := b.surface.Present(p); err != nil {
		b.resolveLocked(p.ID, Decision{})
		return Decision{}, err
	}

	b.log.Info("awaiting user decision",
		slog.String("prompt_id", p.ID),
		slog.String("method", p.Method),
		slog.String("dapp", p.DappName))

	select {
	case d := <-pp.decision:
		return d, nil
	case <-ctx.Done():
		b.resolveLocked(p.ID, Decision{})
		b.log.Warn("prompt canceled before decision", slog.String("prompt_id", p.ID))
		return Decision{}, nil
	}
}

// Resolve delivers the user's decision for a pending prompt. It is
// called by the control API when the window reports the outcome.
func (b *Broker) Resolve(id string, d Decision) error {
	if ok := b.resolveLocked(id, d); !ok {
		return ErrUnknownPrompt
	}
	return nil
}

// resolveLocked removes the prompt, delivers the decision if anyone still
// awaits it, and closes the surface when nothing is left pending.
func (b *Broker) resolveLocked(id string, d Decision) bool {
	b.mu.Lock()
	pp, ok := b.pending[id]
	if !ok {
		b.mu.Unlock()
		return false
	}
	delete(b.pending, id)
	if len(b.pending) == 0 && b.open {
		// Open and Close are serialized under mu: a Request arriving
		// now cannot reopen the surface until this close has landed, so
		// a stale close never dismisses a freshly presented prompt.
		if err := b.surface.Close(); err != nil {
			b.log.Warn("closing approval surface", "error", err)
		}
		b.open = false
	}
	b.mu.Unlock()

	pp.decision <- d
	return true
}

// Pending lists prompts still awaiting a decision, oldest first.
func (b *Broker) Pending() []Prompt {
	b.mu.Lock()
	prompts := make([]Prompt, 0, len(b.pending))
	for _, pp := range b.pending {
		prompts = append(prompts, pp.prompt)
	}
	b.mu.Unlock()

	sort.Slice(prompts, func(i, j int) bool {
		return prompts[i].CreatedAt.Before(prompts[j].CreatedAt)
	})
	return prompts
}

// Dismiss handles the user closing the window without answering: every
// pending prompt resolves as rejected.
func (b *Broker) Dismiss() {
	b.mu.Lock()
	ids := make([]string, 0, len(b.pending))
	for id := range b.pending {
		ids = append(ids, id)
	}
	b.mu.Unlock()

	for _, id := range ids {
		b.resolveLocked(id, Decision{})
	}
}
