package walletconnect

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"go.uber.org/atomic"

	"github.com/kestrelwallet/walletbridge/approval"
	"github.com/kestrelwallet/walletbridge/backend"
	"github.com/kestrelwallet/walletbridge/signal"
	"github.com/kestrelwallet/walletbridge/store"
)

const sessionKey = "session:current"

// Manager owns the lifecycle of the pairing/session transport: it binds
// the transport's events, drives proposal approval and request dispatch,
// and exposes Pair/Close/Setup to the rest of the application. Construct
// one at application start and pass it by reference.
type Manager struct {
	client   SignClient
	handler  MethodHandler
	broker   *approval.Broker
	backend  backend.Invoker
	hub      *signal.Hub
	sessions store.Store
	metadata *MetadataCache
	log      *slog.Logger

	setupDone atomic.Bool

	mu      sync.Mutex
	current *Session
	address string
}

var _ EventHandler = (*Manager)(nil)

// ManagerConfig collects the Manager's collaborators.
type ManagerConfig struct {
	Client   SignClient
	Handler  MethodHandler
	Broker   *approval.Broker
	Backend  backend.Invoker
	Hub      *signal.Hub
	Sessions store.Store
	Metadata *MetadataCache
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the structured logger. If not set, a default JSON
// logger writing to stderr is used.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = logger
	}
}

// NewManager creates a Manager. Call Setup (or Pair, which implies it)
// before expecting events.
func NewManager(cfg ManagerConfig, opts ...ManagerOption) *Manager {
	m := &Manager{
		client:   cfg.Client,
		handler:  cfg.Handler,
		broker:   cfg.Broker,
		backend:  cfg.Backend,
		hub:      cfg.Hub,
		sessions: cfg.Sessions,
		metadata: cfg.Metadata,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return m
}

// Setup loads the wallet address from the engine and registers the
// transport event handlers. It is idempotent: repeated calls register
// exactly one handler set. A failed Setup leaves the manager ready to
// retry.
func (m *Manager) Setup(ctx context.Context) error {
	if !m.setupDone.CompareAndSwap(false, true) {
		return nil
	}

	var addr backend.AddressResponse
	if err := m.backend.Invoke(ctx, backend.CommandGetAddress, nil, &addr); err != nil {
		m.setupDone.Store(false)
		return fmt.Errorf("loading wallet address: %w", err)
	}

	m.mu.Lock()
	m.address = addr.Address
	if raw, ok := m.sessions.Get(sessionKey); ok {
		var s Session
		if err := json.Unmarshal(raw, &s); err == nil {
			m.current = &s
		}
	}
	m.mu.Unlock()

	m.client.SetHandler(m)
	m.log.Info("walletconnect manager ready", slog.String("address", addr.Address))
	return nil
}

// Pair initiates pairing from a wc: URI. Transport failures (malformed
// URI, relay unreachable) propagate to the caller.
func (m *Manager) Pair(ctx context.Context, uri string) error {
	if err := m.Setup(ctx); err != nil {
		return err
	}
	if err := m.client.Pair(ctx, uri); err != nil {
		return fmt.Errorf("pairing: %w", err)
	}
	return nil
}

// Close tears down the active session, if any, broadcasts disconnected
// and detaches the transport handlers. Safe to call with no session.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	cur := m.current
	m.current = nil
	m.mu.Unlock()

	if cur != nil {
		if err := m.client.DisconnectSession(ctx, cur.SessionTopic); err != nil {
			m.log.Warn("disconnecting session", slog.String("topic", cur.SessionTopic), "error", err)
		}
		m.metadata.Delete(cur.SessionTopic)
	}
	m.sessions.Delete(sessionKey)

	m.client.SetHandler(nil)
	m.setupDone.Store(false)

	m.hub.Publish(signal.EventDisconnected, nil)
}

// CurrentSession returns the established session, if one exists.
func (m *Manager) CurrentSession() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

// Address returns the wallet account address loaded at Setup.
func (m *Manager) Address() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.address
}

// OnSessionProposal runs the connect approval flow for a proposal.
func (m *Manager) OnSessionProposal(ctx context.Context, p Proposal) {
	md := p.Proposer
	name := md.Name
	if name == "" {
		name = "this dApp"
	}

	decision, err := m.broker.Request(ctx, approval.Prompt{
		Method:   "connect",
		Question: fmt.Sprintf("Do you want to connect to %s?", name),
		ImageRef: "connect",
		DappName: md.Name,
		DappURL:  md.URL,
		DappImg:  md.Icon(),
	})
	if err != nil || !decision.Approved {
		if err != nil {
			m.log.Error("proposal approval flow failed", slog.Int64("proposal_id", p.ID), "error", err)
		}
		if rejErr := m.client.RejectSession(ctx, p.ID, ReasonUserRejected); rejErr != nil {
			m.log.Error("rejecting session", slog.Int64("proposal_id", p.ID), "error", rejErr)
		}
		return
	}

	topic, err := m.client.ApproveSession(ctx, p.ID, m.approvedNamespaces())
	if err != nil {
		m.log.Error("approving session", slog.Int64("proposal_id", p.ID), "error", err)
		if rejErr := m.client.RejectSession(ctx, p.ID, ReasonUserRejected); rejErr != nil {
			m.log.Error("rejecting session after approve failure", slog.Int64("proposal_id", p.ID), "error", rejErr)
		}
		return
	}

	sess := Session{
		SessionTopic: topic,
		PairingTopic: p.PairingTopic,
		ChainID:      m.handler.Chain(),
		Methods:      m.handler.Methods(),
		Events:       m.handler.Events(),
		Address:      m.Address(),
	}

	m.mu.Lock()
	m.current = &sess
	m.mu.Unlock()

	if data, err := json.Marshal(sess); err == nil {
		if err := m.sessions.Put(sessionKey, data); err != nil {
			m.log.Warn("persisting session record", "error", err)
		}
	}
	if err := m.metadata.Put(topic, md); err != nil {
		m.log.Warn("caching dapp metadata", slog.String("topic", topic), "error", err)
	}

	m.log.Info("session established",
		slog.String("topic", topic),
		slog.String("dapp", md.Name))
	m.hub.Publish(signal.EventConnected, sess)
}

// approvedNamespaces grants the wallet's full supported capability set
// for its supported chain, regardless of what the proposal requested.
func (m *Manager) approvedNamespaces() map[string]SessionNamespace {
	chain := m.handler.Chain()
	nsKey := chain
	if i := strings.Index(chain, ":"); i > 0 {
		nsKey = chain[:i]
	}
	return map[string]SessionNamespace{
		nsKey: {
			Chains:   []string{chain},
			Accounts: []string{chain + ":" + m.Address()},
			Methods:  m.handler.Methods(),
			Events:   m.handler.Events(),
		},
	}
}

// OnSessionRequest dispatches one inbound method call and responds to the
// transport exactly once, whatever the handler does. A request left
// unanswered would leave the dApp hanging with no timeout, so even
// panics become JSON-RPC errors here.
func (m *Manager) OnSessionRequest(ctx context.Context, ev RequestEvent) {
	resp := func() (resp Response) {
		defer func() {
			if r := recover(); r != nil {
				m.log.Error("session request handler panicked",
					slog.Int64("request_id", ev.ID),
					slog.String("method", ev.Method),
					slog.Any("panic", r))
				resp = NewError(ev.ID, CodeInternal, fmt.Sprintf("%v", r))
			}
		}()
		if ev.ChainID != m.handler.Chain() {
			return NewError(ev.ID, CodeUnsupportedChain, fmt.Sprintf("unsupported chain %q", ev.ChainID))
		}
		return m.handler.Invoke(ctx, ev)
	}()

	if err := m.client.RespondSessionRequest(ctx, ev.Topic, resp); err != nil {
		m.log.Error("responding to session request",
			slog.Int64("request_id", ev.ID),
			slog.String("topic", ev.Topic),
			"error", err)
	}
}

// OnSessionDelete handles the dApp (or relay) tearing the session down.
func (m *Manager) OnSessionDelete(ctx context.Context, topic string) {
	m.mu.Lock()
	matched := m.current != nil && m.current.SessionTopic == topic
	if matched {
		m.current = nil
	}
	m.mu.Unlock()

	m.metadata.Delete(topic)
	if !matched {
		m.log.Warn("session delete for unknown topic", slog.String("topic", topic))
		return
	}
	m.sessions.Delete(sessionKey)
	m.log.Info("session deleted by peer", slog.String("topic", topic))
	m.hub.Publish(signal.EventDisconnected, nil)
}

// OnSessionPing is a heartbeat; log only.
func (m *Manager) OnSessionPing(ctx context.Context, topic string) {
	m.log.Debug("session ping", slog.String("topic", topic))
}
