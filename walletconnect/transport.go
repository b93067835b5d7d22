package walletconnect

import (
	"context"
	"encoding/json"
)

// Proposal is a dApp's request to establish a session, delivered by the
// transport after pairing.
type Proposal struct {
	ID                 int64                        `json:"id"`
	PairingTopic       string                       `json:"pairing_topic"`
	Proposer           DappMetadata                 `json:"proposer"`
	RequiredNamespaces map[string]ProposalNamespace `json:"required_namespaces,omitempty"`
}

// ProposalNamespace is the capability set a dApp asks for under one chain
// namespace.
type ProposalNamespace struct {
	Chains  []string `json:"chains,omitempty"`
	Methods []string `json:"methods,omitempty"`
	Events  []string `json:"events,omitempty"`
}

// SessionNamespace is the capability set the wallet grants when approving
// a proposal.
type SessionNamespace struct {
	Chains   []string `json:"chains,omitempty"`
	Accounts []string `json:"accounts"`
	Methods  []string `json:"methods"`
	Events   []string `json:"events"`
}

// RequestEvent is one inbound method call on an established session.
type RequestEvent struct {
	ID      int64           `json:"id"`
	Topic   string          `json:"topic"`
	ChainID string          `json:"chain_id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// RejectReason is the structured reason sent when declining a proposal.
type RejectReason struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ReasonUserRejected is the standardized rejection reason.
var ReasonUserRejected = RejectReason{Code: 5000, Message: "User rejected."}

// EventHandler receives the transport's lifecycle events. The transport
// invokes handlers sequentially in delivery order; implementations decide
// what to run concurrently.
type EventHandler interface {
	OnSessionProposal(ctx context.Context, p Proposal)
	OnSessionRequest(ctx context.Context, ev RequestEvent)
	OnSessionDelete(ctx context.Context, topic string)
	OnSessionPing(ctx context.Context, topic string)
}

// SignClient is the relay-backed pairing/session transport the Manager
// drives. The concrete implementation lives in the relay package.
type SignClient interface {
	// SetHandler registers the event handler. A nil handler detaches.
	SetHandler(h EventHandler)
	// Pair initiates pairing from a wc: URI.
	Pair(ctx context.Context, uri string) error
	// ApproveSession accepts a proposal with the granted namespaces and
	// returns the established session topic.
	ApproveSession(ctx context.Context, proposalID int64, namespaces map[string]SessionNamespace) (string, error)
	// RejectSession declines a proposal.
	RejectSession(ctx context.Context, proposalID int64, reason RejectReason) error
	// RespondSessionRequest answers one session request. The transport
	// must be answered exactly once per request id.
	RespondSessionRequest(ctx context.Context, topic string, resp Response) error
	// DisconnectSession tears down an established session.
	DisconnectSession(ctx context.Context, topic string) error
}

// MethodHandler routes the method calls of one chain. The aleo package
// provides the single implementation.
type MethodHandler interface {
	// Chain returns the CAIP-2 chain this handler serves, e.g. "aleo:1".
	Chain() string
	// Methods lists the method names the wallet supports.
	Methods() []string
	// Events lists the event names the wallet supports.
	Events() []string
	// Invoke dispatches one request and always produces a response,
	// success or error.
	Invoke(ctx context.Context, ev RequestEvent) Response
}
