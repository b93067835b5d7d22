package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"go.uber.org/atomic"

	"github.com/kestrelwallet/walletbridge/walletconnect"
)

var (
	// ErrNotPaired indicates a session operation before any pairing was
	// established on this client.
	ErrNotPaired = errors.New("not paired")
)

// Code sent with wc_sessionDelete when the wallet disconnects.
const reasonDisconnected = 6000

// Client is the bridge-backed transport behind the session manager. One
// Client serves one pairing at a time; Pair dials the bridge lazily and
// starts the read loop.
type Client struct {
	url    string
	log    *slog.Logger
	dialer *websocket.Dialer

	rpcID atomic.Int64
	errs  chan error

	// wmu serializes websocket writes; gorilla allows one writer.
	wmu sync.Mutex

	mu      sync.Mutex
	conn    *websocket.Conn
	handler walletconnect.EventHandler
	cipher  *cipher
	pairing string
	session string
}

var _ walletconnect.SignClient = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDialer overrides the websocket dialer.
func WithDialer(d *websocket.Dialer) ClientOption {
	return func(c *Client) {
		c.dialer = d
	}
}

// WithLogger sets the structured logger. If not set, a default JSON
// logger writing to stderr is used.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.log = logger
	}
}

// NewClient creates a Client for the given bridge websocket URL.
func NewClient(url string, opts ...ClientOption) *Client {
	c := &Client{
		url:    url,
		dialer: websocket.DefaultDialer,
		errs:   make(chan error, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return c
}

// Errors reports read-loop failures. The channel never closes; a
// dropped connection delivers one error and the client stays usable for
// a fresh Pair.
func (c *Client) Errors() <-chan error {
	return c.errs
}

// SetHandler registers the event handler. A nil handler detaches:
// inbound traffic is acked and dropped.
func (c *Client) SetHandler(h walletconnect.EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// Pair parses a pairing URI, dials the bridge if needed and subscribes
// the pairing topic.
func (c *Client) Pair(ctx context.Context, uri string) error {
	p, err := ParseURI(uri)
	if err != nil {
		return err
	}

	c.mu.Lock()
	dialed := false
	if c.conn == nil {
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("dialing bridge %s: %w", c.url, err)
		}
		c.conn = conn
		dialed = true
	}
	c.cipher = newCipher(p.SymKey)
	c.pairing = p.Topic
	conn := c.conn
	c.mu.Unlock()

	if err := c.writeMsg(message{Topic: p.Topic, Type: typeSub, Silent: true}); err != nil {
		return err
	}
	if dialed {
		go c.readLoop(conn)
	}

	c.log.Info("paired", slog.String("topic", p.Topic), slog.String("protocol", p.Protocol))
	return nil
}

// ApproveSession answers a proposal with the granted namespaces,
// subscribes the derived session topic and returns it.
func (c *Client) ApproveSession(ctx context.Context, proposalID int64, namespaces map[string]walletconnect.SessionNamespace) (string, error) {
	c.mu.Lock()
	cph, pairing := c.cipher, c.pairing
	c.mu.Unlock()
	if cph == nil {
		return "", ErrNotPaired
	}

	topic, err := cph.sessionTopic()
	if err != nil {
		return "", fmt.Errorf("deriving session topic: %w", err)
	}

	result := approveResult{Namespaces: namespaces}
	result.Relay.Protocol = "irn"
	resp := rpcResponse{ID: proposalID, JSONRPC: "2.0", Result: result}
	if err := c.publish(pairing, resp); err != nil {
		return "", err
	}
	if err := c.writeMsg(message{Topic: topic, Type: typeSub, Silent: true}); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.session = topic
	c.mu.Unlock()
	return topic, nil
}

// RejectSession declines a proposal with the given reason.
func (c *Client) RejectSession(ctx context.Context, proposalID int64, reason walletconnect.RejectReason) error {
	c.mu.Lock()
	cph, pairing := c.cipher, c.pairing
	c.mu.Unlock()
	if cph == nil {
		return ErrNotPaired
	}

	resp := rpcResponse{ID: proposalID, JSONRPC: "2.0", Error: &rpcError{Code: reason.Code, Message: reason.Message}}
	return c.publish(pairing, resp)
}

// RespondSessionRequest publishes one JSON-RPC response on the session
// topic.
func (c *Client) RespondSessionRequest(ctx context.Context, topic string, resp walletconnect.Response) error {
	return c.publish(topic, resp)
}

// DisconnectSession notifies the peer and forgets the session topic.
func (c *Client) DisconnectSession(ctx context.Context, topic string) error {
	req := rpcRequest{
		ID:      c.nextID(),
		JSONRPC: "2.0",
		Method:  methodSessionDelete,
		Params:  deleteParams{Code: reasonDisconnected, Message: "User disconnected."},
	}
	err := c.publish(topic, req)

	c.mu.Lock()
	if c.session == topic {
		c.session = ""
	}
	c.mu.Unlock()
	return err
}

// Close drops the bridge connection. The read loop exits on its own.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.cipher = nil
	c.pairing = ""
	c.session = ""
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) nextID() int64 {
	return c.rpcID.Add(1)
}

// publish seals v and sends it as a pub message on topic.
func (c *Client) publish(topic string, v any) error {
	c.mu.Lock()
	cph := c.cipher
	c.mu.Unlock()
	if cph == nil {
		return ErrNotPaired
	}

	plaintext, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	env, err := cph.seal(plaintext)
	if err != nil {
		return err
	}
	envJSON, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encoding envelope: %w", err)
	}
	return c.writeMsg(message{Topic: topic, Type: typePub, Payload: string(envJSON), Silent: true})
}

func (c *Client) writeMsg(msg message) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotPaired
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, msg.marshal()); err != nil {
		return fmt.Errorf("writing bridge message: %w", err)
	}
	return nil
}

// readLoop drains the connection until it fails, dispatching each pub
// to the registered handler. The loop does not reconnect; the error
// lands on Errors and a new Pair starts over.
func (c *Client) readLoop(conn *websocket.Conn) {
	defer func() {
		c.mu.Lock()
		if c.conn == conn {
			c.conn = nil
		}
		c.mu.Unlock()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			select {
			case c.errs <- err:
			default:
			}
			c.log.Warn("bridge connection lost", "error", err)
			return
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warn("discarding unparseable bridge message", "error", err)
			continue
		}
		if msg.Type != typePub || msg.Payload == "" {
			continue
		}

		// Ack before processing; the bridge redelivers unacked messages.
		if err := c.writeMsg(message{Topic: msg.Topic, Type: typeAck, Silent: true}); err != nil {
			c.log.Warn("acking bridge message", "error", err)
		}

		c.handleInbound(msg)
	}
}

func (c *Client) handleInbound(msg message) {
	c.mu.Lock()
	cph, handler := c.cipher, c.handler
	c.mu.Unlock()
	if cph == nil {
		return
	}

	var env payloadEnvelope
	if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
		c.log.Warn("discarding unparseable payload envelope", slog.String("topic", msg.Topic), "error", err)
		return
	}
	plaintext, err := cph.open(env)
	if err != nil {
		c.log.Warn("discarding undecryptable payload", slog.String("topic", msg.Topic), "error", err)
		return
	}

	method := gjson.GetBytes(plaintext, "method").String()
	id := gjson.GetBytes(plaintext, "id").Int()

	if handler == nil {
		c.log.Debug("no handler attached, dropping message", slog.String("method", method))
		return
	}

	// Handler callbacks run on their own goroutines: a request sitting in
	// an open approval window must not stall the read loop, and later
	// traffic (including delete and ping) keeps flowing meanwhile.
	ctx := context.Background()
	switch method {
	case methodSessionPropose:
		var body struct {
			Params proposeParams `json:"params"`
		}
		if err := json.Unmarshal(plaintext, &body); err != nil {
			c.log.Warn("discarding malformed session proposal", "error", err)
			return
		}
		go handler.OnSessionProposal(ctx, walletconnect.Proposal{
			ID:                 id,
			PairingTopic:       msg.Topic,
			Proposer:           dappMetadata(body.Params.Proposer.Metadata),
			RequiredNamespaces: requiredNamespaces(body.Params.RequiredNamespaces),
		})
	case methodSessionRequest:
		var body struct {
			Params sessionRequestParams `json:"params"`
		}
		if err := json.Unmarshal(plaintext, &body); err != nil {
			c.log.Warn("discarding malformed session request", "error", err)
			return
		}
		go handler.OnSessionRequest(ctx, walletconnect.RequestEvent{
			ID:      id,
			Topic:   msg.Topic,
			ChainID: body.Params.ChainID,
			Method:  body.Params.Request.Method,
			Params:  body.Params.Request.Params,
		})
	case methodSessionDelete:
		go handler.OnSessionDelete(ctx, msg.Topic)
	case methodSessionPing:
		go handler.OnSessionPing(ctx, msg.Topic)
	case "":
		// A response to something we published; nothing to route.
		c.log.Debug("bridge response", slog.Int64("id", id))
	default:
		c.log.Warn("unsupported session protocol method", slog.String("method", method))
	}
}

func dappMetadata(md peerMetadata) walletconnect.DappMetadata {
	return walletconnect.DappMetadata{
		Name:        md.Name,
		Description: md.Description,
		URL:         md.URL,
		Icons:       md.Icons,
	}
}

func requiredNamespaces(in map[string]proposalNamespace) map[string]walletconnect.ProposalNamespace {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]walletconnect.ProposalNamespace, len(in))
	for k, ns := range in {
		out[k] = walletconnect.ProposalNamespace{
			Chains:  ns.Chains,
			Methods: ns.Methods,
			Events:  ns.Events,
		}
	}
	return out
}
