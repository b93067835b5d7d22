package relay

import "encoding/json"

// Bridge message types.
const (
	typePub = "pub"
	typeSub = "sub"
	typeAck = "ack"
)

// Session protocol methods carried inside encrypted payloads.
const (
	methodSessionPropose = "wc_sessionPropose"
	methodSessionRequest = "wc_sessionRequest"
	methodSessionDelete  = "wc_sessionDelete"
	methodSessionPing    = "wc_sessionPing"
)

// message is the bridge envelope. Payload is empty for sub/ack and holds
// a JSON payloadEnvelope for pub.
type message struct {
	Topic   string `json:"topic"`
	Type    string `json:"type"`
	Payload string `json:"payload"`
	Silent  bool   `json:"silent"`
}

func (m message) marshal() []byte {
	data, _ := json.Marshal(m)
	return data
}

// payloadEnvelope wraps one encrypted JSON-RPC payload.
type payloadEnvelope struct {
	Data  string `json:"data"`
	Nonce string `json:"nonce"`
}

// rpcRequest is an outbound JSON-RPC request inside a sealed payload.
type rpcRequest struct {
	ID      int64  `json:"id"`
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// rpcError mirrors the JSON-RPC error object on outbound responses.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// rpcResponse is an outbound JSON-RPC response inside a sealed payload.
type rpcResponse struct {
	ID      int64     `json:"id"`
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

// Wire shapes of the inbound session protocol params.

type proposeParams struct {
	Proposer struct {
		PublicKey string       `json:"publicKey"`
		Metadata  peerMetadata `json:"metadata"`
	} `json:"proposer"`
	RequiredNamespaces map[string]proposalNamespace `json:"requiredNamespaces"`
}

type peerMetadata struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Icons       []string `json:"icons"`
}

type proposalNamespace struct {
	Chains  []string `json:"chains"`
	Methods []string `json:"methods"`
	Events  []string `json:"events"`
}

type sessionRequestParams struct {
	ChainID string `json:"chainId"`
	Request struct {
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	} `json:"request"`
}

// approveResult is the payload answering a session proposal.
type approveResult struct {
	Relay struct {
		Protocol string `json:"protocol"`
	} `json:"relay"`
	Namespaces any `json:"namespaces"`
}

type deleteParams struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
