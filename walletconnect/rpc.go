package walletconnect

import (
	"encoding/json"
	"fmt"
)

// JSON-RPC error codes returned to dApps.
const (
	CodeUserRejected      = 4001
	CodeUnsupportedMethod = 4200
	CodeUnsupportedChain  = 4901
	CodeInternal          = -32000
)

// UserRejectedMessage is the fixed message for user-rejected requests.
const UserRejectedMessage = "the user rejected the request"

// Error is the JSON-RPC error object sent back over the relay.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Response is the JSON-RPC envelope answering one session request.
// Exactly one of Result and Error is set.
type Response struct {
	ID      int64           `json:"id"`
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// NewResult builds a success response, encoding v as the result. An
// encoding failure degrades to an internal error response so the caller
// still has something to send.
func NewResult(id int64, v any) Response {
	data, err := json.Marshal(v)
	if err != nil {
		return NewError(id, CodeInternal, fmt.Sprintf("encoding result: %v", err))
	}
	return Response{ID: id, JSONRPC: "2.0", Result: data}
}

// NewError builds an error response.
func NewError(id int64, code int, message string) Response {
	return Response{ID: id, JSONRPC: "2.0", Error: &Error{Code: code, Message: message}}
}

// NewUserRejected builds the fixed rejection response.
func NewUserRejected(id int64) Response {
	return NewError(id, CodeUserRejected, UserRejectedMessage)
}
