// Package backend is the boundary to the wallet engine: the separate
// process that owns key material, balance computation, record scanning
// and signing. Every interaction is a named command with JSON-serializable
// request and response payloads.
package backend

import "context"

// Commands consumed by the WalletConnect bridge.
const (
	CommandGetAddress         = "get_address"
	CommandGetBalance         = "get_balance"
	CommandDecryptRecords     = "decrypt_records"
	CommandSign               = "sign"
	CommandRequestCreateEvent = "request_create_event"
	CommandGetEvent           = "get_event"
	CommandGetEvents          = "get_events"
	CommandGetRecords         = "get_records"
)

// Invoker executes a single engine command. On engine-reported failure
// the returned error is a *Error carrying the engine's taxonomy; any
// other error is a transport problem. resp may be nil when the caller
// does not need the payload.
type Invoker interface {
	Invoke(ctx context.Context, command string, req, resp any) error
}
