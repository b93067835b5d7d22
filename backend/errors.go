package backend

import "errors"

// Error is the engine's structured failure, decoded once at this
// boundary. ExternalMessage is safe to forward to a dApp; the internal
// message is for logs only.
type Error struct {
	Kind            string `json:"error_type"`
	InternalMessage string `json:"internal_msg"`
	ExternalMessage string `json:"external_msg"`
}

func (e *Error) Error() string {
	return e.ExternalMessage
}

// External returns the dApp-safe message for err if it is an engine
// error, or err's own message otherwise.
func External(err error) string {
	var be *Error
	if errors.As(err, &be) {
		return be.ExternalMessage
	}
	return err.Error()
}
