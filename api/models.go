package api

import (
	"github.com/kestrelwallet/walletbridge/approval"
	"github.com/kestrelwallet/walletbridge/walletconnect"
)

// ErrorResponse is the JSON envelope for failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

// PairRequest carries the wc: URI scanned or pasted by the user.
type PairRequest struct {
	URI string `json:"uri"`
}

// SessionResponse describes the established session.
type SessionResponse struct {
	Session walletconnect.Session `json:"session"`
}

// ApprovalsResponse lists prompts awaiting a decision, oldest first.
type ApprovalsResponse struct {
	Approvals []approval.Prompt `json:"approvals"`
}

// DecisionRequest carries the user's answer to one prompt.
type DecisionRequest struct {
	Approved  bool `json:"approved"`
	FeeOption bool `json:"fee_option,omitempty"`
}

func decisionFromAPI(req DecisionRequest) approval.Decision {
	return approval.Decision{Approved: req.Approved, FeeOption: req.FeeOption}
}
