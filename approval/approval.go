// Package approval coordinates the interactive user-approval round trip:
// a pending dApp request is described to a secondary window and exactly
// one decision comes back, approved or rejected.
package approval

import (
	"errors"
	"time"
)

var (
	// ErrUnknownPrompt indicates a decision arrived for a prompt that
	// does not exist or was already resolved.
	ErrUnknownPrompt = errors.New("unknown prompt")
)

// Prompt describes one pending action to the approval window. Only the
// fields relevant to the prompt's method are populated.
type Prompt struct {
	ID       string `json:"id"`
	Method   string `json:"method"`
	Question string `json:"question"`
	ImageRef string `json:"image_ref,omitempty"`

	DappName string `json:"dapp_name,omitempty"`
	DappURL  string `json:"dapp_url,omitempty"`
	DappImg  string `json:"dapp_img,omitempty"`

	Message     string   `json:"message,omitempty"`
	Ciphertexts []string `json:"ciphertexts,omitempty"`
	ProgramID   string   `json:"program_id,omitempty"`
	FunctionID  string   `json:"function_id,omitempty"`
	Inputs      []string `json:"inputs,omitempty"`
	Fee         float64  `json:"fee,omitempty"`
	AssetID     string   `json:"asset_id,omitempty"`
	ProgramIDs  []string `json:"program_ids,omitempty"`
	Type        string   `json:"type,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Decision is the user's answer to a prompt. FeeOption carries the
// fee-privacy choice for create-event prompts.
type Decision struct {
	Approved  bool `json:"approved"`
	FeeOption bool `json:"fee_option,omitempty"`
}

// Surface is the secondary window the prompts render in. Implementations
// hand prompts to the shell process; they do not render anything
// themselves.
type Surface interface {
	// Open creates the window, or reuses it if already open.
	Open() error
	// Present emits a prompt description to the open window.
	Present(p Prompt) error
	// Close tears the window down.
	Close() error
}
