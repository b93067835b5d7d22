// Package walletconnect implements the session bridge between third-party
// dApps and the wallet engine: session lifecycle over a relay transport,
// per-request user approval, and JSON-RPC responses back to the dApp.
package walletconnect

// Session is an established pairing between the wallet and one dApp.
// This wallet holds a single account, so at most one session is current
// at a time even though the transport can track several.
type Session struct {
	SessionTopic string   `json:"session_topic"`
	PairingTopic string   `json:"pairing_topic"`
	ChainID      string   `json:"chain_id"`
	Methods      []string `json:"methods"`
	Events       []string `json:"events"`
	Address      string   `json:"address"`
}

// DappMetadata describes the connecting dApp, as supplied by its
// proposal.
type DappMetadata struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url,omitempty"`
	Icons       []string `json:"icons,omitempty"`
}

// Icon returns the dApp's first icon reference, or empty.
func (m DappMetadata) Icon() string {
	if len(m.Icons) == 0 {
		return ""
	}
	return m.Icons[0]
}
