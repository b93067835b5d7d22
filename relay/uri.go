// Package relay implements the pairing/session transport over a
// WalletConnect bridge: a websocket pub/sub of encrypted JSON-RPC
// payloads, keyed by the symmetric key carried in the pairing URI.
package relay

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/kestrelwallet/walletbridge/internal/util"
)

var (
	// ErrMalformedURI indicates a pairing URI that does not follow the
	// wc:<topic>@<version>?... form.
	ErrMalformedURI = errors.New("malformed pairing URI")
)

// Pairing is the parsed content of a wc: pairing URI.
type Pairing struct {
	Topic    string
	Version  string
	Protocol string
	SymKey   []byte
}

// ParseURI parses a pairing URI of the form
// wc:<topic>@<version>?relay-protocol=<proto>&symKey=<hex>.
func ParseURI(uri string) (Pairing, error) {
	rest, ok := strings.CutPrefix(uri, "wc:")
	if !ok {
		return Pairing{}, fmt.Errorf("%w: missing wc: scheme", ErrMalformedURI)
	}

	head, query, _ := strings.Cut(rest, "?")
	topic, version, ok := strings.Cut(head, "@")
	if !ok || topic == "" || version == "" {
		return Pairing{}, fmt.Errorf("%w: missing topic or version", ErrMalformedURI)
	}

	params, err := url.ParseQuery(query)
	if err != nil {
		return Pairing{}, fmt.Errorf("%w: %v", ErrMalformedURI, err)
	}

	keyHex := params.Get("symKey")
	if keyHex == "" {
		return Pairing{}, fmt.Errorf("%w: missing symKey", ErrMalformedURI)
	}
	key, err := util.HexDecode(keyHex)
	if err != nil {
		return Pairing{}, fmt.Errorf("%w: symKey is not hex", ErrMalformedURI)
	}
	if len(key) != symKeyLength {
		return Pairing{}, fmt.Errorf("%w: symKey must be %d bytes", ErrMalformedURI, symKeyLength)
	}

	return Pairing{
		Topic:    topic,
		Version:  version,
		Protocol: params.Get("relay-protocol"),
		SymKey:   key,
	}, nil
}
