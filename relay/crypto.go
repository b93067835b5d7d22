package relay

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/kestrelwallet/walletbridge/internal/util"
)

// Pairing symmetric keys and their derived subkeys are 32 bytes.
const symKeyLength = 32

// HKDF info strings separating the pairing key's derived uses.
var (
	infoPayloadKey   = []byte("walletbridge/payload-key")
	infoSessionTopic = []byte("walletbridge/session-topic")
)

// cipher seals and opens bridge payloads under keys derived from the
// pairing symmetric key. The pairing key itself lives in a memguard
// Enclave and is only materialized while deriving.
type cipher struct {
	symKey *memguard.Enclave
}

func newCipher(symKey []byte) *cipher {
	return &cipher{symKey: memguard.NewEnclave(symKey)}
}

// derive produces one HKDF-SHA256 subkey of the pairing key. Callers
// wipe the returned key when done.
func (c *cipher) derive(info []byte) ([]byte, error) {
	buf, err := c.symKey.Open()
	if err != nil {
		return nil, fmt.Errorf("opening pairing key enclave: %w", err)
	}
	defer buf.Destroy()

	key := make([]byte, symKeyLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, buf.Bytes(), nil, info), key); err != nil {
		return nil, fmt.Errorf("deriving subkey: %w", err)
	}
	return key, nil
}

// sessionTopic derives the session topic from the pairing key. Both
// peers compute the same topic without it ever crossing the wire.
func (c *cipher) sessionTopic() (string, error) {
	t, err := c.derive(infoSessionTopic)
	if err != nil {
		return "", err
	}
	defer util.WipeBytes(t)
	return util.HexEncode(t), nil
}

// seal encrypts one JSON-RPC payload with ChaCha20-Poly1305 under the
// derived payload key.
func (c *cipher) seal(plaintext []byte) (payloadEnvelope, error) {
	key, err := c.derive(infoPayloadKey)
	if err != nil {
		return payloadEnvelope{}, err
	}
	defer util.WipeBytes(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return payloadEnvelope{}, fmt.Errorf("creating AEAD: %w", err)
	}
	nonce, err := util.RandomBytes(aead.NonceSize())
	if err != nil {
		return payloadEnvelope{}, err
	}
	sealed := aead.Seal(nil, nonce, plaintext, nil)

	return payloadEnvelope{
		Data:  util.HexEncode(sealed),
		Nonce: util.HexEncode(nonce),
	}, nil
}

// open decrypts one inbound payload. Tampered or foreign-key payloads
// fail authentication.
func (c *cipher) open(env payloadEnvelope) ([]byte, error) {
	key, err := c.derive(infoPayloadKey)
	if err != nil {
		return nil, err
	}
	defer util.WipeBytes(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("creating AEAD: %w", err)
	}
	nonce, err := util.HexDecode(env.Nonce)
	if err != nil {
		return nil, fmt.Errorf("decoding nonce: %w", err)
	}
	sealed, err := util.HexDecode(env.Data)
	if err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("opening payload: %w", err)
	}
	return plaintext, nil
}
