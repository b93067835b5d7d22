package relay

import (
	"bytes"
	"testing"

	"github.com/kestrelwallet/walletbridge/internal/util"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := util.RandomBytes(32)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	return key
}

func TestSealOpenRoundTrip(t *testing.T) {
	c := newCipher(testKey(t))

	plaintext := []byte(`{"id":1,"jsonrpc":"2.0","method":"wc_sessionPing"}`)
	env, err := c.seal(plaintext)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if env.Data == "" || env.Nonce == "" {
		t.Fatal("envelope fields must be populated")
	}

	got, err := c.open(env)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("round trip mismatch: %q", got)
	}
}

func TestSealProducesFreshNonces(t *testing.T) {
	c := newCipher(testKey(t))

	a, err := c.seal([]byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.seal([]byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	if a.Nonce == b.Nonce {
		t.Error("nonce reuse across seals")
	}
	if a.Data == b.Data {
		t.Error("identical ciphertexts for fresh nonces")
	}
}

func TestOpenRejectsTampering(t *testing.T) {
	c := newCipher(testKey(t))

	env, err := c.seal([]byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	raw, err := util.HexDecode(env.Data)
	if err != nil {
		t.Fatal(err)
	}
	raw[0] ^= 0xff
	env.Data = util.HexEncode(raw)

	if _, err := c.open(env); err == nil {
		t.Fatal("tampered payload must not decrypt")
	}
}

func TestOpenRejectsForeignKey(t *testing.T) {
	env, err := newCipher(testKey(t)).seal([]byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := newCipher(testKey(t)).open(env); err == nil {
		t.Fatal("payload sealed under another pairing key must not decrypt")
	}
}

func TestDeriveSeparatesUses(t *testing.T) {
	key := testKey(t)
	c := newCipher(key)

	payloadKey, err := c.derive(infoPayloadKey)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	topicKey, err := c.derive(infoSessionTopic)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if len(payloadKey) != symKeyLength || len(topicKey) != symKeyLength {
		t.Fatalf("subkey lengths = %d, %d, want %d", len(payloadKey), len(topicKey), symKeyLength)
	}
	if bytes.Equal(payloadKey, topicKey) {
		t.Error("distinct info strings must yield distinct subkeys")
	}
	if bytes.Equal(payloadKey, key) {
		t.Error("subkey must not equal the pairing key")
	}

	again, err := newCipher(key).derive(infoPayloadKey)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !bytes.Equal(payloadKey, again) {
		t.Error("derivation must be deterministic for the same pairing key")
	}
}

func TestSessionTopicDerivation(t *testing.T) {
	key := testKey(t)

	a, err := newCipher(key).sessionTopic()
	if err != nil {
		t.Fatal(err)
	}
	b, err := newCipher(key).sessionTopic()
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("both peers must derive the same session topic")
	}
	if len(a) != 64 {
		t.Errorf("topic length = %d, want 64 hex chars", len(a))
	}

	other, err := newCipher(testKey(t)).sessionTopic()
	if err != nil {
		t.Fatal(err)
	}
	if a == other {
		t.Error("distinct pairings must not share a session topic")
	}
}
