package walletconnect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelwallet/walletbridge/store"
)

func TestGrantKeyNormalization(t *testing.T) {
	a := GrantKey("getBalance", "Arcane.Finance", "credits")
	b := GrantKey("getbalance", "  ARCANE.FINANCE ", "Credits")
	assert.Equal(t, a, b, "cosmetic differences must not defeat the cache")

	c := GrantKey("getBalance", "Arcane.Finance", "other_token")
	assert.NotEqual(t, a, c)

	d := GrantKey("getRecords", "Arcane.Finance", "credits")
	assert.NotEqual(t, a, d)
}

func TestGrantKeySeparatorCannotCollide(t *testing.T) {
	a := GrantKey("getBalance", "a/b", "c")
	b := GrantKey("getBalance", "a", "b/c")
	assert.NotEqual(t, a, b, "a slash inside a component must not shift tuple boundaries")

	c := GrantKey("getBalance", "a", "b", "c")
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, b, c)
}

func TestGrantHonoredWithinTTL(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	cache := NewGrantCache(store.NewMemory(), WithClock(clock))

	key := GrantKey("getBalance", "dapp", "credits")
	assert.True(t, cache.Expired(key), "no grant yet")

	require.NoError(t, cache.Remember(key))
	assert.False(t, cache.Expired(key))

	// 10 minutes later, still live.
	now = now.Add(10 * time.Minute)
	assert.False(t, cache.Expired(key))

	// 59m59s after the grant: live. At exactly 1h: lapsed.
	now = now.Add(49*time.Minute + 59*time.Second)
	assert.False(t, cache.Expired(key))
	now = now.Add(time.Second)
	assert.True(t, cache.Expired(key))
}

func TestLapsedGrantRemovedOnCheck(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mem := store.NewMemory()
	cache := NewGrantCache(mem, WithClock(func() time.Time { return now }))

	key := GrantKey("getEvents", "dapp", "fn", "program")
	require.NoError(t, cache.Remember(key))

	now = now.Add(2 * time.Hour)
	assert.True(t, cache.Expired(key))

	_, ok := mem.Get(key)
	assert.False(t, ok, "lapsed entry must be deleted when checked")
}

func TestGrantMalformedEntryTreatedAsExpired(t *testing.T) {
	mem := store.NewMemory()
	cache := NewGrantCache(mem)

	mem.Put("grant:bad", []byte("not-a-timestamp"))
	assert.True(t, cache.Expired("grant:bad"))
	_, ok := mem.Get("grant:bad")
	assert.False(t, ok)
}

func TestMetadataCacheRoundTrip(t *testing.T) {
	cache := NewMetadataCache(store.NewMemory())

	md := DappMetadata{
		Name:        "Arcane Finance",
		Description: "DEX on Aleo",
		URL:         "https://arcane.example",
		Icons:       []string{"https://arcane.example/icon.png"},
	}
	require.NoError(t, cache.Put("topic-1", md))

	got, ok := cache.Get("topic-1")
	require.True(t, ok)
	assert.Equal(t, md, got)
	assert.Equal(t, "https://arcane.example/icon.png", got.Icon())

	_, ok = cache.Get("topic-unknown")
	assert.False(t, ok, "absence is not an error")

	require.NoError(t, cache.Delete("topic-1"))
	_, ok = cache.Get("topic-1")
	assert.False(t, ok)
}
