package walletconnect

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/kestrelwallet/walletbridge/internal/util"
	"github.com/kestrelwallet/walletbridge/store"
)

// Approval grants live this long before a repeat request prompts again.
const grantTTL = time.Hour

// GrantKey builds the discriminator for a repeatable low-risk request:
// method + dApp name + method-specific fields, normalized so cosmetic
// differences don't defeat the cache. Components are escaped so a "/"
// inside one cannot masquerade as the separator and collide with a
// different tuple.
func GrantKey(method, dappName string, parts ...string) string {
	elems := make([]string, 0, len(parts)+2)
	elems = append(elems, url.PathEscape(util.Normalize(method)), url.PathEscape(util.Normalize(dappName)))
	for _, p := range parts {
		elems = append(elems, url.PathEscape(util.Normalize(p)))
	}
	return "grant:" + strings.Join(elems, "/")
}

// GrantCache remembers which (method, dApp, discriminator) tuples the
// user already approved, for one hour. Expired entries are reaped lazily
// when checked.
type GrantCache struct {
	store store.Store
	ttl   time.Duration
	now   func() time.Time
}

// GrantCacheOption configures a GrantCache.
type GrantCacheOption func(*GrantCache)

// WithTTL overrides the grant lifetime.
func WithTTL(ttl time.Duration) GrantCacheOption {
	return func(c *GrantCache) {
		c.ttl = ttl
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) GrantCacheOption {
	return func(c *GrantCache) {
		c.now = now
	}
}

// NewGrantCache creates a grant cache over the given store.
func NewGrantCache(s store.Store, opts ...GrantCacheOption) *GrantCache {
	c := &GrantCache{store: s, ttl: grantTTL, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Remember records that key was approved now; the grant lapses after the
// cache's TTL.
func (c *GrantCache) Remember(key string) error {
	expiry := c.now().Add(c.ttl).Format(time.RFC3339)
	return c.store.Put(key, []byte(expiry))
}

// Expired reports whether key has no live grant. A missing or lapsed
// entry is expired; lapsed entries are removed on the way out.
func (c *GrantCache) Expired(key string) bool {
	raw, ok := c.store.Get(key)
	if !ok {
		return true
	}
	expiry, err := time.Parse(time.RFC3339, string(raw))
	if err != nil || !c.now().Before(expiry) {
		c.store.Delete(key)
		return true
	}
	return false
}

// MetadataCache keeps each session's dApp metadata for the lifetime of
// the process, keyed by session topic.
type MetadataCache struct {
	store store.Store
}

// NewMetadataCache creates a metadata cache over the given store.
func NewMetadataCache(s store.Store) *MetadataCache {
	return &MetadataCache{store: s}
}

func (c *MetadataCache) Put(topic string, md DappMetadata) error {
	data, err := json.Marshal(md)
	if err != nil {
		return err
	}
	return c.store.Put("dapp:"+topic, data)
}

// Get returns the cached metadata for a session topic. Absence is not an
// error: callers proceed with an unknown dApp and empty descriptive
// fields.
func (c *MetadataCache) Get(topic string) (DappMetadata, bool) {
	raw, ok := c.store.Get("dapp:" + topic)
	if !ok {
		return DappMetadata{}, false
	}
	var md DappMetadata
	if err := json.Unmarshal(raw, &md); err != nil {
		return DappMetadata{}, false
	}
	return md, true
}

func (c *MetadataCache) Delete(topic string) error {
	return c.store.Delete("dapp:" + topic)
}
