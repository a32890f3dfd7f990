package jwk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jose-engine/jose/pkg/metrics"
)

// Set is a JWK set as defined in RFC 7517.
//
// https://datatracker.ietf.org/doc/html/rfc7517#section-5
type Set struct {
	// Keys is a list of JWK values.
	//
	// https://datatracker.ietf.org/doc/html/rfc7517#section-5.1
	Keys []Value `json:"keys"`
}

// Validate validates the JWK set, returning an error if any
// of the supported keys are invalid.
func (s *Set) Validate() error {
	if len(s.Keys) == 0 {
		return fmt.Errorf("no key values in JWK set")
	}

	for i, key := range s.Keys {
		if !supported(key) {
			continue
		}
		err := Validate(key)
		if err != nil {
			return fmt.Errorf("key set validation error at index %d: %w", i, err)
		}
	}

	return nil
}

// KeySet converts the JWK set to a KeySet, keeping document order.
// Keys of a type this package does not model (such as "EC") are
// skipped; malformed RSA or symmetric keys are an error.
func (s *Set) KeySet() (KeySet, error) {
	ks := make(KeySet, 0, len(s.Keys))

	for i, value := range s.Keys {
		if !supported(value) {
			continue
		}

		key, err := ParseKey(value)
		if err != nil {
			return nil, fmt.Errorf("key at index %d: %w", i, err)
		}

		entry := Entry{Key: key}
		if kid, ok := value[KeyID].(string); ok {
			entry.KeyID = kid
		}
		if alg, ok := value[Algorithm].(string); ok {
			entry.Algorithm = alg
		}

		ks = append(ks, entry)
	}

	return ks, nil
}

func supported(v Value) bool {
	switch v[KeyType] {
	case KeyTypeRSA, KeyTypeOctet:
		return true
	}
	return false
}

// Entry is a key together with the "kid" and "alg" it was published with.
type Entry struct {
	KeyID     string
	Key       Key
	Algorithm string
}

// KeySet is an ordered collection of keys used for verification-time
// lookup.
type KeySet []Entry

// Lookup returns the first entry whose key ID equals kid and whose
// algorithm is either unset or equal to alg. It returns ErrKeyNotFound
// when nothing matches.
func (ks KeySet) Lookup(kid, alg string) (Entry, error) {
	for _, entry := range ks {
		if entry.KeyID != kid {
			continue
		}
		if entry.Algorithm != "" && entry.Algorithm != alg {
			continue
		}
		return entry, nil
	}

	return Entry{}, fmt.Errorf("%w: kid %q", ErrKeyNotFound, kid)
}

// FetchSet fetches a JWK set from the given URL and HTTP client.
func FetchSet(ctx context.Context, url string, client *http.Client) (*Set, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWK set request: %w", err)
	}
	req.Header.Set("Accept", "application/jwk-set+json, application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWK set: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch JWK set: %s", resp.Status)
	}

	var set Set
	err = json.NewDecoder(resp.Body).Decode(&set)
	if err != nil {
		return nil, fmt.Errorf("failed to decode JWK set: %w", err)
	}

	err = set.Validate()
	if err != nil {
		return nil, fmt.Errorf("failed to validate JWK set: %w", err)
	}

	return &set, nil
}

// URLSetCache is a cache of key sets keyed by URL that can be used to
// verify messages from multiple issuers. Key sets are fetched on first
// use, re-fetched after they expire, and re-fetched once when a lookup
// misses so that rotated keys are picked up.
type URLSetCache struct {
	mutex sync.RWMutex

	// sets is a map of key sets keyed by URL.
	sets map[string]KeySet

	// expiry is the time each cached set must be re-fetched, keyed by URL.
	expiry map[string]time.Time

	// client is the HTTP client used to fetch JWK sets.
	client *http.Client

	// cacheDuration is the amount of time to cache JWK sets.
	cacheDuration time.Duration

	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// CacheOption configures a URLSetCache.
type CacheOption func(*URLSetCache)

// WithCacheLogger sets the logger used by the cache.
func WithCacheLogger(logger *zap.Logger) CacheOption {
	return func(c *URLSetCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCacheMetrics records fetch attempts in m.
func WithCacheMetrics(m *metrics.Metrics) CacheOption {
	return func(c *URLSetCache) {
		c.metrics = m
	}
}

// NewURLSetCache returns a new JWK set cache.
func NewURLSetCache(client *http.Client, cacheDuration time.Duration, opts ...CacheOption) *URLSetCache {
	if client == nil {
		client = http.DefaultClient
	}
	if cacheDuration <= 0 {
		cacheDuration = time.Hour
	}

	c := &URLSetCache{
		sets:          make(map[string]KeySet),
		expiry:        make(map[string]time.Time),
		client:        client,
		cacheDuration: cacheDuration,
		logger:        zap.NewNop(),
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Get returns the key set for the given URL, fetching it if it is not
// already cached or the cached copy has expired.
func (c *URLSetCache) Get(ctx context.Context, url string) (KeySet, error) {
	c.mutex.RLock()
	set, cached := c.sets[url]
	expiry := c.expiry[url]
	c.mutex.RUnlock()

	if !cached || c.now().After(expiry) {
		return c.Fetch(ctx, url)
	}
	return set, nil
}

// GetKey returns the entry matching kid and alg from the key set at url.
// A miss on a cached set triggers a single re-fetch before ErrKeyNotFound
// is returned.
func (c *URLSetCache) GetKey(ctx context.Context, url, kid, alg string) (Entry, error) {
	set, err := c.Get(ctx, url)
	if err != nil {
		return Entry{}, err
	}

	entry, err := set.Lookup(kid, alg)
	if err == nil || !errors.Is(err, ErrKeyNotFound) {
		return entry, err
	}

	c.logger.Debug("key not in cached JWK set, refetching",
		zap.String("url", url),
		zap.String("kid", kid),
	)

	set, err = c.Fetch(ctx, url)
	if err != nil {
		return Entry{}, err
	}

	return set.Lookup(kid, alg)
}

// Fetch fetches the JWK set for the given URL and stores it in the cache.
func (c *URLSetCache) Fetch(ctx context.Context, url string) (KeySet, error) {
	set, err := FetchSet(ctx, url, c.client)
	if err == nil {
		var ks KeySet
		ks, err = set.KeySet()
		if err == nil {
			c.mutex.Lock()
			c.sets[url] = ks
			c.expiry[url] = c.now().Add(c.cacheDuration)
			c.mutex.Unlock()

			c.metrics.RecordJWKSFetch(nil)
			c.logger.Debug("fetched JWK set", zap.String("url", url), zap.Int("keys", len(ks)))
			return ks, nil
		}
	}

	c.metrics.RecordJWKSFetch(err)
	c.logger.Warn("failed to fetch JWK set", zap.String("url", url), zap.Error(err))
	return nil, fmt.Errorf("failed to fetch JWK set: %w", err)
}

// RefreshAll re-fetches all JWK sets in the cache.
func (c *URLSetCache) RefreshAll(ctx context.Context) error {
	c.mutex.RLock()
	urls := make([]string, 0, len(c.sets))
	for url := range c.sets {
		urls = append(urls, url)
	}
	c.mutex.RUnlock()

	for _, url := range urls {
		if _, err := c.Fetch(ctx, url); err != nil {
			return fmt.Errorf("failed to refresh JWK set for %q: %w", url, err)
		}
	}
	return nil
}

// Start refreshes the cached JWK sets at the given interval. It blocks
// until the context is canceled. Refresh failures are logged and the
// previously cached sets are kept.
//
// Most callers will want to call this in a goroutine after creating the cache.
func (c *URLSetCache) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.RefreshAll(ctx); err != nil {
				c.logger.Warn("JWK set refresh failed", zap.Error(err))
			}
		}
	}
}
