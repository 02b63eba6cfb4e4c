package smb

import (
	"strings"
	"sync"

	"docbridge/internal/secret"
)

// CredentialSource can programmatically provide credentials for a share.
type CredentialSource interface {
	Get(host, share string) (secret.Credentials, error)
}

// StaticCredentials returns the same credentials for every share.
type StaticCredentials secret.Credentials

func (s StaticCredentials) Get(host, share string) (secret.Credentials, error) {
	return secret.Credentials(s), nil
}

// credentialCache resolves credentials in order: memory, secret store,
// fallback source. Results from the store or fallback seed the memory cache.
type credentialCache struct {
	store    secret.Store
	fallback CredentialSource
	persist  bool

	mu    sync.RWMutex
	cache map[string]secret.Credentials
}

func newCredentialCache(store secret.Store, fallback CredentialSource, persist bool) *credentialCache {
	return &credentialCache{store: store, fallback: fallback, persist: persist, cache: make(map[string]secret.Credentials)}
}

func cacheKey(host, share string) string { return host + "\x00" + share }

func (c *credentialCache) get(host, share string) secret.Credentials {
	c.mu.RLock()
	cached, ok := c.cache[cacheKey(host, share)]
	c.mu.RUnlock()
	if ok && !cached.Empty() {
		return cached
	}
	if c.store != nil {
		if cr, found, _ := c.store.Get(host, share); found {
			c.put(host, share, cr)
			return cr
		}
	}
	if c.fallback == nil {
		return secret.Credentials{}
	}
	cr, err := c.fallback.Get(host, share)
	if err != nil {
		return secret.Credentials{}
	}
	c.put(host, share, cr)
	return cr
}

func (c *credentialCache) put(host, share string, cr secret.Credentials) {
	c.mu.Lock()
	c.cache[cacheKey(host, share)] = cr
	c.mu.Unlock()
}

// accepted runs after a successful mount and persists the credentials to
// the secret store when configured to.
func (c *credentialCache) accepted(host, share string, cr secret.Credentials) {
	if c.persist && c.store != nil && !cr.Empty() {
		_ = c.store.Set(host, share, cr)
	}
}

// rejected drops credentials the server refused so the next attempt
// consults the store and fallback again.
func (c *credentialCache) rejected(host, share string) {
	c.mu.Lock()
	delete(c.cache, cacheKey(host, share))
	c.mu.Unlock()
}

func isAuthError(err error) bool {
	if err == nil {
		return false
	}
	e := strings.ToLower(err.Error())
	return strings.Contains(e, "logon is invalid") ||
		strings.Contains(e, "bad username") ||
		strings.Contains(e, "authentication") ||
		strings.Contains(e, "status_logon_failure") ||
		strings.Contains(e, "access is denied")
}
