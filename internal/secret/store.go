package secret

import "sync"

// Credentials are SMB authentication parameters for one host/share.
type Credentials struct {
	Domain   string
	Username string
	Password string
}

// Empty reports whether no field is set.
func (c Credentials) Empty() bool {
	return c.Domain == "" && c.Username == "" && c.Password == ""
}

// Store abstracts a secure credentials store (e.g., OS keyring).
// Implementations should be safe to call from multiple goroutines.
type Store interface {
	Get(host, share string) (c Credentials, found bool, err error)
	Set(host, share string, c Credentials) error
	Delete(host, share string) error
}

// MemoryStore keeps credentials for the life of the process. It is the
// fallback when no OS keyring is reachable.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Credentials
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Credentials)}
}

func (s *MemoryStore) Get(host, share string) (Credentials, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.items[makeKey(host, share)]
	return c, ok, nil
}

func (s *MemoryStore) Set(host, share string, c Credentials) error {
	s.mu.Lock()
	s.items[makeKey(host, share)] = c
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(host, share string) error {
	s.mu.Lock()
	delete(s.items, makeKey(host, share))
	s.mu.Unlock()
	return nil
}

// Open returns the OS keyring store, or a MemoryStore when the keyring
// cannot be opened.
func Open(serviceName string) (Store, error) {
	s, err := NewKeyringStore(serviceName)
	if err != nil {
		return NewMemoryStore(), err
	}
	return s, nil
}
