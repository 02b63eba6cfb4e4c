package secret

import (
	"errors"
	"fmt"
	"strings"

	"github.com/99designs/keyring"
)

type keyringStore struct {
	service string
	ring    keyring.Keyring
}

// NewKeyringStore tries to open the OS keyring via 99designs/keyring.
// If it fails, returns an error so callers can fallback to memory.
func NewKeyringStore(serviceName string) (Store, error) {
	r, err := keyring.Open(keyring.Config{ServiceName: serviceName})
	if err != nil {
		return nil, err
	}
	return &keyringStore{service: serviceName, ring: r}, nil
}

func makeKey(host, share string) string { return fmt.Sprintf("%s|%s", host, share) }

func (s *keyringStore) Get(host, share string) (Credentials, bool, error) {
	item, err := s.ring.Get(makeKey(host, share))
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return Credentials{}, false, nil
		}
		return Credentials{}, false, err
	}
	return decodeItem(item), true, nil
}

func (s *keyringStore) Set(host, share string, c Credentials) error {
	return s.ring.Set(encodeItem(makeKey(host, share), s.service, c))
}

func (s *keyringStore) Delete(host, share string) error {
	return s.ring.Remove(makeKey(host, share))
}

// The user is kept in the item description as "domain\user"; the password
// is the item data.
func encodeItem(key, label string, c Credentials) keyring.Item {
	desc := c.Username
	if c.Domain != "" {
		desc = c.Domain + "\\" + c.Username
	}
	return keyring.Item{Key: key, Data: []byte(c.Password), Description: desc, Label: label}
}

func decodeItem(item keyring.Item) Credentials {
	var c Credentials
	if i := strings.IndexAny(item.Description, `\;`); i >= 0 {
		c.Domain = item.Description[:i]
		c.Username = item.Description[i+1:]
	} else {
		c.Username = item.Description
	}
	c.Password = string(item.Data)
	return c
}
