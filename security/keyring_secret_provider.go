package security

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/goliatone/go-appsession/core"
)

// KeyringSecretProvider holds several app-key providers and routes by the
// envelope's key metadata. New payloads are sealed with the current key;
// payloads sealed before a rotation stay readable as long as their key is
// still on the ring.
type KeyringSecretProvider struct {
	mu      sync.RWMutex
	keys    map[string]*AppKeySecretProvider
	current *AppKeySecretProvider
}

func NewKeyringSecretProvider(current *AppKeySecretProvider, previous ...*AppKeySecretProvider) (*KeyringSecretProvider, error) {
	if current == nil {
		return nil, fmt.Errorf("security: current key is required")
	}
	ring := &KeyringSecretProvider{
		keys:    map[string]*AppKeySecretProvider{},
		current: current,
	}
	for _, provider := range append([]*AppKeySecretProvider{current}, previous...) {
		if provider == nil {
			continue
		}
		ring.keys[ringKey(provider.KeyID(), provider.Version())] = provider
	}
	return ring, nil
}

// Rotate installs a new current key, keeping the old one for decryption.
func (r *KeyringSecretProvider) Rotate(next *AppKeySecretProvider) error {
	if r == nil {
		return fmt.Errorf("security: keyring is nil")
	}
	if next == nil {
		return fmt.Errorf("security: next key is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := ringKey(next.KeyID(), next.Version())
	if _, exists := r.keys[key]; exists && r.current != nil &&
		ringKey(r.current.KeyID(), r.current.Version()) == key {
		return fmt.Errorf("security: key %q is already current", key)
	}
	r.keys[key] = next
	r.current = next
	return nil
}

// KeyIDs lists the keys on the ring, sorted, for diagnostics.
func (r *KeyringSecretProvider) KeyIDs() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.keys))
	for id := range r.keys {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *KeyringSecretProvider) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("security: keyring is nil")
	}
	r.mu.RLock()
	current := r.current
	r.mu.RUnlock()
	if current == nil {
		return nil, fmt.Errorf("security: keyring has no current key")
	}
	return current.Encrypt(ctx, plaintext)
}

func (r *KeyringSecretProvider) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("security: keyring is nil")
	}
	meta, err := ParseEnvelopeMetadata(ciphertext)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	provider, ok := r.keys[ringKey(meta.KeyID, meta.Version)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("security: no key on ring for %q version %d", meta.KeyID, meta.Version)
	}
	return provider.Decrypt(ctx, ciphertext)
}

func ringKey(keyID string, version int) string {
	return fmt.Sprintf("%s#%d", keyID, version)
}

var _ core.SecretProvider = (*KeyringSecretProvider)(nil)
