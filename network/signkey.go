package network

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"

	"github.com/goliatone/go-appsession/core"
)

type memSignKey struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey

	mu       sync.Mutex
	released bool
}

func (k *memSignKey) Raw(ctx context.Context) ([]byte, error) {
	if err := k.usable(ctx); err != nil {
		return nil, err
	}
	return append([]byte(nil), k.pub...), nil
}

func (k *memSignKey) Sign(ctx context.Context, message []byte) ([]byte, error) {
	if err := k.usable(ctx); err != nil {
		return nil, err
	}
	return ed25519.Sign(k.priv, message), nil
}

func (k *memSignKey) Verify(ctx context.Context, signature, message []byte) error {
	if err := k.usable(ctx); err != nil {
		return err
	}
	if !ed25519.Verify(k.pub, message, signature) {
		return fmt.Errorf("network: signature does not verify")
	}
	return nil
}

func (k *memSignKey) Release() {
	k.mu.Lock()
	k.released = true
	k.mu.Unlock()
}

func (k *memSignKey) usable(ctx context.Context) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.released {
		return fmt.Errorf("network: sign key is released")
	}
	return nil
}

var _ core.SignKey = (*memSignKey)(nil)
