package network

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-appsession/core"
)

// memContainer is the shared backing store for one container. Sessions get
// lightweight views; releasing a view never destroys the data.
type memContainer struct {
	mu      sync.RWMutex
	name    string
	entries map[string][]byte
}

func newMemContainer(name string, entries map[string][]byte) *memContainer {
	cloned := make(map[string][]byte, len(entries))
	for key, value := range entries {
		cloned[key] = append([]byte(nil), value...)
	}
	return &memContainer{name: name, entries: cloned}
}

func (c *memContainer) view() *containerView {
	return &containerView{backing: c}
}

type containerView struct {
	backing *memContainer

	mu       sync.Mutex
	released bool
}

func (v *containerView) Name() string {
	return v.backing.name
}

func (v *containerView) Entries(ctx context.Context) (map[string][]byte, error) {
	if err := v.usable(ctx); err != nil {
		return nil, err
	}
	v.backing.mu.RLock()
	defer v.backing.mu.RUnlock()
	out := make(map[string][]byte, len(v.backing.entries))
	for key, value := range v.backing.entries {
		out[key] = append([]byte(nil), value...)
	}
	return out, nil
}

func (v *containerView) Get(ctx context.Context, key string) ([]byte, error) {
	if err := v.usable(ctx); err != nil {
		return nil, err
	}
	v.backing.mu.RLock()
	defer v.backing.mu.RUnlock()
	value, ok := v.backing.entries[key]
	if !ok {
		return nil, fmt.Errorf("network: entry %q not found in %q", key, v.backing.name)
	}
	return append([]byte(nil), value...), nil
}

func (v *containerView) Set(ctx context.Context, key string, value []byte) error {
	if err := v.usable(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("network: entry key is required")
	}
	v.backing.mu.Lock()
	v.backing.entries[key] = append([]byte(nil), value...)
	v.backing.mu.Unlock()
	return nil
}

func (v *containerView) Release() {
	v.mu.Lock()
	v.released = true
	v.mu.Unlock()
}

func (v *containerView) usable(ctx context.Context) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.released {
		return fmt.Errorf("network: container view is released")
	}
	return nil
}

var _ core.Container = (*containerView)(nil)
