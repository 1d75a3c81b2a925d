package capability

import (
	"context"
	"fmt"
	"sort"

	"github.com/goliatone/go-appsession/core"
)

// Containers operates on container handles.
type Containers struct {
	registry *core.HandleRegistry
}

func NewContainers(registry *core.HandleRegistry) *Containers {
	return &Containers{registry: registry}
}

func (c *Containers) resolve(ctx context.Context, handle core.Handle) (core.Container, error) {
	if c == nil || c.registry == nil {
		return nil, fmt.Errorf("capability: containers adapter is not configured")
	}
	native, err := c.registry.Resolve(ctx, handle)
	if err != nil {
		return nil, capabilityError(err, handle, "container")
	}
	container, ok := native.(core.Container)
	if !ok {
		return nil, wrongTypeError(handle, "container", native)
	}
	return container, nil
}

func (c *Containers) Name(ctx context.Context, handle core.Handle) (string, error) {
	container, err := c.resolve(ctx, handle)
	if err != nil {
		return "", err
	}
	return container.Name(), nil
}

// Keys lists the entry keys, sorted.
func (c *Containers) Keys(ctx context.Context, handle core.Handle) ([]string, error) {
	container, err := c.resolve(ctx, handle)
	if err != nil {
		return nil, err
	}
	entries, err := container.Entries(ctx)
	if err != nil {
		return nil, capabilityError(err, handle, "container")
	}
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (c *Containers) Entries(ctx context.Context, handle core.Handle) (map[string][]byte, error) {
	container, err := c.resolve(ctx, handle)
	if err != nil {
		return nil, err
	}
	entries, err := container.Entries(ctx)
	if err != nil {
		return nil, capabilityError(err, handle, "container")
	}
	return entries, nil
}

func (c *Containers) Get(ctx context.Context, handle core.Handle, key string) ([]byte, error) {
	container, err := c.resolve(ctx, handle)
	if err != nil {
		return nil, err
	}
	value, err := container.Get(ctx, key)
	if err != nil {
		return nil, capabilityError(err, handle, "container")
	}
	return value, nil
}

func (c *Containers) Set(ctx context.Context, handle core.Handle, key string, value []byte) error {
	container, err := c.resolve(ctx, handle)
	if err != nil {
		return err
	}
	if err := container.Set(ctx, key, value); err != nil {
		return capabilityError(err, handle, "container")
	}
	return nil
}

// Free releases the handle and its native container reference.
func (c *Containers) Free(ctx context.Context, handle core.Handle) error {
	if c == nil || c.registry == nil {
		return fmt.Errorf("capability: containers adapter is not configured")
	}
	if _, err := c.resolve(ctx, handle); err != nil {
		return err
	}
	if err := c.registry.Free(handle); err != nil {
		return capabilityError(err, handle, "container")
	}
	return nil
}
