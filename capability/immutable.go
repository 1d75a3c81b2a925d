package capability

import (
	"context"
	"fmt"

	"github.com/goliatone/go-appsession/core"
)

// ImmutableData operates on immutable data handles.
type ImmutableData struct {
	registry *core.HandleRegistry
}

func NewImmutableData(registry *core.HandleRegistry) *ImmutableData {
	return &ImmutableData{registry: registry}
}

func (d *ImmutableData) resolve(ctx context.Context, handle core.Handle) (core.ImmutableData, error) {
	if d == nil || d.registry == nil {
		return nil, fmt.Errorf("capability: immutable data adapter is not configured")
	}
	native, err := d.registry.Resolve(ctx, handle)
	if err != nil {
		return nil, capabilityError(err, handle, "immutable data")
	}
	data, ok := native.(core.ImmutableData)
	if !ok {
		return nil, wrongTypeError(handle, "immutable data", native)
	}
	return data, nil
}

func (d *ImmutableData) Read(ctx context.Context, handle core.Handle) ([]byte, error) {
	data, err := d.resolve(ctx, handle)
	if err != nil {
		return nil, err
	}
	body, err := data.Read(ctx)
	if err != nil {
		return nil, capabilityError(err, handle, "immutable data")
	}
	return body, nil
}

func (d *ImmutableData) Free(ctx context.Context, handle core.Handle) error {
	if d == nil || d.registry == nil {
		return fmt.Errorf("capability: immutable data adapter is not configured")
	}
	if _, err := d.resolve(ctx, handle); err != nil {
		return err
	}
	if err := d.registry.Free(handle); err != nil {
		return capabilityError(err, handle, "immutable data")
	}
	return nil
}
