package capability

import (
	"context"
	"fmt"

	"github.com/goliatone/go-appsession/core"
)

// SignKeys operates on sign key handles. Every method resolves the handle
// in the shared registry; the native key never crosses the boundary.
type SignKeys struct {
	registry *core.HandleRegistry
}

func NewSignKeys(registry *core.HandleRegistry) *SignKeys {
	return &SignKeys{registry: registry}
}

func (s *SignKeys) resolve(ctx context.Context, handle core.Handle) (core.SignKey, error) {
	if s == nil || s.registry == nil {
		return nil, fmt.Errorf("capability: sign keys adapter is not configured")
	}
	native, err := s.registry.Resolve(ctx, handle)
	if err != nil {
		return nil, capabilityError(err, handle, "sign key")
	}
	key, ok := native.(core.SignKey)
	if !ok {
		return nil, wrongTypeError(handle, "sign key", native)
	}
	return key, nil
}

// Raw returns the public key bytes.
func (s *SignKeys) Raw(ctx context.Context, handle core.Handle) ([]byte, error) {
	key, err := s.resolve(ctx, handle)
	if err != nil {
		return nil, err
	}
	raw, err := key.Raw(ctx)
	if err != nil {
		return nil, capabilityError(err, handle, "sign key")
	}
	return raw, nil
}

func (s *SignKeys) Sign(ctx context.Context, handle core.Handle, message []byte) ([]byte, error) {
	key, err := s.resolve(ctx, handle)
	if err != nil {
		return nil, err
	}
	signature, err := key.Sign(ctx, message)
	if err != nil {
		return nil, capabilityError(err, handle, "sign key")
	}
	return signature, nil
}

func (s *SignKeys) Verify(ctx context.Context, handle core.Handle, signature, message []byte) error {
	key, err := s.resolve(ctx, handle)
	if err != nil {
		return err
	}
	if err := key.Verify(ctx, signature, message); err != nil {
		return capabilityError(err, handle, "sign key")
	}
	return nil
}

// Free releases the handle and its native key.
func (s *SignKeys) Free(ctx context.Context, handle core.Handle) error {
	if s == nil || s.registry == nil {
		return fmt.Errorf("capability: sign keys adapter is not configured")
	}
	if _, err := s.resolve(ctx, handle); err != nil {
		return err
	}
	if err := s.registry.Free(handle); err != nil {
		return capabilityError(err, handle, "sign key")
	}
	return nil
}
