package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type handleEntry struct {
	native any
	owner  Handle
}

// HandleRegistry is the single shared mutable structure of the session
// layer: it maps opaque handle tokens to native references. Ownership of a
// native reference is exclusive to its entry; callers must free every handle
// they obtain — the registry performs no automatic reclamation, and a
// forgotten free leaks the native resource.
type HandleRegistry struct {
	mu         sync.Mutex
	maxHandles int
	entries    map[Handle]handleEntry
}

// NewHandleRegistry builds a registry. maxHandles bounds concurrent
// allocations; zero means unbounded.
func NewHandleRegistry(maxHandles int) *HandleRegistry {
	if maxHandles < 0 {
		maxHandles = 0
	}
	return &HandleRegistry{
		maxHandles: maxHandles,
		entries:    map[Handle]handleEntry{},
	}
}

// Allocate registers a fresh native reference and returns its handle. owner
// is a non-owning back-reference used for cross-session scope checks; it is
// never consulted for lifetime control. Fails only when the configured
// capacity is exhausted.
func (r *HandleRegistry) Allocate(native any, owner Handle) (Handle, error) {
	if r == nil {
		return "", fmt.Errorf("core: handle registry is nil")
	}
	if native == nil {
		return "", fmt.Errorf("core: native reference is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.maxHandles > 0 && len(r.entries) >= r.maxHandles {
		return "", fmt.Errorf("%w: %d handles allocated", ErrResourceExhausted, len(r.entries))
	}
	handle := Handle(uuid.NewString())
	for {
		if _, exists := r.entries[handle]; !exists {
			break
		}
		handle = Handle(uuid.NewString())
	}
	r.entries[handle] = handleEntry{native: native, owner: owner}
	return handle, nil
}

// Resolve returns the native reference behind a handle. The returned
// reference is only valid for the scope of the calling operation; holding a
// long-lived copy outside the registry is a caller error.
func (r *HandleRegistry) Resolve(ctx context.Context, handle Handle) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("core: handle registry is nil")
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	entry, ok := r.entries[handle]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHandle, handle)
	}
	return entry.native, nil
}

// ResolveOwned resolves a handle and verifies it belongs to the given owner
// session. A handle owned by a different session resolves as unknown.
func (r *HandleRegistry) ResolveOwned(ctx context.Context, handle Handle, owner Handle) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("core: handle registry is nil")
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	r.mu.Lock()
	entry, ok := r.entries[handle]
	r.mu.Unlock()
	if !ok || entry.owner != owner {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHandle, handle)
	}
	return entry.native, nil
}

// Free removes an entry and releases its native reference. The removal is
// atomic with respect to Resolve: a racing Resolve either observes the
// still-valid entry or fails with unknown handle, never a partially released
// object. Freeing an unknown or already-freed handle reports unknown handle;
// the miss never disturbs other live entries.
func (r *HandleRegistry) Free(handle Handle) error {
	if r == nil {
		return fmt.Errorf("core: handle registry is nil")
	}

	r.mu.Lock()
	entry, ok := r.entries[handle]
	if ok {
		delete(r.entries, handle)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, handle)
	}
	// Release outside the lock: the entry is already unreachable, and native
	// teardown must not block unrelated allocate/resolve traffic.
	if releaser, ok := entry.native.(Releaser); ok {
		releaser.Release()
	}
	return nil
}

func (r *HandleRegistry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
