package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-appsession/core"
)

// Adapter is one delivery channel to an out-of-process authenticator. It
// extends core.Authenticator with a kind tag so channels can be selected by
// configuration.
type Adapter interface {
	Kind() string
	Dispatch(ctx context.Context, descriptor core.AuthRequestDescriptor) error
}

type AdapterFactory func(config map[string]any) (Adapter, error)

// Registry maps channel kinds to adapters. Adapters register eagerly;
// factories build lazily on first request for kinds that need config.
type Registry struct {
	mu        sync.RWMutex
	adapters  map[string]Adapter
	factories map[string]AdapterFactory
}

func NewRegistry() *Registry {
	return &Registry{
		adapters:  map[string]Adapter{},
		factories: map[string]AdapterFactory{},
	}
}

// NewDefaultRegistry wires the channels a host environment commonly has:
// an HTTP endpoint channel and an in-process channel, plus placeholders
// for platform-specific kinds that need host wiring.
func NewDefaultRegistry() *Registry {
	registry := NewRegistry()
	_ = registry.Register(NewHTTPAdapter("", nil))
	_ = registry.Register(NewChannelAdapter(0))
	for _, kind := range []string{KindIPC, KindIntent} {
		_ = registry.RegisterFactory(kind, defaultUnsupportedFactory(kind))
	}
	return registry
}

func (r *Registry) Register(adapter Adapter) error {
	if r == nil {
		return fmt.Errorf("dispatch: registry is nil")
	}
	if adapter == nil {
		return fmt.Errorf("dispatch: adapter is nil")
	}
	kind := normalizeKind(adapter.Kind())
	if kind == "" {
		return fmt.Errorf("dispatch: adapter kind is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[kind]; exists {
		return fmt.Errorf("dispatch: adapter kind %q already registered", kind)
	}
	r.adapters[kind] = adapter
	return nil
}

func (r *Registry) RegisterFactory(kind string, factory AdapterFactory) error {
	if r == nil {
		return fmt.Errorf("dispatch: registry is nil")
	}
	kind = normalizeKind(kind)
	if kind == "" {
		return fmt.Errorf("dispatch: adapter kind is required")
	}
	if factory == nil {
		return fmt.Errorf("dispatch: adapter factory is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("dispatch: adapter factory kind %q already registered", kind)
	}
	r.factories[kind] = factory
	return nil
}

func (r *Registry) Build(kind string, config map[string]any) (Adapter, error) {
	if r == nil {
		return nil, fmt.Errorf("dispatch: registry is nil")
	}
	kind = normalizeKind(kind)
	if kind == "" {
		return nil, fmt.Errorf("dispatch: adapter kind is required")
	}

	r.mu.RLock()
	adapter, ok := r.adapters[kind]
	factory := r.factories[kind]
	r.mu.RUnlock()
	if ok {
		return adapter, nil
	}
	if factory == nil {
		return nil, fmt.Errorf("dispatch: adapter kind %q not registered", kind)
	}
	built, err := factory(cloneMap(config))
	if err != nil {
		return nil, err
	}
	if built == nil {
		return nil, fmt.Errorf("dispatch: factory for %q returned nil adapter", kind)
	}
	return built, nil
}

func (r *Registry) Get(kind string) (Adapter, bool) {
	if r == nil {
		return nil, false
	}
	kind = normalizeKind(kind)
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[kind]
	return adapter, ok
}

func (r *Registry) List() []Adapter {
	if r == nil {
		return []Adapter{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.adapters))
	for kind := range r.adapters {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	result := make([]Adapter, 0, len(kinds))
	for _, kind := range kinds {
		result = append(result, r.adapters[kind])
	}
	return result
}

func normalizeKind(kind string) string {
	return strings.TrimSpace(strings.ToLower(kind))
}

func defaultUnsupportedFactory(kind string) AdapterFactory {
	return func(config map[string]any) (Adapter, error) {
		reason := strings.TrimSpace(fmt.Sprint(config["reason"]))
		if reason == "<nil>" {
			reason = ""
		}
		return NewUnsupportedAdapter(kind, reason), nil
	}
}

func cloneMap(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	output := make(map[string]any, len(input))
	for key, value := range input {
		output[key] = value
	}
	return output
}
