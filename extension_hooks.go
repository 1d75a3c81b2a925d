package appsession

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-appsession/dispatch"
	"github.com/goliatone/go-appsession/network"
)

// TransportPack groups authenticator channels a host wants registered
// together, for example the channels one platform integration ships.
type TransportPack struct {
	Name     string
	Adapters []dispatch.Adapter
}

// NetworkSeedPack groups devkit network fixtures: containers, sites, and
// grant policy options applied when a development network is built.
type NetworkSeedPack struct {
	Name    string
	Options []network.Option
}

type CommandQueryBundleFactory func(service CommandQueryService) (any, error)

type ExtensionHooks struct {
	mu sync.RWMutex

	transportPacks map[string]TransportPack
	seedPacks      map[string]NetworkSeedPack
	bundles        map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		transportPacks: map[string]TransportPack{},
		seedPacks:      map[string]NetworkSeedPack{},
		bundles:        map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterTransportPack(pack TransportPack) error {
	if h == nil {
		return fmt.Errorf("appsession: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("appsession: transport pack name is required")
	}
	if len(pack.Adapters) == 0 {
		return fmt.Errorf("appsession: transport pack %q has no adapters", name)
	}

	normalized := TransportPack{
		Name:     name,
		Adapters: append([]dispatch.Adapter(nil), pack.Adapters...),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.transportPacks[name]; exists {
		return fmt.Errorf("appsession: transport pack %q already registered", name)
	}
	h.transportPacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterNetworkSeedPack(pack NetworkSeedPack) error {
	if h == nil {
		return fmt.Errorf("appsession: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("appsession: network seed pack name is required")
	}
	if len(pack.Options) == 0 {
		return fmt.Errorf("appsession: network seed pack %q has no options", name)
	}

	normalized := NetworkSeedPack{
		Name:    name,
		Options: append([]network.Option(nil), pack.Options...),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.seedPacks[name]; exists {
		return fmt.Errorf("appsession: network seed pack %q already registered", name)
	}
	h.seedPacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(
	name string,
	factory CommandQueryBundleFactory,
) error {
	if h == nil {
		return fmt.Errorf("appsession: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("appsession: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("appsession: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("appsession: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

func (h *ExtensionHooks) ApplyTransportPacks(registry *dispatch.Registry) error {
	if h == nil {
		return nil
	}
	if registry == nil {
		return fmt.Errorf("appsession: dispatch registry is required")
	}

	packs := h.TransportPacks()
	for _, pack := range packs {
		for _, adapter := range pack.Adapters {
			if adapter == nil {
				return fmt.Errorf("appsession: transport pack %q contains nil adapter", pack.Name)
			}
			if err := registry.Register(adapter); err != nil {
				return err
			}
		}
	}
	return nil
}

// BuildDevNetwork assembles an in-memory network from every registered seed
// pack, applied in pack-name order.
func (h *ExtensionHooks) BuildDevNetwork(extra ...network.Option) *network.InMemory {
	options := []network.Option{}
	for _, pack := range h.NetworkSeedPacks() {
		options = append(options, pack.Options...)
	}
	options = append(options, extra...)
	return network.New(options...)
}

func (h *ExtensionHooks) BuildCommandQueryBundles(
	service CommandQueryService,
) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if service == nil {
		return nil, fmt.Errorf("appsession: command/query service is required")
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		factories[name] = factory
	}
	h.mu.RUnlock()

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](service)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) TransportPacks() []TransportPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.transportPacks))
	for name := range h.transportPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]TransportPack, 0, len(names))
	for _, name := range names {
		pack := h.transportPacks[name]
		out = append(out, TransportPack{
			Name:     pack.Name,
			Adapters: append([]dispatch.Adapter(nil), pack.Adapters...),
		})
	}
	return out
}

func (h *ExtensionHooks) NetworkSeedPacks() []NetworkSeedPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.seedPacks))
	for name := range h.seedPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]NetworkSeedPack, 0, len(names))
	for _, name := range names {
		pack := h.seedPacks[name]
		out = append(out, NetworkSeedPack{
			Name:    pack.Name,
			Options: append([]network.Option(nil), pack.Options...),
		})
	}
	return out
}

func (h *ExtensionHooks) BundleNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
