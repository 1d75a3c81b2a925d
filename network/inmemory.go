package network

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-appsession/core"
)

// InMemory is a self-contained network backend for development and tests.
// It keeps containers and granted URIs in process memory and hands out
// sessions that enforce the registered/unregistered split the way the real
// network does: anonymous sessions read public data only, registered
// sessions see the containers their grant names.
type InMemory struct {
	mu         sync.RWMutex
	containers map[string]*memContainer
	sites      map[string][]byte
	grants     map[string]core.PermissionSet
	acceptAll  bool
}

type Option func(*InMemory)

// WithContainer seeds a container with entries.
func WithContainer(name string, entries map[string][]byte) Option {
	return func(n *InMemory) {
		n.containers[name] = newMemContainer(name, entries)
	}
}

// WithSite maps a public URL to a body served to WebFetch.
func WithSite(url string, body []byte) Option {
	return func(n *InMemory) {
		n.sites[url] = append([]byte(nil), body...)
	}
}

// WithAcceptAnyGrant makes ConnectRegistered accept any non-empty URI,
// granting every container. Test-only convenience.
func WithAcceptAnyGrant() Option {
	return func(n *InMemory) {
		n.acceptAll = true
	}
}

func New(options ...Option) *InMemory {
	n := &InMemory{
		containers: map[string]*memContainer{},
		sites:      map[string][]byte{},
		grants:     map[string]core.PermissionSet{},
	}
	for _, opt := range options {
		if opt != nil {
			opt(n)
		}
	}
	if _, ok := n.containers["_public"]; !ok {
		n.containers["_public"] = newMemContainer("_public", nil)
	}
	return n
}

// RegisterGrant records an authorization URI as redeemable for the given
// permission set. The devkit authenticator calls this when it grants.
func (n *InMemory) RegisterGrant(authURI string, perms core.PermissionSet) {
	if n == nil || strings.TrimSpace(authURI) == "" {
		return
	}
	n.mu.Lock()
	n.grants[strings.TrimSpace(authURI)] = perms.Normalize()
	n.mu.Unlock()
}

// RevokeGrant makes a previously registered URI unredeemable.
func (n *InMemory) RevokeGrant(authURI string) {
	if n == nil {
		return
	}
	n.mu.Lock()
	delete(n.grants, strings.TrimSpace(authURI))
	n.mu.Unlock()
}

func (n *InMemory) ConnectAnonymous(ctx context.Context, app core.AppInfo) (core.NetworkSession, error) {
	if n == nil {
		return nil, fmt.Errorf("network: backend is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := app.Validate(); err != nil {
		return nil, err
	}
	return &memSession{network: n, app: app}, nil
}

func (n *InMemory) ConnectRegistered(ctx context.Context, app core.AppInfo, authURI string) (core.NetworkSession, error) {
	if n == nil {
		return nil, fmt.Errorf("network: backend is not configured")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := app.Validate(); err != nil {
		return nil, err
	}
	authURI = strings.TrimSpace(authURI)
	if authURI == "" {
		return nil, fmt.Errorf("network: auth uri is required")
	}

	n.mu.RLock()
	perms, known := n.grants[authURI]
	acceptAll := n.acceptAll
	n.mu.RUnlock()
	if !known && !acceptAll {
		return nil, fmt.Errorf("network: auth uri is not redeemable")
	}
	if !known {
		perms = nil
	}
	return &memSession{
		network:    n,
		app:        app,
		registered: true,
		granted:    perms,
		allGranted: !known,
	}, nil
}

func (n *InMemory) container(name string) (*memContainer, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	container, ok := n.containers[name]
	return container, ok
}

func (n *InMemory) site(url string) ([]byte, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	body, ok := n.sites[url]
	return body, ok
}

type memSession struct {
	network    *InMemory
	app        core.AppInfo
	registered bool
	granted    core.PermissionSet
	allGranted bool

	mu       sync.Mutex
	released bool
}

func (s *memSession) Registered() bool {
	return s.registered
}

func (s *memSession) ContainerNames(ctx context.Context) ([]string, error) {
	if err := s.usable(ctx); err != nil {
		return nil, err
	}
	if !s.registered {
		return nil, fmt.Errorf("network: containers need a registered session")
	}
	if s.allGranted {
		s.network.mu.RLock()
		defer s.network.mu.RUnlock()
		names := make([]string, 0, len(s.network.containers))
		for name := range s.network.containers {
			names = append(names, name)
		}
		sort.Strings(names)
		return names, nil
	}
	names := make([]string, 0, len(s.granted))
	for name := range s.granted {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *memSession) Container(ctx context.Context, name string) (core.Container, error) {
	if err := s.usable(ctx); err != nil {
		return nil, err
	}
	if !s.registered {
		return nil, fmt.Errorf("network: containers need a registered session")
	}
	name = strings.TrimSpace(name)
	if !s.hasGrant(name) {
		return nil, fmt.Errorf("network: container %q is not granted", name)
	}
	container, ok := s.network.container(name)
	if !ok {
		return nil, fmt.Errorf("network: container %q does not exist", name)
	}
	return container.view(), nil
}

func (s *memSession) HomeContainer(ctx context.Context) (core.Container, error) {
	if err := s.usable(ctx); err != nil {
		return nil, err
	}
	if !s.registered {
		return nil, fmt.Errorf("network: containers need a registered session")
	}
	name := "apps/" + strings.TrimSpace(s.app.ID)
	s.network.mu.Lock()
	container, ok := s.network.containers[name]
	if !ok {
		container = newMemContainer(name, nil)
		s.network.containers[name] = container
	}
	s.network.mu.Unlock()
	return container.view(), nil
}

func (s *memSession) CanAccessContainer(ctx context.Context, name string, perms []core.Permission) (bool, error) {
	if err := s.usable(ctx); err != nil {
		return false, err
	}
	if !s.registered {
		return false, nil
	}
	name = strings.TrimSpace(name)
	if !s.hasGrant(name) {
		return false, nil
	}
	if s.allGranted {
		return true, nil
	}
	granted := map[core.Permission]bool{}
	for _, perm := range s.granted[name] {
		granted[perm] = true
	}
	for _, perm := range perms {
		if !granted[core.Permission(strings.TrimSpace(strings.ToLower(string(perm))))] {
			return false, nil
		}
	}
	return true, nil
}

func (s *memSession) RefreshPermissions(ctx context.Context) error {
	if err := s.usable(ctx); err != nil {
		return err
	}
	if !s.registered {
		return fmt.Errorf("network: refresh needs a registered session")
	}
	return nil
}

func (s *memSession) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := s.usable(ctx); err != nil {
		return nil, err
	}
	body, ok := s.network.site(strings.TrimSpace(url))
	if !ok {
		return nil, fmt.Errorf("network: no content at %q", url)
	}
	return append([]byte(nil), body...), nil
}

func (s *memSession) PublicSignKey(ctx context.Context) (core.SignKey, error) {
	if err := s.usable(ctx); err != nil {
		return nil, err
	}
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("network: generate sign key: %w", err)
	}
	return &memSignKey{pub: pub, priv: priv}, nil
}

func (s *memSession) Release() {
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()
}

func (s *memSession) usable(ctx context.Context) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return fmt.Errorf("network: session is released")
	}
	return nil
}

func (s *memSession) hasGrant(name string) bool {
	if s.allGranted {
		return true
	}
	if name == "_public" {
		return true
	}
	if strings.HasPrefix(name, "apps/") {
		return true
	}
	_, ok := s.granted[name]
	return ok
}

var _ core.Network = (*InMemory)(nil)
