package core

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"fmt"
	"sync"
)

func testAppInfo() AppInfo {
	return AppInfo{
		ID:     "net.maidsafe.examples.notes",
		Name:   "Example Notes",
		Vendor: "MaidSafe",
		Scope:  "",
	}
}

type fakeNetwork struct {
	mu              sync.Mutex
	connectErr      error
	registeredErr   error
	lastAuthURI     string
	anonymousCalls  int
	registeredCalls int
	containers      map[string]map[string][]byte
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{
		containers: map[string]map[string][]byte{
			"_public":    {"index.html": []byte("<html/>")},
			"_documents": {},
		},
	}
}

func (n *fakeNetwork) ConnectAnonymous(ctx context.Context, app AppInfo) (NetworkSession, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.anonymousCalls++
	if n.connectErr != nil {
		return nil, n.connectErr
	}
	return &fakeNetworkSession{network: n, registered: false}, nil
}

func (n *fakeNetwork) ConnectRegistered(ctx context.Context, app AppInfo, authURI string) (NetworkSession, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.registeredCalls++
	n.lastAuthURI = authURI
	if n.registeredErr != nil {
		return nil, n.registeredErr
	}
	return &fakeNetworkSession{network: n, registered: true}, nil
}

type fakeNetworkSession struct {
	network    *fakeNetwork
	registered bool

	mu       sync.Mutex
	released int
}

func (s *fakeNetworkSession) Registered() bool { return s.registered }

func (s *fakeNetworkSession) ContainerNames(ctx context.Context) ([]string, error) {
	if !s.registered {
		return nil, fmt.Errorf("containers need a registered session")
	}
	names := make([]string, 0, len(s.network.containers))
	for name := range s.network.containers {
		names = append(names, name)
	}
	return names, nil
}

func (s *fakeNetworkSession) Container(ctx context.Context, name string) (Container, error) {
	if !s.registered {
		return nil, fmt.Errorf("containers need a registered session")
	}
	entries, ok := s.network.containers[name]
	if !ok {
		return nil, fmt.Errorf("container %q is not granted", name)
	}
	return &fakeContainer{name: name, entries: entries}, nil
}

func (s *fakeNetworkSession) HomeContainer(ctx context.Context) (Container, error) {
	return s.Container(ctx, "_documents")
}

func (s *fakeNetworkSession) CanAccessContainer(ctx context.Context, name string, perms []Permission) (bool, error) {
	_, ok := s.network.containers[name]
	return ok && s.registered, nil
}

func (s *fakeNetworkSession) RefreshPermissions(ctx context.Context) error {
	if !s.registered {
		return fmt.Errorf("refresh needs a registered session")
	}
	return nil
}

func (s *fakeNetworkSession) Fetch(ctx context.Context, url string) ([]byte, error) {
	return []byte("fetched:" + url), nil
}

func (s *fakeNetworkSession) PublicSignKey(ctx context.Context) (SignKey, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, err
	}
	return &fakeSignKey{pub: pub, priv: priv}, nil
}

func (s *fakeNetworkSession) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released++
}

func (s *fakeNetworkSession) releaseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

type fakeContainer struct {
	mu      sync.Mutex
	name    string
	entries map[string][]byte

	released int
}

func (c *fakeContainer) Name() string { return c.name }

func (c *fakeContainer) Entries(ctx context.Context) (map[string][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]byte, len(c.entries))
	for k, v := range c.entries {
		out[k] = append([]byte(nil), v...)
	}
	return out, nil
}

func (c *fakeContainer) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.entries[key]
	if !ok {
		return nil, fmt.Errorf("entry %q not found", key)
	}
	return append([]byte(nil), value...), nil
}

func (c *fakeContainer) Set(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = append([]byte(nil), value...)
	return nil
}

func (c *fakeContainer) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released++
}

type fakeSignKey struct {
	pub  ed25519.PublicKey
	priv ed25519.PrivateKey

	mu       sync.Mutex
	released int
}

func (k *fakeSignKey) Raw(ctx context.Context) ([]byte, error) {
	return append([]byte(nil), k.pub...), nil
}

func (k *fakeSignKey) Sign(ctx context.Context, message []byte) ([]byte, error) {
	return ed25519.Sign(k.priv, message), nil
}

func (k *fakeSignKey) Verify(ctx context.Context, signature, message []byte) error {
	if !ed25519.Verify(k.pub, message, signature) {
		return fmt.Errorf("signature does not verify")
	}
	return nil
}

func (k *fakeSignKey) Release() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.released++
}

// grantingAuthenticator answers every dispatched request through the
// service's out-of-band completion entry point, the way a local
// authenticator process would.
type grantingAuthenticator struct {
	mu         sync.Mutex
	svc        *Service
	codec      RequestCodec
	deny       bool
	reason     string
	dispatched []AuthRequestDescriptor
}

func (a *grantingAuthenticator) Dispatch(ctx context.Context, descriptor AuthRequestDescriptor) error {
	a.mu.Lock()
	a.dispatched = append(a.dispatched, descriptor)
	deny := a.deny
	reason := a.reason
	a.mu.Unlock()

	resp := AuthResponse{
		RequestID: descriptor.RequestID,
		Granted:   !deny,
		Reason:    reason,
	}
	if resp.Granted {
		resp.AuthURI = "safe-auth:granted/" + descriptor.RequestID
	}
	uri, err := a.codec.EncodeResponse(resp)
	if err != nil {
		return err
	}
	go func() {
		_ = a.svc.CompleteAuthorisation(context.Background(), uri)
	}()
	return nil
}

// silentAuthenticator accepts the dispatch and never answers.
type silentAuthenticator struct {
	mu         sync.Mutex
	dispatched []AuthRequestDescriptor
}

func (a *silentAuthenticator) Dispatch(ctx context.Context, descriptor AuthRequestDescriptor) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dispatched = append(a.dispatched, descriptor)
	return nil
}

type failingAuthenticator struct{ err error }

func (a *failingAuthenticator) Dispatch(ctx context.Context, descriptor AuthRequestDescriptor) error {
	return a.err
}

type recordingMetrics struct {
	mu         sync.Mutex
	counters   map[string]int64
	histograms map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		counters:   map[string]int64{},
		histograms: map[string]int{},
	}
}

func (m *recordingMetrics) IncCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[name+"|"+tags["status"]] += value
}

func (m *recordingMetrics) ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms[name]++
}

func (m *recordingMetrics) counter(name, status string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name+"|"+status]
}

type xorSecretProvider struct{ key byte }

func (p xorSecretProvider) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	return p.apply(plaintext), nil
}

func (p xorSecretProvider) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	return p.apply(ciphertext), nil
}

func (p xorSecretProvider) apply(in []byte) []byte {
	out := bytes.Clone(in)
	for i := range out {
		out[i] ^= p.key
	}
	return out
}
