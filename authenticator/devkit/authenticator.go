package devkit

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-appsession/core"
	"github.com/goliatone/go-appsession/network"
	"github.com/google/uuid"
)

// Completer is the callback surface the authenticator answers through,
// implemented by *core.Service.
type Completer interface {
	CompleteAuthorisation(ctx context.Context, responseURI string) error
}

// Decision inspects a decoded request and produces the verdict. Returning
// granted=false with an empty reason uses a generic denial message.
type Decision func(req core.AuthRequest) (granted bool, reason string)

// IssuedGrant is one granted exchange, kept for inspection in tests and
// dev tooling.
type IssuedGrant struct {
	RequestID   string
	AppID       string
	Kind        core.AuthRequestKind
	AuthURI     string
	Permissions core.PermissionSet
}

// Authenticator is an in-process stand-in for the real out-of-process
// authenticator. It decodes dispatched descriptors, applies its decision
// rules, and answers through the completer the way a host-delivered
// response URI would arrive. Real deployments replace it with an external
// authenticator behind a dispatch adapter.
type Authenticator struct {
	mu        sync.Mutex
	codec     core.CBORRequestCodec
	completer Completer
	backend   *network.InMemory
	decision  Decision
	denied    map[string]string
	issued    []IssuedGrant
}

type Option func(*Authenticator)

func WithCodec(codec core.CBORRequestCodec) Option {
	return func(a *Authenticator) {
		a.codec = codec
	}
}

// WithNetwork registers every granted URI with the in-memory backend so
// ConnectAuthorised can redeem it.
func WithNetwork(backend *network.InMemory) Option {
	return func(a *Authenticator) {
		a.backend = backend
	}
}

// WithDenyApp denies every request from the given app id.
func WithDenyApp(appID string, reason string) Option {
	return func(a *Authenticator) {
		a.denied[strings.TrimSpace(appID)] = strings.TrimSpace(reason)
	}
}

// WithDecision replaces the default grant-everything policy.
func WithDecision(decision Decision) Option {
	return func(a *Authenticator) {
		a.decision = decision
	}
}

func New(completer Completer, options ...Option) *Authenticator {
	a := &Authenticator{
		codec:     core.CBORRequestCodec{},
		completer: completer,
		denied:    map[string]string{},
	}
	for _, opt := range options {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// SetCompleter wires the completer after construction, for the common case
// where the authenticator must exist before the service that answers it.
func (a *Authenticator) SetCompleter(completer Completer) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.completer = completer
	a.mu.Unlock()
}

func (a *Authenticator) Dispatch(ctx context.Context, descriptor core.AuthRequestDescriptor) error {
	if a == nil {
		return fmt.Errorf("devkit: authenticator is nil")
	}
	a.mu.Lock()
	completer := a.completer
	a.mu.Unlock()
	if completer == nil {
		return fmt.Errorf("devkit: completer is not wired")
	}

	req, requestID, err := a.codec.DecodeRequest(descriptor.URI)
	if err != nil {
		return fmt.Errorf("devkit: decode dispatched request: %w", err)
	}
	if requestID == "" {
		requestID = descriptor.RequestID
	}

	granted, reason := a.decide(req)
	resp := core.AuthResponse{
		RequestID: requestID,
		Granted:   granted,
		Reason:    reason,
	}
	if granted {
		resp.AuthURI = a.issueGrant(requestID, req)
	}

	responseURI, err := a.codec.EncodeResponse(resp)
	if err != nil {
		return fmt.Errorf("devkit: encode response: %w", err)
	}
	// Answering inline is safe: the pending exchange buffers the verdict,
	// so completion never blocks on the caller's wait.
	return completer.CompleteAuthorisation(ctx, responseURI)
}

// Run consumes descriptors from a dispatch channel until ctx ends. Use it
// with dispatch.ChannelAdapter to exercise the full delivery path.
func (a *Authenticator) Run(ctx context.Context, requests <-chan core.AuthRequestDescriptor) error {
	if a == nil {
		return fmt.Errorf("devkit: authenticator is nil")
	}
	if requests == nil {
		return fmt.Errorf("devkit: request channel is required")
	}
	for {
		select {
		case descriptor, ok := <-requests:
			if !ok {
				return nil
			}
			if err := a.Dispatch(ctx, descriptor); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Issued returns the grants issued so far, newest last.
func (a *Authenticator) Issued() []IssuedGrant {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]IssuedGrant(nil), a.issued...)
}

func (a *Authenticator) decide(req core.AuthRequest) (bool, string) {
	a.mu.Lock()
	reason, deniedApp := a.denied[strings.TrimSpace(req.App.ID)]
	decision := a.decision
	a.mu.Unlock()

	if deniedApp {
		if reason == "" {
			reason = "application is blocked"
		}
		return false, reason
	}
	if decision != nil {
		return decision(req)
	}
	return true, ""
}

func (a *Authenticator) issueGrant(requestID string, req core.AuthRequest) string {
	authURI := a.grantScheme() + ":granted/" + uuid.NewString()

	a.mu.Lock()
	a.issued = append(a.issued, IssuedGrant{
		RequestID:   requestID,
		AppID:       req.App.ID,
		Kind:        req.Kind,
		AuthURI:     authURI,
		Permissions: req.Permissions.Clone(),
	})
	backend := a.backend
	a.mu.Unlock()

	if backend != nil {
		backend.RegisterGrant(authURI, req.Permissions)
	}
	return authURI
}

func (a *Authenticator) grantScheme() string {
	scheme := strings.TrimSpace(a.codec.Scheme)
	if scheme == "" {
		scheme = core.DefaultAuthURIScheme
	}
	return scheme
}

var _ core.Authenticator = (*Authenticator)(nil)
