package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-appsession/core"
	goerrors "github.com/goliatone/go-errors"
)

func testDescriptor() core.AuthRequestDescriptor {
	return core.AuthRequestDescriptor{
		RequestID: "req-42",
		URI:       "safe-auth:request/AAAA",
		Payload:   []byte{0x01, 0x02},
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry()
	adapter := NewChannelAdapter(1)
	if err := registry.Register(adapter); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register(NewChannelAdapter(1)); err == nil {
		t.Fatalf("expected duplicate kind to be rejected")
	}

	got, ok := registry.Get("CHANNEL")
	if !ok || got != adapter {
		t.Fatalf("expected kind lookup to be case-insensitive")
	}
	if _, ok := registry.Get("missing"); ok {
		t.Fatalf("expected missing kind to report absence")
	}
}

func TestRegistry_BuildFromFactory(t *testing.T) {
	registry := NewRegistry()
	if err := registry.RegisterFactory(KindIPC, defaultUnsupportedFactory(KindIPC)); err != nil {
		t.Fatalf("register factory: %v", err)
	}

	adapter, err := registry.Build(KindIPC, map[string]any{"reason": "no host bridge"})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	err = adapter.Dispatch(context.Background(), testDescriptor())
	if err == nil || !strings.Contains(err.Error(), "no host bridge") {
		t.Fatalf("expected the configured reason, got %v", err)
	}

	if _, err := registry.Build("unknown", nil); err == nil {
		t.Fatalf("expected unknown kind to fail")
	}
}

func TestDefaultRegistry_ListsKnownKinds(t *testing.T) {
	registry := NewDefaultRegistry()
	kinds := map[string]bool{}
	for _, adapter := range registry.List() {
		kinds[adapter.Kind()] = true
	}
	if !kinds[KindHTTP] || !kinds[KindChannel] {
		t.Fatalf("expected http and channel adapters, got %v", kinds)
	}
}

func TestChannelAdapter_DeliversDescriptor(t *testing.T) {
	adapter := NewChannelAdapter(1)
	if err := adapter.Dispatch(context.Background(), testDescriptor()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	select {
	case delivered := <-adapter.Requests():
		if delivered.RequestID != "req-42" {
			t.Fatalf("unexpected descriptor %+v", delivered)
		}
	default:
		t.Fatalf("expected a buffered descriptor")
	}
}

func TestChannelAdapter_FullBufferHonorsContext(t *testing.T) {
	adapter := NewChannelAdapter(1)
	if err := adapter.Dispatch(context.Background(), testDescriptor()); err != nil {
		t.Fatalf("fill buffer: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := adapter.Dispatch(ctx, testDescriptor())
	if err == nil {
		t.Fatalf("expected the full buffer to fail with the context")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != core.SessionErrorDispatchFailed {
		t.Fatalf("expected dispatch failed code, got %v", err)
	}
}

func TestHTTPAdapter_PostsDescriptor(t *testing.T) {
	received := httpDispatchPayload{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	adapter := NewHTTPAdapter(server.URL, server.Client())
	if err := adapter.Dispatch(context.Background(), testDescriptor()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if received.RequestID != "req-42" || received.URI != "safe-auth:request/AAAA" {
		t.Fatalf("unexpected delivered payload %+v", received)
	}
}

func TestHTTPAdapter_FailureStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "authenticator offline", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	adapter := NewHTTPAdapter(server.URL, server.Client())
	err := adapter.Dispatch(context.Background(), testDescriptor())
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != core.SessionErrorDispatchFailed {
		t.Fatalf("expected dispatch failed code, got %v", err)
	}
}

func TestHTTPAdapter_RequiresEndpoint(t *testing.T) {
	adapter := NewHTTPAdapter("", nil)
	err := adapter.Dispatch(context.Background(), testDescriptor())
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr.TextCode != core.SessionErrorBadInput {
		t.Fatalf("expected bad input code, got %v", err)
	}
}
