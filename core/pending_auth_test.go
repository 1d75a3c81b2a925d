package core

import (
	"sync"
	"testing"
	"time"
)

func TestPendingAuthStore_ResolveDeliversOnce(t *testing.T) {
	store := NewPendingAuthStore(time.Minute)
	done, err := store.Open(AuthExchange{RequestID: "req-1", SessionHandle: "s1", Kind: AuthRequestKindApp})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if !store.Resolve("req-1", AuthResponse{RequestID: "req-1", Granted: true, AuthURI: "safe-auth:ok"}) {
		t.Fatalf("expected first resolve to land")
	}
	if store.Resolve("req-1", AuthResponse{RequestID: "req-1", Granted: false}) {
		t.Fatalf("second resolve for the same exchange must be ignored")
	}

	resp, ok := <-done
	if !ok {
		t.Fatalf("expected a delivered response")
	}
	if !resp.Granted || resp.AuthURI != "safe-auth:ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if _, ok := <-done; ok {
		t.Fatalf("channel must be closed after delivery")
	}
	if store.Len() != 0 {
		t.Fatalf("resolved exchange must be removed, %d left", store.Len())
	}
}

func TestPendingAuthStore_ResolveUnknownIsIgnored(t *testing.T) {
	store := NewPendingAuthStore(time.Minute)
	if store.Resolve("never-opened", AuthResponse{RequestID: "never-opened"}) {
		t.Fatalf("stray response must not resolve anything")
	}
}

func TestPendingAuthStore_DuplicateRequestID(t *testing.T) {
	store := NewPendingAuthStore(time.Minute)
	if _, err := store.Open(AuthExchange{RequestID: "dup"}); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.Open(AuthExchange{RequestID: "dup"}); err == nil {
		t.Fatalf("expected duplicate request id to be rejected")
	}
}

func TestPendingAuthStore_AbandonClosesWithoutValue(t *testing.T) {
	store := NewPendingAuthStore(time.Minute)
	done, err := store.Open(AuthExchange{RequestID: "req-2"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	store.Abandon("req-2")
	if _, ok := <-done; ok {
		t.Fatalf("abandoned exchange must close without a value")
	}
	if store.Resolve("req-2", AuthResponse{RequestID: "req-2", Granted: true}) {
		t.Fatalf("late response after abandon must be ignored")
	}
}

func TestPendingAuthStore_SweepExpired(t *testing.T) {
	store := NewPendingAuthStore(time.Minute)
	done, err := store.Open(AuthExchange{RequestID: "old"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.Open(AuthExchange{RequestID: "fresh"}); err != nil {
		t.Fatalf("open fresh: %v", err)
	}

	swept := store.SweepExpired(time.Now().Add(2 * time.Minute))
	if swept != 2 {
		t.Fatalf("expected both exchanges swept, got %d", swept)
	}
	if _, ok := <-done; ok {
		t.Fatalf("swept exchange must close without a value")
	}

	if _, err := store.Open(AuthExchange{RequestID: "kept"}); err != nil {
		t.Fatalf("open kept: %v", err)
	}
	if swept := store.SweepExpired(time.Now()); swept != 0 {
		t.Fatalf("fresh exchange must survive the sweep, swept %d", swept)
	}
}

func TestPendingAuthStore_ConcurrentResolvers(t *testing.T) {
	store := NewPendingAuthStore(time.Minute)
	done, err := store.Open(AuthExchange{RequestID: "contested"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	landed := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.Resolve("contested", AuthResponse{RequestID: "contested", Granted: true}) {
				mu.Lock()
				landed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if landed != 1 {
		t.Fatalf("exactly one resolver must land, got %d", landed)
	}
	if _, ok := <-done; !ok {
		t.Fatalf("the winning resolve must deliver a value")
	}
}

func TestGenerateAuthRequestID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		id, err := generateAuthRequestID()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if id == "" || seen[id] {
			t.Fatalf("expected unique non-empty ids, got %q", id)
		}
		seen[id] = true
	}
}
