package core

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"
)

const defaultPendingAuthTTL = 15 * time.Minute

// AuthExchange is one dispatched authorization request awaiting its
// out-of-band verdict. Each exchange carries its own correlation id; there
// is no global "last request" state, so concurrent exchanges on the same
// session never merge.
type AuthExchange struct {
	RequestID     string
	SessionHandle Handle
	Kind          AuthRequestKind
	Request       AuthRequest
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

type pendingExchange struct {
	record AuthExchange
	done   chan AuthResponse
}

// PendingAuthStore tracks in-flight authorization exchanges. Every exchange
// resolves at most once: Resolve consumes the entry before delivering, so a
// late or duplicate callback finds nothing and is ignored.
type PendingAuthStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]*pendingExchange
}

func NewPendingAuthStore(ttl time.Duration) *PendingAuthStore {
	if ttl <= 0 {
		ttl = defaultPendingAuthTTL
	}
	return &PendingAuthStore{
		ttl:     ttl,
		entries: map[string]*pendingExchange{},
	}
}

// Open registers an exchange and returns the one-shot channel its verdict
// will arrive on. The channel is closed without a value when the exchange is
// abandoned or swept after expiry.
func (s *PendingAuthStore) Open(record AuthExchange) (<-chan AuthResponse, error) {
	if s == nil {
		return nil, fmt.Errorf("core: pending auth store is not configured")
	}
	requestID := strings.TrimSpace(record.RequestID)
	if requestID == "" {
		return nil, fmt.Errorf("core: auth request id is required")
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.ExpiresAt.IsZero() {
		record.ExpiresAt = record.CreatedAt.Add(s.ttl)
	}

	entry := &pendingExchange{
		record: record,
		done:   make(chan AuthResponse, 1),
	}

	s.mu.Lock()
	if _, exists := s.entries[requestID]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("core: auth request id already pending: %s", requestID)
	}
	s.entries[requestID] = entry
	s.mu.Unlock()

	return entry.done, nil
}

// Resolve delivers the verdict for a pending exchange. Returns false when
// the request id is unknown — already resolved, abandoned, or never opened —
// which callers must treat as a safely ignorable stray callback.
func (s *PendingAuthStore) Resolve(requestID string, resp AuthResponse) bool {
	if s == nil {
		return false
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return false
	}

	s.mu.Lock()
	entry, ok := s.entries[requestID]
	if ok {
		delete(s.entries, requestID)
	}
	s.mu.Unlock()

	if !ok {
		return false
	}
	entry.done <- resp
	close(entry.done)
	return true
}

// Abandon drops a pending exchange without a verdict; the waiter observes a
// closed channel. Used when dispatch fails or the caller stops awaiting.
func (s *PendingAuthStore) Abandon(requestID string) {
	if s == nil {
		return
	}
	requestID = strings.TrimSpace(requestID)

	s.mu.Lock()
	entry, ok := s.entries[requestID]
	if ok {
		delete(s.entries, requestID)
	}
	s.mu.Unlock()

	if ok {
		close(entry.done)
	}
}

// SweepExpired abandons every exchange past its expiry and reports how many
// were dropped.
func (s *PendingAuthStore) SweepExpired(now time.Time) int {
	if s == nil {
		return 0
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	expired := make([]*pendingExchange, 0)
	for requestID, entry := range s.entries {
		if !entry.record.ExpiresAt.IsZero() && now.After(entry.record.ExpiresAt) {
			expired = append(expired, entry)
			delete(s.entries, requestID)
		}
	}
	s.mu.Unlock()

	for _, entry := range expired {
		close(entry.done)
	}
	return len(expired)
}

func (s *PendingAuthStore) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func generateAuthRequestID() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("core: generate auth request id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
