package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrGrantNotFound = fmt.Errorf("core: grant not found")

// MemoryGrantStore keeps persisted grants in process memory. It is the
// default wiring; store/sql provides the durable implementation.
type MemoryGrantStore struct {
	mu     sync.Mutex
	byApp  map[string][]Grant
	nextID func() string
}

func NewMemoryGrantStore() *MemoryGrantStore {
	return &MemoryGrantStore{
		byApp:  map[string][]Grant{},
		nextID: uuid.NewString,
	}
}

func (s *MemoryGrantStore) SaveNewVersion(_ context.Context, in SaveGrantInput) (Grant, error) {
	if s == nil {
		return Grant{}, fmt.Errorf("core: grant store is not configured")
	}
	appID := strings.TrimSpace(in.AppID)
	if appID == "" {
		return Grant{}, fmt.Errorf("core: app id is required")
	}
	if len(in.EncryptedPayload) == 0 {
		return Grant{}, fmt.Errorf("core: grant payload is required")
	}

	status := in.Status
	if strings.TrimSpace(string(status)) == "" {
		status = GrantStatusActive
	}
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	versions := s.byApp[appID]
	if status == GrantStatusActive {
		for idx := range versions {
			if versions[idx].Status == GrantStatusActive {
				versions[idx].Status = GrantStatusRevoked
				versions[idx].RevocationReason = "rotated"
				versions[idx].UpdatedAt = now
			}
		}
	}

	grant := Grant{
		ID:                s.nextID(),
		AppID:             appID,
		Version:           len(versions) + 1,
		EncryptedPayload:  append([]byte(nil), in.EncryptedPayload...),
		PayloadFormat:     in.PayloadFormat,
		PayloadVersion:    in.PayloadVersion,
		Requested:         normalizeGrants(in.Requested),
		Status:            status,
		EncryptionKeyID:   in.EncryptionKeyID,
		EncryptionVersion: in.EncryptionVersion,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	s.byApp[appID] = append(versions, grant)
	return cloneGrant(grant), nil
}

func (s *MemoryGrantStore) GetActiveByApp(_ context.Context, appID string) (Grant, error) {
	if s == nil {
		return Grant{}, fmt.Errorf("core: grant store is not configured")
	}
	appID = strings.TrimSpace(appID)
	if appID == "" {
		return Grant{}, fmt.Errorf("core: app id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	versions := s.byApp[appID]
	for idx := len(versions) - 1; idx >= 0; idx-- {
		if versions[idx].Status == GrantStatusActive {
			return cloneGrant(versions[idx]), nil
		}
	}
	return Grant{}, fmt.Errorf("%w: app %s", ErrGrantNotFound, appID)
}

func (s *MemoryGrantStore) RevokeActive(_ context.Context, appID string, reason string) error {
	if s == nil {
		return fmt.Errorf("core: grant store is not configured")
	}
	appID = strings.TrimSpace(appID)
	if appID == "" {
		return fmt.Errorf("core: app id is required")
	}

	now := time.Now().UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	versions := s.byApp[appID]
	revoked := false
	for idx := range versions {
		if versions[idx].Status == GrantStatusActive {
			if err := versions[idx].TransitionTo(GrantStatusRevoked, reason, now); err != nil {
				return err
			}
			revoked = true
		}
	}
	if !revoked {
		return fmt.Errorf("%w: app %s", ErrGrantNotFound, appID)
	}
	return nil
}

func cloneGrant(grant Grant) Grant {
	cloned := grant
	cloned.EncryptedPayload = append([]byte(nil), grant.EncryptedPayload...)
	cloned.Requested = append([]string(nil), grant.Requested...)
	return cloned
}

var _ GrantStore = (*MemoryGrantStore)(nil)
