package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-appsession/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// GrantStore persists authorization grants with per-app version rotation:
// saving a new active grant revokes any prior active version in the same
// transaction, so at most one active row exists per app id.
type GrantStore struct {
	db   *bun.DB
	repo repository.Repository[*appGrantRecord]
}

func (s *GrantStore) SaveNewVersion(ctx context.Context, in core.SaveGrantInput) (core.Grant, error) {
	if s == nil || s.repo == nil || s.db == nil {
		return core.Grant{}, fmt.Errorf("sqlstore: grant store is not configured")
	}
	trimmedAppID := strings.TrimSpace(in.AppID)
	if trimmedAppID == "" {
		return core.Grant{}, fmt.Errorf("sqlstore: app id is required")
	}
	if len(in.EncryptedPayload) == 0 {
		return core.Grant{}, fmt.Errorf("sqlstore: grant payload is required")
	}

	status := in.Status
	if strings.TrimSpace(string(status)) == "" {
		status = core.GrantStatusActive
	}
	in.AppID = trimmedAppID
	in.Status = status
	now := time.Now().UTC()

	var created core.Grant
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		nextVersion, versionErr := s.nextVersion(ctx, tx, trimmedAppID)
		if versionErr != nil {
			return versionErr
		}

		if status == core.GrantStatusActive {
			revokeReason := "rotated"
			_, updateErr := tx.NewUpdate().
				Model((*appGrantRecord)(nil)).
				Set("status = ?", string(core.GrantStatusRevoked)).
				Set("revocation_reason = ?", revokeReason).
				Set("updated_at = ?", now).
				Where("app_id = ?", trimmedAppID).
				Where("status = ?", string(core.GrantStatusActive)).
				Exec(ctx)
			if updateErr != nil {
				return updateErr
			}
		}

		record := newGrantRecord(in, nextVersion, now)
		inserted, createErr := s.repo.CreateTx(ctx, tx, record)
		if createErr != nil {
			return createErr
		}
		created = inserted.toDomain()
		return nil
	})
	if err != nil {
		return core.Grant{}, err
	}

	return created, nil
}

func (s *GrantStore) GetActiveByApp(ctx context.Context, appID string) (core.Grant, error) {
	if s == nil || s.repo == nil {
		return core.Grant{}, fmt.Errorf("sqlstore: grant store is not configured")
	}
	trimmedAppID := strings.TrimSpace(appID)
	if trimmedAppID == "" {
		return core.Grant{}, fmt.Errorf("sqlstore: app id is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("app_id", "=", trimmedAppID),
		repository.SelectBy("status", "=", string(core.GrantStatusActive)),
		repository.OrderBy("version DESC"),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.Grant{}, err
	}
	if len(records) == 0 {
		return core.Grant{}, fmt.Errorf("%w: app %s", core.ErrGrantNotFound, trimmedAppID)
	}
	return records[0].toDomain(), nil
}

func (s *GrantStore) RevokeActive(ctx context.Context, appID string, reason string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: grant store is not configured")
	}
	trimmedAppID := strings.TrimSpace(appID)
	if trimmedAppID == "" {
		return fmt.Errorf("sqlstore: app id is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "revoked"
	}

	result, err := s.db.NewUpdate().
		Model((*appGrantRecord)(nil)).
		Set("status = ?", string(core.GrantStatusRevoked)).
		Set("revocation_reason = ?", reason).
		Set("updated_at = ?", time.Now().UTC()).
		Where("app_id = ?", trimmedAppID).
		Where("status = ?", string(core.GrantStatusActive)).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: app %s", core.ErrGrantNotFound, trimmedAppID)
	}
	return nil
}

func (s *GrantStore) nextVersion(ctx context.Context, tx bun.Tx, appID string) (int, error) {
	var maxVersion int
	if err := tx.NewSelect().
		Model((*appGrantRecord)(nil)).
		ColumnExpr("COALESCE(MAX(version), 0)").
		Where("?TableAlias.app_id = ?", appID).
		Scan(ctx, &maxVersion); err != nil {
		return 0, err
	}
	return maxVersion + 1, nil
}
