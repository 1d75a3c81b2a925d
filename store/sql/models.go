package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type appGrantRecord struct {
	bun.BaseModel `bun:"table:app_grants,alias:ag"`

	ID                string    `bun:"id,pk"`
	AppID             string    `bun:"app_id,notnull"`
	Version           int       `bun:"version,notnull"`
	EncryptedPayload  []byte    `bun:"encrypted_payload,notnull"`
	PayloadFormat     string    `bun:"payload_format,notnull"`
	PayloadVersion    int       `bun:"payload_version,notnull"`
	RequestedGrants   []string  `bun:"requested_grants,type:jsonb,notnull"`
	Status            string    `bun:"status,notnull"`
	EncryptionKeyID   string    `bun:"encryption_key_id,notnull"`
	EncryptionVersion int       `bun:"encryption_version,notnull"`
	RevocationReason  string    `bun:"revocation_reason,notnull"`
	CreatedAt         time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
