package sqlstore

import (
	"time"

	"github.com/goliatone/go-appsession/core"
)

func newGrantRecord(in core.SaveGrantInput, version int, now time.Time) *appGrantRecord {
	payloadFormat := in.PayloadFormat
	if payloadFormat == "" {
		payloadFormat = core.GrantPayloadFormatAuthURI
	}
	payloadVersion := in.PayloadVersion
	if payloadVersion <= 0 {
		payloadVersion = core.GrantPayloadVersionV1
	}
	requested := append([]string(nil), in.Requested...)
	if requested == nil {
		requested = []string{}
	}
	return &appGrantRecord{
		AppID:             in.AppID,
		Version:           version,
		EncryptedPayload:  append([]byte(nil), in.EncryptedPayload...),
		PayloadFormat:     payloadFormat,
		PayloadVersion:    payloadVersion,
		RequestedGrants:   requested,
		Status:            string(in.Status),
		EncryptionKeyID:   in.EncryptionKeyID,
		EncryptionVersion: in.EncryptionVersion,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func (r *appGrantRecord) toDomain() core.Grant {
	if r == nil {
		return core.Grant{}
	}
	return core.Grant{
		ID:                r.ID,
		AppID:             r.AppID,
		Version:           r.Version,
		EncryptedPayload:  append([]byte(nil), r.EncryptedPayload...),
		PayloadFormat:     r.PayloadFormat,
		PayloadVersion:    r.PayloadVersion,
		Requested:         append([]string(nil), r.RequestedGrants...),
		Status:            core.GrantStatus(r.Status),
		EncryptionKeyID:   r.EncryptionKeyID,
		EncryptionVersion: r.EncryptionVersion,
		RevocationReason:  r.RevocationReason,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}
