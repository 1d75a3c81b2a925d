package security

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestAppKeySecretProvider_EncryptDecryptRoundTrip(t *testing.T) {
	provider, err := NewAppKeySecretProviderFromString("grant-store-test-key", WithKeyID("appsession-v1"), WithVersion(3))
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}

	plaintext := []byte("safe-auth:granted/abc123")
	encrypted, err := provider.Encrypt(context.Background(), plaintext)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if bytes.Contains(encrypted, plaintext) {
		t.Fatalf("ciphertext must not contain the plaintext uri")
	}
	if !bytes.HasPrefix(encrypted, []byte(envelopePrefix)) {
		t.Fatalf("expected envelope prefix")
	}

	decrypted, err := provider.Decrypt(context.Background(), encrypted)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Fatalf("expected roundtrip plaintext, got %q", decrypted)
	}
}

func TestAppKeySecretProvider_RejectsMetadataMismatch(t *testing.T) {
	issuer, err := NewAppKeySecretProviderFromString("grant-store-test-key", WithKeyID("appsession-v1"), WithVersion(1))
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	receiver, err := NewAppKeySecretProviderFromString("grant-store-test-key", WithKeyID("appsession-v2"), WithVersion(2))
	if err != nil {
		t.Fatalf("new receiver: %v", err)
	}

	encrypted, err := issuer.Encrypt(context.Background(), []byte("payload"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := receiver.Decrypt(context.Background(), encrypted); err == nil {
		t.Fatalf("expected metadata mismatch error")
	}
}

func TestAppKeySecretProvider_RejectsTamperedCiphertext(t *testing.T) {
	provider, err := NewAppKeySecretProviderFromString("grant-store-test-key")
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	encrypted, err := provider.Encrypt(context.Background(), []byte("payload"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	tampered := bytes.Replace(encrypted, []byte(`"ciphertext":"`), []byte(`"ciphertext":"AAAA`), 1)
	if _, err := provider.Decrypt(context.Background(), tampered); err == nil {
		t.Fatalf("expected tampered envelope to fail")
	}
}

func TestParseEnvelopeMetadata(t *testing.T) {
	provider, err := NewAppKeySecretProviderFromString("grant-store-test-key", WithKeyID("appsession-v1"), WithVersion(2))
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	encrypted, err := provider.Encrypt(context.Background(), []byte("payload"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	meta, err := ParseEnvelopeMetadata(encrypted)
	if err != nil {
		t.Fatalf("parse metadata: %v", err)
	}
	if meta.KeyID != "appsession-v1" || meta.Version != 2 || meta.Algorithm != envelopeAlgorithm {
		t.Fatalf("unexpected metadata %+v", meta)
	}

	if _, err := ParseEnvelopeMetadata([]byte("not-an-envelope")); err == nil {
		t.Fatalf("expected invalid prefix error")
	}
}

func TestKeyringSecretProvider_RotationKeepsOldPayloadsReadable(t *testing.T) {
	ctx := context.Background()
	v1, err := NewAppKeySecretProviderFromString("key-material-1", WithKeyID("appsession"), WithVersion(1))
	if err != nil {
		t.Fatalf("new v1: %v", err)
	}
	ring, err := NewKeyringSecretProvider(v1)
	if err != nil {
		t.Fatalf("new ring: %v", err)
	}

	oldCipher, err := ring.Encrypt(ctx, []byte("old-grant"))
	if err != nil {
		t.Fatalf("encrypt old: %v", err)
	}

	v2, err := NewAppKeySecretProviderFromString("key-material-2", WithKeyID("appsession"), WithVersion(2))
	if err != nil {
		t.Fatalf("new v2: %v", err)
	}
	if err := ring.Rotate(v2); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	newCipher, err := ring.Encrypt(ctx, []byte("new-grant"))
	if err != nil {
		t.Fatalf("encrypt new: %v", err)
	}
	newMeta, err := ParseEnvelopeMetadata(newCipher)
	if err != nil || newMeta.Version != 2 {
		t.Fatalf("new payloads must use the current key, got %+v %v", newMeta, err)
	}

	oldPlain, err := ring.Decrypt(ctx, oldCipher)
	if err != nil || string(oldPlain) != "old-grant" {
		t.Fatalf("old payloads must stay readable, got %q %v", oldPlain, err)
	}

	if got := ring.KeyIDs(); len(got) != 2 {
		t.Fatalf("expected two keys on the ring, got %v", got)
	}
}

func TestKeyringSecretProvider_UnknownKey(t *testing.T) {
	ctx := context.Background()
	v1, err := NewAppKeySecretProviderFromString("key-material-1", WithKeyID("appsession"), WithVersion(1))
	if err != nil {
		t.Fatalf("new v1: %v", err)
	}
	ring, err := NewKeyringSecretProvider(v1)
	if err != nil {
		t.Fatalf("new ring: %v", err)
	}

	stranger, err := NewAppKeySecretProviderFromString("other-material", WithKeyID("elsewhere"), WithVersion(9))
	if err != nil {
		t.Fatalf("new stranger: %v", err)
	}
	cipher, err := stranger.Encrypt(ctx, []byte("payload"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	_, err = ring.Decrypt(ctx, cipher)
	if err == nil || !strings.Contains(err.Error(), "no key on ring") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}
