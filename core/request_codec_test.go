package core

import (
	"bytes"
	"strings"
	"testing"
)

func TestCBORRequestCodec_RequestRoundTrip(t *testing.T) {
	codec := CBORRequestCodec{}
	request := AuthRequest{
		Kind: AuthRequestKindApp,
		App:  testAppInfo(),
		Permissions: PermissionSet{
			"_public": {PermissionRead, PermissionInsert},
		},
		Options: AuthOptions{OwnContainer: true},
	}

	descriptor, err := codec.EncodeRequest(request, "req-abc")
	if err != nil {
		t.Fatalf("encode request: %v", err)
	}
	if descriptor.RequestID != "req-abc" {
		t.Fatalf("unexpected request id %q", descriptor.RequestID)
	}
	if !strings.HasPrefix(descriptor.URI, "safe-auth:request/") {
		t.Fatalf("unexpected request uri %q", descriptor.URI)
	}
	if strings.Contains(descriptor.URI, request.App.ID) {
		t.Fatalf("request uri must not expose the app id in clear text")
	}

	decoded, requestID, err := codec.DecodeRequest(descriptor.URI)
	if err != nil {
		t.Fatalf("decode request: %v", err)
	}
	if requestID != "req-abc" {
		t.Fatalf("unexpected decoded request id %q", requestID)
	}
	if decoded.Kind != AuthRequestKindApp {
		t.Fatalf("unexpected kind %q", decoded.Kind)
	}
	if decoded.App != request.App {
		t.Fatalf("app info did not survive the round trip: %+v", decoded.App)
	}
	if !decoded.Options.OwnContainer {
		t.Fatalf("own container flag lost")
	}
	perms := decoded.Permissions["_public"]
	if len(perms) != 2 || perms[0] != PermissionInsert || perms[1] != PermissionRead {
		t.Fatalf("unexpected permissions %v", perms)
	}
}

func TestCBORRequestCodec_DeterministicEncoding(t *testing.T) {
	codec := CBORRequestCodec{}
	request := AuthRequest{
		Kind: AuthRequestKindContainer,
		App:  testAppInfo(),
		Permissions: PermissionSet{
			"_music":  {PermissionUpdate, PermissionRead},
			"_public": {PermissionRead},
		},
	}

	first, err := codec.EncodeRequest(request, "req-det")
	if err != nil {
		t.Fatalf("first encode: %v", err)
	}
	second, err := codec.EncodeRequest(request, "req-det")
	if err != nil {
		t.Fatalf("second encode: %v", err)
	}
	if !bytes.Equal(first.Payload, second.Payload) {
		t.Fatalf("same request must encode to identical payload bytes")
	}
}

func TestCBORRequestCodec_ResponseRoundTrip(t *testing.T) {
	codec := CBORRequestCodec{Scheme: "x-app-auth"}
	uri, err := codec.EncodeResponse(AuthResponse{
		RequestID: "req-1",
		Granted:   false,
		Reason:    "user declined",
	})
	if err != nil {
		t.Fatalf("encode response: %v", err)
	}
	if !strings.HasPrefix(uri, "x-app-auth:response/") {
		t.Fatalf("unexpected response uri %q", uri)
	}

	resp, err := codec.DecodeResponse(uri)
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.RequestID != "req-1" || resp.Granted || resp.Reason != "user declined" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestCBORRequestCodec_RejectsMalformedInput(t *testing.T) {
	codec := CBORRequestCodec{}

	if _, err := codec.DecodeResponse(""); err == nil {
		t.Fatalf("expected empty uri to be rejected")
	}
	if _, err := codec.DecodeResponse("https://example.com/response/abc"); err == nil {
		t.Fatalf("expected foreign scheme to be rejected")
	}
	if _, err := codec.DecodeResponse("safe-auth:response/!!!not-base64!!!"); err == nil {
		t.Fatalf("expected invalid base64 to be rejected")
	}
	if _, err := codec.DecodeResponse("safe-auth:response/AAAA"); err == nil {
		t.Fatalf("expected invalid payload to be rejected")
	}

	if _, err := codec.EncodeRequest(AuthRequest{App: testAppInfo()}, ""); err == nil {
		t.Fatalf("expected missing request id to be rejected")
	}
	if _, err := codec.EncodeRequest(AuthRequest{App: AppInfo{}}, "req"); err == nil {
		t.Fatalf("expected invalid app info to be rejected")
	}
}
