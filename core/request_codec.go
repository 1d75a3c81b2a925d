package core

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

const (
	AuthPayloadFormatCBORV1 = "auth_request_cbor"
	AuthPayloadVersionV1    = 1

	DefaultAuthURIScheme = "safe-auth"

	requestPathSegment  = "request"
	responsePathSegment = "response"
)

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	var err error
	// Core Deterministic Encoding: the same request always produces
	// identical descriptor bytes, so a re-encoded request can be compared
	// byte-for-byte against the dispatched one.
	cborEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("core: CBOR encoder initialization failed: " + err.Error())
	}
	cborDecMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("core: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBORRequestCodec encodes authorization requests as deterministic CBOR
// payloads wrapped in a URI scheme, and decodes the authenticator's
// response URIs. The payload is opaque to every other component.
type CBORRequestCodec struct {
	Scheme string
}

type cborAuthRequestPayload struct {
	RequestID    string              `cbor:"request_id"`
	Kind         string              `cbor:"kind"`
	AppID        string              `cbor:"app_id"`
	AppName      string              `cbor:"app_name"`
	AppVendor    string              `cbor:"app_vendor"`
	AppScope     string              `cbor:"app_scope,omitempty"`
	Permissions  map[string][]string `cbor:"permissions"`
	OwnContainer bool                `cbor:"own_container"`
}

type cborAuthResponsePayload struct {
	RequestID string `cbor:"request_id"`
	Granted   bool   `cbor:"granted"`
	AuthURI   string `cbor:"auth_uri,omitempty"`
	Reason    string `cbor:"reason,omitempty"`
}

func (c CBORRequestCodec) Format() string {
	return AuthPayloadFormatCBORV1
}

func (c CBORRequestCodec) Version() int {
	return AuthPayloadVersionV1
}

func (c CBORRequestCodec) scheme() string {
	scheme := strings.TrimSpace(c.Scheme)
	if scheme == "" {
		scheme = DefaultAuthURIScheme
	}
	return scheme
}

func (c CBORRequestCodec) EncodeRequest(req AuthRequest, requestID string) (AuthRequestDescriptor, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return AuthRequestDescriptor{}, fmt.Errorf("core: auth request id is required")
	}
	if err := req.App.Validate(); err != nil {
		return AuthRequestDescriptor{}, err
	}

	permissions := make(map[string][]string, len(req.Permissions))
	for container, perms := range req.Permissions.Normalize() {
		list := make([]string, 0, len(perms))
		for _, perm := range perms {
			list = append(list, string(perm))
		}
		permissions[container] = list
	}

	payload, err := cborEncMode.Marshal(cborAuthRequestPayload{
		RequestID:    requestID,
		Kind:         string(req.Kind),
		AppID:        strings.TrimSpace(req.App.ID),
		AppName:      strings.TrimSpace(req.App.Name),
		AppVendor:    strings.TrimSpace(req.App.Vendor),
		AppScope:     strings.TrimSpace(req.App.Scope),
		Permissions:  permissions,
		OwnContainer: req.Options.OwnContainer,
	})
	if err != nil {
		return AuthRequestDescriptor{}, fmt.Errorf("core: encode auth request payload: %w", err)
	}

	return AuthRequestDescriptor{
		RequestID: requestID,
		URI:       c.scheme() + ":" + requestPathSegment + "/" + base64.RawURLEncoding.EncodeToString(payload),
		Payload:   payload,
	}, nil
}

func (c CBORRequestCodec) EncodeResponse(resp AuthResponse) (string, error) {
	if strings.TrimSpace(resp.RequestID) == "" {
		return "", fmt.Errorf("core: auth request id is required")
	}
	payload, err := cborEncMode.Marshal(cborAuthResponsePayload{
		RequestID: strings.TrimSpace(resp.RequestID),
		Granted:   resp.Granted,
		AuthURI:   strings.TrimSpace(resp.AuthURI),
		Reason:    strings.TrimSpace(resp.Reason),
	})
	if err != nil {
		return "", fmt.Errorf("core: encode auth response payload: %w", err)
	}
	return c.scheme() + ":" + responsePathSegment + "/" + base64.RawURLEncoding.EncodeToString(payload), nil
}

func (c CBORRequestCodec) DecodeResponse(uri string) (AuthResponse, error) {
	trimmed := strings.TrimSpace(uri)
	if trimmed == "" {
		return AuthResponse{}, fmt.Errorf("core: auth response uri is required")
	}
	prefix := c.scheme() + ":" + responsePathSegment + "/"
	if !strings.HasPrefix(trimmed, prefix) {
		return AuthResponse{}, fmt.Errorf("core: invalid auth response uri scheme: %s", trimmed)
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(trimmed, prefix))
	if err != nil {
		return AuthResponse{}, fmt.Errorf("core: decode auth response uri: %w", err)
	}

	decoded := cborAuthResponsePayload{}
	if err := cborDecMode.Unmarshal(payload, &decoded); err != nil {
		return AuthResponse{}, fmt.Errorf("core: decode auth response payload: %w", err)
	}
	if strings.TrimSpace(decoded.RequestID) == "" {
		return AuthResponse{}, fmt.Errorf("core: auth response request id is required")
	}
	return AuthResponse{
		RequestID: strings.TrimSpace(decoded.RequestID),
		Granted:   decoded.Granted,
		AuthURI:   strings.TrimSpace(decoded.AuthURI),
		Reason:    strings.TrimSpace(decoded.Reason),
	}, nil
}

// DecodeRequest is the authenticator-side view of a request descriptor URI.
// The devkit authenticator uses it; real authenticators live out of process.
func (c CBORRequestCodec) DecodeRequest(uri string) (AuthRequest, string, error) {
	trimmed := strings.TrimSpace(uri)
	prefix := c.scheme() + ":" + requestPathSegment + "/"
	if !strings.HasPrefix(trimmed, prefix) {
		return AuthRequest{}, "", fmt.Errorf("core: invalid auth request uri scheme: %s", trimmed)
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(trimmed, prefix))
	if err != nil {
		return AuthRequest{}, "", fmt.Errorf("core: decode auth request uri: %w", err)
	}

	decoded := cborAuthRequestPayload{}
	if err := cborDecMode.Unmarshal(payload, &decoded); err != nil {
		return AuthRequest{}, "", fmt.Errorf("core: decode auth request payload: %w", err)
	}

	perms := make(PermissionSet, len(decoded.Permissions))
	for container, list := range decoded.Permissions {
		converted := make([]Permission, 0, len(list))
		for _, perm := range list {
			converted = append(converted, Permission(perm))
		}
		perms[container] = converted
	}

	return AuthRequest{
		Kind: AuthRequestKind(decoded.Kind),
		App: AppInfo{
			ID:     decoded.AppID,
			Name:   decoded.AppName,
			Vendor: decoded.AppVendor,
			Scope:  decoded.AppScope,
		},
		Permissions: perms,
		Options:     AuthOptions{OwnContainer: decoded.OwnContainer},
	}, decoded.RequestID, nil
}

var _ RequestCodec = CBORRequestCodec{}
