package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-appsession/core"
	goerrors "github.com/goliatone/go-errors"
)

const KindHTTP = "http"

const defaultHTTPClientTimeout = 30 * time.Second

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPAdapter delivers auth request descriptors to an authenticator that
// listens on an HTTP endpoint, typically a local daemon. The descriptor is
// posted as JSON; the authenticator answers out-of-band through its
// response URI, not through this request's body.
type HTTPAdapter struct {
	Endpoint       string
	Client         HTTPDoer
	DefaultHeaders map[string]string
}

type httpDispatchPayload struct {
	RequestID string `json:"request_id"`
	URI       string `json:"uri"`
	Payload   []byte `json:"payload"`
}

func NewHTTPAdapter(endpoint string, client HTTPDoer) *HTTPAdapter {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPClientTimeout}
	}
	return &HTTPAdapter{
		Endpoint:       strings.TrimSpace(endpoint),
		Client:         client,
		DefaultHeaders: map[string]string{"Content-Type": "application/json"},
	}
}

func (*HTTPAdapter) Kind() string {
	return KindHTTP
}

func (a *HTTPAdapter) Dispatch(ctx context.Context, descriptor core.AuthRequestDescriptor) error {
	if a == nil || a.Client == nil {
		return dispatchError(
			"dispatch: http adapter requires an http client",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			map[string]any{"adapter": KindHTTP},
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	endpoint := strings.TrimSpace(a.Endpoint)
	if endpoint == "" {
		return dispatchError(
			"dispatch: authenticator endpoint is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			map[string]any{"adapter": KindHTTP},
		)
	}
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" {
		return dispatchWrapError(
			err,
			goerrors.CategoryBadInput,
			"dispatch: invalid authenticator endpoint",
			http.StatusBadRequest,
			map[string]any{"adapter": KindHTTP, "endpoint": endpoint},
		)
	}

	body, err := json.Marshal(httpDispatchPayload{
		RequestID: descriptor.RequestID,
		URI:       descriptor.URI,
		Payload:   descriptor.Payload,
	})
	if err != nil {
		return dispatchWrapError(
			err,
			goerrors.CategoryInternal,
			"dispatch: encode request descriptor",
			http.StatusInternalServerError,
			map[string]any{"adapter": KindHTTP, "request_id": descriptor.RequestID},
		)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, parsed.String(), bytes.NewReader(body))
	if err != nil {
		return dispatchWrapError(
			err,
			goerrors.CategoryBadInput,
			"dispatch: create http request",
			http.StatusBadRequest,
			map[string]any{"adapter": KindHTTP, "endpoint": parsed.String()},
		)
	}
	for key, value := range a.DefaultHeaders {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	httpRes, err := a.Client.Do(httpReq)
	if err != nil {
		return dispatchWrapError(
			err,
			goerrors.CategoryExternal,
			"dispatch: deliver to authenticator endpoint",
			http.StatusBadGateway,
			map[string]any{"adapter": KindHTTP, "endpoint": parsed.String()},
		)
	}
	defer httpRes.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(httpRes.Body, 4096))

	if httpRes.StatusCode < 200 || httpRes.StatusCode > 299 {
		return dispatchError(
			fmt.Sprintf("dispatch: authenticator endpoint answered %d", httpRes.StatusCode),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{
				"adapter":     KindHTTP,
				"endpoint":    parsed.String(),
				"status_code": httpRes.StatusCode,
			},
		)
	}
	return nil
}

var _ Adapter = (*HTTPAdapter)(nil)
