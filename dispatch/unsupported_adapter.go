package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-appsession/core"
)

const (
	KindIPC    = "ipc"
	KindIntent = "intent"
)

// UnsupportedAdapter stands in for channel kinds the host environment has
// not wired up. Dispatching through it always fails with the reason.
type UnsupportedAdapter struct {
	kind   string
	reason string
}

func NewUnsupportedAdapter(kind string, reason string) *UnsupportedAdapter {
	return &UnsupportedAdapter{
		kind:   strings.TrimSpace(strings.ToLower(kind)),
		reason: strings.TrimSpace(reason),
	}
}

func (a *UnsupportedAdapter) Kind() string {
	if a == nil {
		return ""
	}
	return a.kind
}

func (a *UnsupportedAdapter) Dispatch(context.Context, core.AuthRequestDescriptor) error {
	if a == nil {
		return fmt.Errorf("dispatch: adapter is nil")
	}
	if a.reason != "" {
		return fmt.Errorf(
			"dispatch: %s channel is not configured: %s",
			a.kind,
			a.reason,
		)
	}
	return fmt.Errorf("dispatch: %s channel is not configured", a.kind)
}

var _ Adapter = (*UnsupportedAdapter)(nil)
