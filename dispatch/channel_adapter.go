package dispatch

import (
	"context"
	"net/http"

	"github.com/goliatone/go-appsession/core"
	goerrors "github.com/goliatone/go-errors"
)

const KindChannel = "channel"

const defaultChannelBuffer = 16

// ChannelAdapter delivers descriptors to an authenticator running inside
// the same process over a Go channel. The devkit authenticator consumes
// the Requests side.
type ChannelAdapter struct {
	requests chan core.AuthRequestDescriptor
}

func NewChannelAdapter(buffer int) *ChannelAdapter {
	if buffer <= 0 {
		buffer = defaultChannelBuffer
	}
	return &ChannelAdapter{
		requests: make(chan core.AuthRequestDescriptor, buffer),
	}
}

func (*ChannelAdapter) Kind() string {
	return KindChannel
}

// Requests is the consumer side of the channel.
func (a *ChannelAdapter) Requests() <-chan core.AuthRequestDescriptor {
	if a == nil {
		return nil
	}
	return a.requests
}

func (a *ChannelAdapter) Dispatch(ctx context.Context, descriptor core.AuthRequestDescriptor) error {
	if a == nil || a.requests == nil {
		return dispatchError(
			"dispatch: channel adapter is not configured",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			map[string]any{"adapter": KindChannel},
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case a.requests <- descriptor:
		return nil
	case <-ctx.Done():
		return dispatchWrapError(
			ctx.Err(),
			goerrors.CategoryOperation,
			"dispatch: authenticator channel is full",
			http.StatusServiceUnavailable,
			map[string]any{"adapter": KindChannel, "request_id": descriptor.RequestID},
		)
	}
}

var _ Adapter = (*ChannelAdapter)(nil)
