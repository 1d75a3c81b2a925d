package query

import (
	"context"

	"github.com/goliatone/go-appsession/core"
)

// SessionReader is the read-only slice of the session surface the query
// facade fronts. *core.Service satisfies it.
type SessionReader interface {
	NetworkState(ctx context.Context, session core.Handle) (core.NetworkStateInfo, error)
	IsRegistered(ctx context.Context, session core.Handle) (bool, error)
	GetContainersNames(ctx context.Context, session core.Handle) ([]string, error)
	CanAccessContainer(ctx context.Context, session core.Handle, container string, perms []core.Permission) (bool, error)
	WebFetch(ctx context.Context, session core.Handle, url string) ([]byte, error)
}

type NetworkStateQuery struct {
	reader SessionReader
}

func NewNetworkStateQuery(reader SessionReader) *NetworkStateQuery {
	return &NetworkStateQuery{reader: reader}
}

func (q *NetworkStateQuery) Query(ctx context.Context, msg NetworkStateMessage) (core.NetworkStateInfo, error) {
	if q == nil || q.reader == nil {
		return core.NetworkStateInfo{}, queryDependencyError("query: session reader is required")
	}
	return q.reader.NetworkState(ctx, msg.Session)
}

type IsRegisteredQuery struct {
	reader SessionReader
}

func NewIsRegisteredQuery(reader SessionReader) *IsRegisteredQuery {
	return &IsRegisteredQuery{reader: reader}
}

func (q *IsRegisteredQuery) Query(ctx context.Context, msg IsRegisteredMessage) (bool, error) {
	if q == nil || q.reader == nil {
		return false, queryDependencyError("query: session reader is required")
	}
	return q.reader.IsRegistered(ctx, msg.Session)
}

type ContainersNamesQuery struct {
	reader SessionReader
}

func NewContainersNamesQuery(reader SessionReader) *ContainersNamesQuery {
	return &ContainersNamesQuery{reader: reader}
}

func (q *ContainersNamesQuery) Query(ctx context.Context, msg ContainersNamesMessage) ([]string, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: session reader is required")
	}
	return q.reader.GetContainersNames(ctx, msg.Session)
}

type CanAccessContainerQuery struct {
	reader SessionReader
}

func NewCanAccessContainerQuery(reader SessionReader) *CanAccessContainerQuery {
	return &CanAccessContainerQuery{reader: reader}
}

func (q *CanAccessContainerQuery) Query(ctx context.Context, msg CanAccessContainerMessage) (bool, error) {
	if q == nil || q.reader == nil {
		return false, queryDependencyError("query: session reader is required")
	}
	return q.reader.CanAccessContainer(ctx, msg.Session, msg.Container, msg.Permissions)
}

type WebFetchQuery struct {
	reader SessionReader
}

func NewWebFetchQuery(reader SessionReader) *WebFetchQuery {
	return &WebFetchQuery{reader: reader}
}

func (q *WebFetchQuery) Query(ctx context.Context, msg WebFetchMessage) ([]byte, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: session reader is required")
	}
	return q.reader.WebFetch(ctx, msg.Session, msg.URL)
}
