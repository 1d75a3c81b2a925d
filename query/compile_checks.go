package query

import (
	"github.com/goliatone/go-appsession/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Querier[NetworkStateMessage, core.NetworkStateInfo] = (*NetworkStateQuery)(nil)
	_ gocmd.Querier[IsRegisteredMessage, bool]                  = (*IsRegisteredQuery)(nil)
	_ gocmd.Querier[ContainersNamesMessage, []string]           = (*ContainersNamesQuery)(nil)
	_ gocmd.Querier[CanAccessContainerMessage, bool]            = (*CanAccessContainerQuery)(nil)
	_ gocmd.Querier[WebFetchMessage, []byte]                    = (*WebFetchQuery)(nil)
)
