// Package core contains the canonical appsession domain contracts, entities,
// and orchestration logic: the handle registry, the session state machine,
// and the authorization exchange protocol. Lower-level adapters must depend
// on this package; core must not depend on network-specific or
// authenticator-specific adapters.
package core
