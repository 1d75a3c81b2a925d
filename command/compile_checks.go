package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[InitialiseMessage]            = (*InitialiseCommand)(nil)
	_ gocmd.Commander[ConnectMessage]               = (*ConnectCommand)(nil)
	_ gocmd.Commander[AuthoriseMessage]             = (*AuthoriseCommand)(nil)
	_ gocmd.Commander[AuthoriseContainerMessage]    = (*AuthoriseContainerCommand)(nil)
	_ gocmd.Commander[ConnectAuthorisedMessage]     = (*ConnectAuthorisedCommand)(nil)
	_ gocmd.Commander[ConnectStoredMessage]         = (*ConnectStoredCommand)(nil)
	_ gocmd.Commander[CompleteAuthorisationMessage] = (*CompleteAuthorisationCommand)(nil)
	_ gocmd.Commander[RevokeStoredGrantMessage]     = (*RevokeStoredGrantCommand)(nil)
	_ gocmd.Commander[FreeMessage]                  = (*FreeCommand)(nil)
)
