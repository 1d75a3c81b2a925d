package command

import (
	"context"
	"testing"

	"github.com/goliatone/go-appsession/core"
	gocmd "github.com/goliatone/go-command"
)

type stubMutatingService struct {
	initialiseFn            func(context.Context, core.AppInfo) (core.Handle, error)
	connectFn               func(context.Context, core.Handle) error
	authoriseFn             func(context.Context, core.Handle, core.PermissionSet, core.AuthOptions) (string, error)
	authoriseContainerFn    func(context.Context, core.Handle, core.PermissionSet) (string, error)
	connectAuthorisedFn     func(context.Context, core.Handle, string) error
	connectStoredFn         func(context.Context, core.Handle) error
	completeAuthorisationFn func(context.Context, string) error
	revokeStoredGrantFn     func(context.Context, string, string) error
	freeFn                  func(context.Context, core.Handle) error
}

func (s stubMutatingService) Initialise(ctx context.Context, app core.AppInfo) (core.Handle, error) {
	return s.initialiseFn(ctx, app)
}

func (s stubMutatingService) Connect(ctx context.Context, session core.Handle) error {
	return s.connectFn(ctx, session)
}

func (s stubMutatingService) Authorise(ctx context.Context, session core.Handle, perms core.PermissionSet, opts core.AuthOptions) (string, error) {
	return s.authoriseFn(ctx, session, perms, opts)
}

func (s stubMutatingService) AuthoriseContainer(ctx context.Context, session core.Handle, perms core.PermissionSet) (string, error) {
	return s.authoriseContainerFn(ctx, session, perms)
}

func (s stubMutatingService) ConnectAuthorised(ctx context.Context, session core.Handle, authURI string) error {
	return s.connectAuthorisedFn(ctx, session, authURI)
}

func (s stubMutatingService) ConnectStored(ctx context.Context, session core.Handle) error {
	return s.connectStoredFn(ctx, session)
}

func (s stubMutatingService) CompleteAuthorisation(ctx context.Context, responseURI string) error {
	return s.completeAuthorisationFn(ctx, responseURI)
}

func (s stubMutatingService) RevokeStoredGrant(ctx context.Context, appID string, reason string) error {
	return s.revokeStoredGrantFn(ctx, appID, reason)
}

func (s stubMutatingService) Free(ctx context.Context, handle core.Handle) error {
	return s.freeFn(ctx, handle)
}

func TestInitialiseCommand_ExecuteDelegatesAndStoresResult(t *testing.T) {
	called := false
	svc := stubMutatingService{
		initialiseFn: func(_ context.Context, app core.AppInfo) (core.Handle, error) {
			called = true
			if app.ID != "net.maidsafe.examples.notes" {
				t.Fatalf("unexpected app id %q", app.ID)
			}
			return core.Handle("session-1"), nil
		},
	}

	cmd := NewInitialiseCommand(svc)
	collector := gocmd.NewResult[core.Handle]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, InitialiseMessage{App: core.AppInfo{
		ID:     "net.maidsafe.examples.notes",
		Name:   "SAFE Notes",
		Vendor: "MaidSafe",
	}})
	if err != nil {
		t.Fatalf("execute initialise: %v", err)
	}
	if !called {
		t.Fatalf("expected initialise service invocation")
	}
	stored, ok := collector.Load()
	if !ok {
		t.Fatalf("expected session handle result")
	}
	if stored != core.Handle("session-1") {
		t.Fatalf("unexpected handle %q", stored)
	}
}

func TestAuthoriseCommand_ExecuteStoresAuthURI(t *testing.T) {
	svc := stubMutatingService{
		authoriseFn: func(_ context.Context, session core.Handle, perms core.PermissionSet, opts core.AuthOptions) (string, error) {
			if session != core.Handle("session-1") {
				t.Fatalf("unexpected session %q", session)
			}
			if !opts.OwnContainer {
				t.Fatalf("expected own container option to pass through")
			}
			if len(perms["_public"]) != 1 {
				t.Fatalf("unexpected permissions %#v", perms)
			}
			return "safe-auth:granted/abc", nil
		},
	}

	cmd := NewAuthoriseCommand(svc)
	collector := gocmd.NewResult[string]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, AuthoriseMessage{
		Session:     core.Handle("session-1"),
		Permissions: core.PermissionSet{"_public": {core.PermissionRead}},
		Options:     core.AuthOptions{OwnContainer: true},
	})
	if err != nil {
		t.Fatalf("execute authorise: %v", err)
	}
	stored, ok := collector.Load()
	if !ok {
		t.Fatalf("expected auth uri result")
	}
	if stored != "safe-auth:granted/abc" {
		t.Fatalf("unexpected auth uri %q", stored)
	}
}

func TestMutationCommands_DelegateToService(t *testing.T) {
	t.Run("connect", func(t *testing.T) {
		called := false
		svc := stubMutatingService{
			connectFn: func(_ context.Context, session core.Handle) error {
				called = true
				if session != core.Handle("session-1") {
					t.Fatalf("unexpected session %q", session)
				}
				return nil
			},
		}
		cmd := NewConnectCommand(svc)
		if err := cmd.Execute(context.Background(), ConnectMessage{Session: "session-1"}); err != nil {
			t.Fatalf("execute connect: %v", err)
		}
		if !called {
			t.Fatalf("expected connect invocation")
		}
	})

	t.Run("connect authorised", func(t *testing.T) {
		called := false
		svc := stubMutatingService{
			connectAuthorisedFn: func(_ context.Context, session core.Handle, authURI string) error {
				called = true
				if session != core.Handle("session-1") || authURI != "safe-auth:granted/abc" {
					t.Fatalf("unexpected payload: %q %q", session, authURI)
				}
				return nil
			},
		}
		cmd := NewConnectAuthorisedCommand(svc)
		msg := ConnectAuthorisedMessage{Session: "session-1", AuthURI: "safe-auth:granted/abc"}
		if err := cmd.Execute(context.Background(), msg); err != nil {
			t.Fatalf("execute connect authorised: %v", err)
		}
		if !called {
			t.Fatalf("expected connect authorised invocation")
		}
	})

	t.Run("connect stored", func(t *testing.T) {
		called := false
		svc := stubMutatingService{
			connectStoredFn: func(_ context.Context, session core.Handle) error {
				called = true
				return nil
			},
		}
		cmd := NewConnectStoredCommand(svc)
		if err := cmd.Execute(context.Background(), ConnectStoredMessage{Session: "session-1"}); err != nil {
			t.Fatalf("execute connect stored: %v", err)
		}
		if !called {
			t.Fatalf("expected connect stored invocation")
		}
	})

	t.Run("complete authorisation", func(t *testing.T) {
		called := false
		svc := stubMutatingService{
			completeAuthorisationFn: func(_ context.Context, responseURI string) error {
				called = true
				if responseURI != "safe-auth:response/AAAA" {
					t.Fatalf("unexpected response uri %q", responseURI)
				}
				return nil
			},
		}
		cmd := NewCompleteAuthorisationCommand(svc)
		msg := CompleteAuthorisationMessage{ResponseURI: "safe-auth:response/AAAA"}
		if err := cmd.Execute(context.Background(), msg); err != nil {
			t.Fatalf("execute complete authorisation: %v", err)
		}
		if !called {
			t.Fatalf("expected complete authorisation invocation")
		}
	})

	t.Run("revoke stored grant", func(t *testing.T) {
		called := false
		svc := stubMutatingService{
			revokeStoredGrantFn: func(_ context.Context, appID string, reason string) error {
				called = true
				if appID != "net.maidsafe.examples.notes" || reason != "manual" {
					t.Fatalf("unexpected revoke payload: %q %q", appID, reason)
				}
				return nil
			},
		}
		cmd := NewRevokeStoredGrantCommand(svc)
		msg := RevokeStoredGrantMessage{AppID: "net.maidsafe.examples.notes", Reason: "manual"}
		if err := cmd.Execute(context.Background(), msg); err != nil {
			t.Fatalf("execute revoke stored grant: %v", err)
		}
		if !called {
			t.Fatalf("expected revoke invocation")
		}
	})

	t.Run("free", func(t *testing.T) {
		called := false
		svc := stubMutatingService{
			freeFn: func(_ context.Context, handle core.Handle) error {
				called = true
				if handle != core.Handle("container-1") {
					t.Fatalf("unexpected handle %q", handle)
				}
				return nil
			},
		}
		cmd := NewFreeCommand(svc)
		if err := cmd.Execute(context.Background(), FreeMessage{Handle: "container-1"}); err != nil {
			t.Fatalf("execute free: %v", err)
		}
		if !called {
			t.Fatalf("expected free invocation")
		}
	})
}

func TestAuthoriseContainerCommand_StoresAuthURI(t *testing.T) {
	svc := stubMutatingService{
		authoriseContainerFn: func(_ context.Context, _ core.Handle, perms core.PermissionSet) (string, error) {
			if len(perms["_documents"]) != 2 {
				t.Fatalf("unexpected permissions %#v", perms)
			}
			return "safe-auth:granted/container", nil
		},
	}

	cmd := NewAuthoriseContainerCommand(svc)
	collector := gocmd.NewResult[string]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, AuthoriseContainerMessage{
		Session: "session-1",
		Permissions: core.PermissionSet{
			"_documents": {core.PermissionRead, core.PermissionInsert},
		},
	})
	if err != nil {
		t.Fatalf("execute authorise container: %v", err)
	}
	stored, ok := collector.Load()
	if !ok {
		t.Fatalf("expected auth uri result")
	}
	if stored != "safe-auth:granted/container" {
		t.Fatalf("unexpected auth uri %q", stored)
	}
}

func TestMessageValidation(t *testing.T) {
	cases := []struct {
		name    string
		message interface{ Validate() error }
		wantErr bool
	}{
		{"initialise missing app", InitialiseMessage{}, true},
		{"initialise valid", InitialiseMessage{App: core.AppInfo{ID: "app", Name: "App", Vendor: "Vendor"}}, false},
		{"connect missing session", ConnectMessage{}, true},
		{"connect valid", ConnectMessage{Session: "session-1"}, false},
		{"authorise empty permissions", AuthoriseMessage{Session: "session-1"}, true},
		{"authorise own container only", AuthoriseMessage{Session: "session-1", Options: core.AuthOptions{OwnContainer: true}}, false},
		{"authorise container empty permissions", AuthoriseContainerMessage{Session: "session-1"}, true},
		{"connect authorised missing uri", ConnectAuthorisedMessage{Session: "session-1"}, true},
		{"complete missing uri", CompleteAuthorisationMessage{}, true},
		{"revoke missing app id", RevokeStoredGrantMessage{}, true},
		{"free missing handle", FreeMessage{}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.message.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}
