package core

import (
	stderrors "errors"
	"reflect"
	"testing"
	"time"
)

func TestPermissionSet_Normalize(t *testing.T) {
	perms := PermissionSet{
		"  _public ": {PermissionRead, "READ", " Insert "},
		"":           {PermissionDelete},
	}

	normalized := perms.Normalize()
	if len(normalized) != 1 {
		t.Fatalf("expected one container, got %d", len(normalized))
	}
	got := normalized["_public"]
	want := []Permission{PermissionInsert, PermissionRead}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if len(perms["  _public "]) != 3 {
		t.Fatalf("normalize must not mutate the receiver")
	}
}

func TestPermissionSet_Validate(t *testing.T) {
	valid := PermissionSet{"_documents": {PermissionRead, PermissionManagePermissions}}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid set, got %v", err)
	}

	unknown := PermissionSet{"_documents": {"execute"}}
	if err := unknown.Validate(); !stderrors.Is(err, ErrInvalidPermissionSet) {
		t.Fatalf("expected invalid permission set, got %v", err)
	}

	unnamed := PermissionSet{"  ": {PermissionRead}}
	if err := unnamed.Validate(); !stderrors.Is(err, ErrInvalidPermissionSet) {
		t.Fatalf("expected invalid container name, got %v", err)
	}
}

func TestAppInfo_Validate(t *testing.T) {
	if err := testAppInfo().Validate(); err != nil {
		t.Fatalf("expected valid app info, got %v", err)
	}

	cases := []AppInfo{
		{Name: "n", Vendor: "v"},
		{ID: "id", Vendor: "v"},
		{ID: "id", Name: "n"},
		{ID: "   ", Name: "n", Vendor: "v"},
	}
	for i, app := range cases {
		if err := app.Validate(); !stderrors.Is(err, ErrInvalidAppInfo) {
			t.Fatalf("case %d: expected invalid app info, got %v", i, err)
		}
	}
}

func TestGrant_TransitionTo(t *testing.T) {
	now := time.Now().UTC()
	grant := &Grant{Status: GrantStatusActive}

	if err := grant.TransitionTo(GrantStatusRevoked, "user request", now); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if grant.Status != GrantStatusRevoked || grant.RevocationReason != "user request" {
		t.Fatalf("unexpected grant after revoke: %+v", grant)
	}

	if err := grant.TransitionTo(GrantStatusActive, "", now); !stderrors.Is(err, ErrInvalidGrantStatus) {
		t.Fatalf("revoked grants must not reactivate, got %v", err)
	}
}

func TestFlattenPermissionSet(t *testing.T) {
	flattened := FlattenPermissionSet(PermissionSet{
		"_music":  {PermissionUpdate, PermissionRead},
		"_public": {PermissionRead},
	})
	want := []string{"_music:read", "_music:update", "_public:read"}
	if !reflect.DeepEqual(flattened, want) {
		t.Fatalf("expected %v, got %v", want, flattened)
	}
}

func TestComputeGrantDelta(t *testing.T) {
	previous := []string{"_public:read", "_music:read"}

	expanded := ComputeGrantDelta(previous, []string{"_public:read", "_music:read", "_music:update"})
	if expanded.EventType != GrantEventExpanded || len(expanded.Added) != 1 || len(expanded.Removed) != 0 {
		t.Fatalf("unexpected expanded delta: %+v", expanded)
	}

	downgraded := ComputeGrantDelta(previous, []string{"_public:read"})
	if downgraded.EventType != GrantEventDowngraded || len(downgraded.Removed) != 1 {
		t.Fatalf("unexpected downgraded delta: %+v", downgraded)
	}

	revoked := ComputeGrantDelta(previous, nil)
	if revoked.EventType != GrantEventRevoked || len(revoked.Removed) != 2 {
		t.Fatalf("unexpected revoked delta: %+v", revoked)
	}

	unchanged := ComputeGrantDelta(previous, []string{"_music:read", "_public:read"})
	if unchanged.EventType != "" || len(unchanged.Added) != 0 || len(unchanged.Removed) != 0 {
		t.Fatalf("unexpected unchanged delta: %+v", unchanged)
	}
}
