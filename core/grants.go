package core

import (
	"sort"
	"strings"
)

const (
	GrantEventExpanded   = "expanded"
	GrantEventDowngraded = "downgraded"
	GrantEventRevoked    = "revoked"
)

type GrantDelta struct {
	EventType string
	Added     []string
	Removed   []string
}

// FlattenPermissionSet renders a permission set as sorted
// "container:permission" grant strings, the form persisted with a grant
// record and compared across refreshes.
func FlattenPermissionSet(perms PermissionSet) []string {
	flattened := make([]string, 0, len(perms))
	for container, list := range perms.Normalize() {
		for _, perm := range list {
			flattened = append(flattened, container+":"+string(perm))
		}
	}
	sort.Strings(flattened)
	return flattened
}

func ComputeGrantDelta(previous, current []string) GrantDelta {
	prevSet := toGrantSet(previous)
	currSet := toGrantSet(current)

	added := make([]string, 0, len(currSet))
	removed := make([]string, 0, len(prevSet))
	for grant := range currSet {
		if _, ok := prevSet[grant]; !ok {
			added = append(added, grant)
		}
	}
	for grant := range prevSet {
		if _, ok := currSet[grant]; !ok {
			removed = append(removed, grant)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)

	eventType := ""
	switch {
	case len(removed) > 0 && len(currSet) == 0:
		eventType = GrantEventRevoked
	case len(removed) > 0:
		eventType = GrantEventDowngraded
	case len(added) > 0:
		eventType = GrantEventExpanded
	}
	return GrantDelta{
		EventType: eventType,
		Added:     added,
		Removed:   removed,
	}
}

func normalizeGrants(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}
	set := toGrantSet(values)
	out := make([]string, 0, len(set))
	for grant := range set {
		out = append(out, grant)
	}
	sort.Strings(out)
	return out
}

func toGrantSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(strings.ToLower(value))
		if trimmed == "" {
			continue
		}
		set[trimmed] = struct{}{}
	}
	return set
}
