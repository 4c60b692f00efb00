package plan

import (
	"sort"
	"strings"
)

// DefaultRolePrefix scopes which role tokens participate in equality
// comparison, so provider-injected defaults ("anonymous", "authenticated")
// never trigger spurious updates.
const DefaultRolePrefix = "github-"

// RoleMapping translates each permission level into the role string assigned
// on the external system.
type RoleMapping map[PermissionLevel]string

// DefaultRoleMapping maps every ladder level to DefaultRolePrefix + level.
func DefaultRoleMapping() RoleMapping {
	mapping := make(RoleMapping, len(Ladder))
	for _, level := range Ladder {
		mapping[level] = DefaultRolePrefix + string(level)
	}
	return mapping
}

// MapRole is a total table lookup; levels are validated upstream.
func MapRole(level PermissionLevel, mapping RoleMapping) string {
	if role, ok := mapping[level]; ok {
		return role
	}
	return DefaultRolePrefix + string(level)
}

// NormalizeLogin canonicalizes a login for comparison.
func NormalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}

// ResolveIdentity returns the normalized login of an external user record,
// preferring UserDetails over DisplayName. An empty result means the record
// is unidentifiable and must stay invisible to the diff.
func ResolveIdentity(user ExternalUser) string {
	if strings.TrimSpace(user.UserDetails) != "" {
		return NormalizeLogin(user.UserDetails)
	}
	if strings.TrimSpace(user.DisplayName) != "" {
		return NormalizeLogin(user.DisplayName)
	}
	return ""
}

// NormalizeRoleSet canonicalizes a comma-joined role string for
// order-insensitive, prefix-scoped equality comparison.
func NormalizeRoleSet(roles, prefix string) string {
	if roles == "" {
		return ""
	}
	var kept []string
	for _, role := range strings.Split(roles, ",") {
		role = strings.ToLower(strings.TrimSpace(role))
		if strings.HasPrefix(role, prefix) {
			kept = append(kept, role)
		}
	}
	sort.Strings(kept)
	return strings.Join(kept, ",")
}

// ComputeSyncPlan diffs the desired collaborator snapshot against the
// external store's current users and returns the add/update/remove plan.
// Output order follows the insertion order of the respective inputs, so a
// given input always yields the same plan. The function is pure: no I/O and
// no mutation of its arguments.
func ComputeSyncPlan(desiredUsers []DesiredUser, externalUsers []ExternalUser, mapping RoleMapping, rolePrefix string) SyncPlan {
	if rolePrefix == "" {
		rolePrefix = DefaultRolePrefix
	}

	desired := make(map[string]string, len(desiredUsers))
	desiredOrder := make([]string, 0, len(desiredUsers))
	for _, user := range desiredUsers {
		login := NormalizeLogin(user.Login)
		if _, seen := desired[login]; !seen {
			desiredOrder = append(desiredOrder, login)
		}
		// Duplicate normalized logins: last write wins.
		desired[login] = MapRole(user.Level, mapping)
	}

	existing := make(map[string]ExternalUser, len(externalUsers))
	existingOrder := make([]string, 0, len(externalUsers))
	for _, user := range externalUsers {
		login := ResolveIdentity(user)
		if login == "" {
			// Unidentifiable records are neither updated nor removed.
			continue
		}
		if _, seen := existing[login]; !seen {
			existingOrder = append(existingOrder, login)
		}
		existing[login] = user
	}

	var result SyncPlan
	for _, login := range desiredOrder {
		role := desired[login]
		current, ok := existing[login]
		if !ok {
			result.ToAdd = append(result.ToAdd, PlanAdd{Login: login, Role: role})
			continue
		}
		if NormalizeRoleSet(current.Roles, rolePrefix) != NormalizeRoleSet(role, rolePrefix) {
			result.ToUpdate = append(result.ToUpdate, PlanUpdate{
				Login:        login,
				Role:         role,
				CurrentRoles: current.Roles,
			})
		}
	}

	for _, login := range existingOrder {
		if _, ok := desired[login]; !ok {
			result.ToRemove = append(result.ToRemove, PlanRemove{
				Login:        login,
				CurrentRoles: existing[login].Roles,
			})
		}
	}

	return result
}
