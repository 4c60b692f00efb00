package plan

import "strings"

// PermissionLevel is a GitHub collaborator permission on the fixed ladder
// admin > maintain > write > triage > read.
type PermissionLevel string

const (
	PermissionAdmin    PermissionLevel = "admin"
	PermissionMaintain PermissionLevel = "maintain"
	PermissionWrite    PermissionLevel = "write"
	PermissionTriage   PermissionLevel = "triage"
	PermissionRead     PermissionLevel = "read"
)

// Ladder lists every permission level from highest to lowest.
var Ladder = []PermissionLevel{
	PermissionAdmin,
	PermissionMaintain,
	PermissionWrite,
	PermissionTriage,
	PermissionRead,
}

var ladderRank = map[PermissionLevel]int{
	PermissionAdmin:    5,
	PermissionMaintain: 4,
	PermissionWrite:    3,
	PermissionTriage:   2,
	PermissionRead:     1,
}

// Rank returns the level's position on the ladder, higher is stronger.
// Unknown levels rank below read.
func (l PermissionLevel) Rank() int {
	return ladderRank[l]
}

// AtLeast reports whether the level grants at least the given minimum.
func (l PermissionLevel) AtLeast(minimum PermissionLevel) bool {
	return l.Rank() >= minimum.Rank()
}

// ParsePermissionLevel validates a ladder value from configuration.
func ParsePermissionLevel(raw string) (PermissionLevel, bool) {
	level := PermissionLevel(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := ladderRank[level]
	return level, ok
}

// DesiredUser is one entry of the authoritative collaborator snapshot.
type DesiredUser struct {
	Login string
	Level PermissionLevel
}

// ExternalUser is a registered Static Web App user as reported by the
// external user store. All fields are optional on the wire.
type ExternalUser struct {
	UserID      string `json:"userId,omitempty"`
	UserDetails string `json:"userDetails,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Roles       string `json:"roles,omitempty"`
	Provider    string `json:"provider,omitempty"`
}

// PlanAdd invites a user missing from the external store.
type PlanAdd struct {
	Login string
	Role  string
}

// PlanUpdate overwrites the roles of an already-registered user.
type PlanUpdate struct {
	Login        string
	Role         string
	CurrentRoles string
}

// PlanRemove clears the roles of a user no longer in the desired set.
type PlanRemove struct {
	Login        string
	CurrentRoles string
}

// SyncPlan is the pure output of the diff. It carries no side effects and
// is consumed once by the orchestrator's execution loop.
type SyncPlan struct {
	ToAdd    []PlanAdd
	ToUpdate []PlanUpdate
	ToRemove []PlanRemove
}

// HasChanges reports whether executing the plan would touch anything.
func (p SyncPlan) HasChanges() bool {
	return len(p.ToAdd) > 0 || len(p.ToUpdate) > 0 || len(p.ToRemove) > 0
}
