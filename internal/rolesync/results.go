package rolesync

import "github.com/yomogy/swa-role-sync/internal/templates"

// Results accumulates what the run actually did. It is mutated as each
// external call completes, so a failure mid-run still reports the work
// already done.
type Results struct {
	RepoFullName   string
	SwaName        string
	Added          []templates.InvitationResult
	Updated        []templates.UpdateResult
	Removed        []templates.RemovalResult
	DiscussionURLs []string
	Summary        string
}

// HasChanges reports whether any add, update, or removal happened.
func (r *Results) HasChanges() bool {
	return len(r.Added) > 0 || len(r.Updated) > 0 || len(r.Removed) > 0
}
