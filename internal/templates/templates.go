package templates

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{(\w+)\}`)

// FillTemplate substitutes {key} placeholders from values. Placeholders
// without a value render as an empty string; onMissingKey, when set, is
// invoked once per distinct missing key.
func FillTemplate(template string, values map[string]string, onMissingKey func(key string)) string {
	var reported map[string]bool
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := match[1 : len(match)-1]
		value, ok := values[key]
		if !ok && onMissingKey != nil {
			if reported == nil {
				reported = make(map[string]bool)
			}
			if !reported[key] {
				reported[key] = true
				onMissingKey(key)
			}
		}
		return value
	})
}

// InvitationResult records a completed invite call.
type InvitationResult struct {
	Login     string
	Role      string
	InviteURL string
}

// UpdateResult records a completed role overwrite.
type UpdateResult struct {
	Login string
	Role  string
}

// RemovalResult records a completed role clear.
type RemovalResult struct {
	Login string
}

// SummaryParams feeds the job summary and discussion body renderer.
type SummaryParams struct {
	Repo           string
	SwaName        string
	Added          []InvitationResult
	Updated        []UpdateResult
	Removed        []RemovalResult
	DiscussionURL  string
	Status         string
	FailureMessage string
}

// BuildSummary renders the sync outcome as markdown: fixed-order header
// lines, then one section per non-empty result list.
func BuildSummary(params SummaryParams) string {
	status := params.Status
	if status == "" {
		status = "success"
	}

	lines := []string{
		fmt.Sprintf("- Status: %s", status),
		fmt.Sprintf("- Repository: %s", params.Repo),
		fmt.Sprintf("- Static Web App: %s", params.SwaName),
		fmt.Sprintf("- Added: %d", len(params.Added)),
		fmt.Sprintf("- Updated: %d", len(params.Updated)),
		fmt.Sprintf("- Removed: %d", len(params.Removed)),
	}

	if params.DiscussionURL != "" {
		lines = append(lines, fmt.Sprintf("- Discussion: %s", params.DiscussionURL))
	}
	if status == "failure" && params.FailureMessage != "" {
		lines = append(lines, fmt.Sprintf("- Error: %s", params.FailureMessage))
	}

	var sections []string

	if len(params.Added) > 0 {
		section := []string{"### Invited users"}
		for _, invite := range params.Added {
			section = append(section, fmt.Sprintf("- @%s (%s) - [Invite link](%s)", invite.Login, invite.Role, invite.InviteURL))
		}
		sections = append(sections, strings.Join(section, "\n"))
	}

	if len(params.Updated) > 0 {
		section := []string{"### Updated roles"}
		for _, update := range params.Updated {
			section = append(section, fmt.Sprintf("- @%s → %s", update.Login, update.Role))
		}
		sections = append(sections, strings.Join(section, "\n"))
	}

	if len(params.Removed) > 0 {
		section := []string{"### Removed users"}
		for _, removal := range params.Removed {
			section = append(section, fmt.Sprintf("- @%s", removal.Login))
		}
		sections = append(sections, strings.Join(section, "\n"))
	}

	parts := []string{strings.Join(lines, "\n")}
	if len(sections) > 0 {
		parts = append(parts, strings.Join(sections, "\n\n"))
	}
	return strings.Join(parts, "\n\n")
}
