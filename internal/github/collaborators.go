package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/yomogy/swa-role-sync/internal/plan"
)

// ListEligibleCollaborators pages through the repository's collaborators and
// returns those holding at least the minimum permission, classified to their
// highest ladder level.
func (c *Client) ListEligibleCollaborators(ctx context.Context, owner, repo string, minimum plan.PermissionLevel) ([]plan.DesiredUser, error) {
	endpoint := fmt.Sprintf(
		"/repos/%s/%s/collaborators?affiliation=all&per_page=100",
		url.PathEscape(owner),
		url.PathEscape(repo),
	)

	var desired []plan.DesiredUser
	for endpoint != "" {
		body, nextPage, err := c.get(ctx, endpoint)
		if err != nil {
			return nil, fmt.Errorf("list collaborators for %s/%s: %w", owner, repo, err)
		}

		var page []collaborator
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode collaborators response: %w", err)
		}

		for _, member := range page {
			level, ok := classifyPermissions(member)
			if !ok || !level.AtLeast(minimum) {
				continue
			}
			desired = append(desired, plan.DesiredUser{Login: member.Login, Level: level})
		}

		endpoint = nextPage
	}

	return desired, nil
}

// classifyPermissions picks the highest ladder level the collaborator holds.
func classifyPermissions(member collaborator) (plan.PermissionLevel, bool) {
	switch {
	case member.Permissions.Admin:
		return plan.PermissionAdmin, true
	case member.Permissions.Maintain:
		return plan.PermissionMaintain, true
	case member.Permissions.Push:
		return plan.PermissionWrite, true
	case member.Permissions.Triage:
		return plan.PermissionTriage, true
	case member.Permissions.Pull:
		return plan.PermissionRead, true
	default:
		return "", false
	}
}
