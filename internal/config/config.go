package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yomogy/swa-role-sync/internal/action"
	"github.com/yomogy/swa-role-sync/internal/plan"
)

const (
	defaultRolePrefix      = "github-"
	defaultExpirationHours = 168
	defaultMinimumLevel    = plan.PermissionWrite
	defaultCleanupMode     = "expiration"
	DefaultTitleTemplate   = "SWA access invites for {swaName} ({repo}) - {date}"
	defaultBodyTemplate    = "This discussion contains SWA access invite links for **{swaName}** from **{repo}**.\n\n{summaryMarkdown}"
	defaultPerInviteTitle  = "SWA access invite for {login} on {swaName} ({repo}) - {date}"
	minExpirationHours     = 1
	maxExpirationHours     = 168
	CleanupModeExpiration  = "expiration"
	CleanupModeImmediate   = "immediate"
)

// Sync aggregates the validated inputs of the role sync action.
type Sync struct {
	GitHubToken         string
	Owner               string
	Repo                string
	SwaName             string
	SwaResourceGroup    string
	SwaDomain           string
	MinimumPermission   plan.PermissionLevel
	RoleMapping         plan.RoleMapping
	RolePrefix          string
	ExpirationHours     int
	DiscussionCategory  string
	TitleTemplate       string
	BodyTemplate        string
	DiscussionPerInvite bool
}

// RepoFullName returns owner/repo.
func (s Sync) RepoFullName() string {
	return s.Owner + "/" + s.Repo
}

// Cleanup aggregates the validated inputs of the cleanup sweeper.
type Cleanup struct {
	GitHubToken        string
	Owner              string
	Repo               string
	DiscussionCategory string
	TitleTemplate      string
	Mode               string
	ExpirationHours    int
}

// LoadSync reads and validates all sync action inputs. Any error here fires
// before the first external call.
func LoadSync() (Sync, error) {
	token, err := action.GetRequiredInput("github-token")
	if err != nil {
		return Sync{}, err
	}
	swaName, err := action.GetRequiredInput("swa-name")
	if err != nil {
		return Sync{}, err
	}
	resourceGroup, err := action.GetRequiredInput("swa-resource-group")
	if err != nil {
		return Sync{}, err
	}
	category, err := action.GetRequiredInput("discussion-category-name")
	if err != nil {
		return Sync{}, err
	}

	owner, repo, err := parseTargetRepo(action.GetInput("target-repo"))
	if err != nil {
		return Sync{}, err
	}

	minimum := defaultMinimumLevel
	if raw := action.GetInput("minimum-permission"); raw != "" {
		level, ok := plan.ParsePermissionLevel(raw)
		if !ok {
			return Sync{}, fmt.Errorf("minimum-permission must be one of admin, maintain, write, triage, read (got %q)", raw)
		}
		minimum = level
	}

	hours, err := parseExpirationHours(action.GetInput("invitation-expiration-hours"))
	if err != nil {
		return Sync{}, err
	}

	perInvite, err := parseBool("discussion-per-invite", false)
	if err != nil {
		return Sync{}, err
	}

	cfg := Sync{
		GitHubToken:         token,
		Owner:               owner,
		Repo:                repo,
		SwaName:             swaName,
		SwaResourceGroup:    resourceGroup,
		SwaDomain:           action.GetInput("swa-domain"),
		MinimumPermission:   minimum,
		RoleMapping:         roleMappingFromInputs(),
		RolePrefix:          firstNonEmpty(action.GetInput("role-prefix"), defaultRolePrefix),
		ExpirationHours:     hours,
		DiscussionCategory:  category,
		TitleTemplate:       firstNonEmpty(action.GetInput("discussion-title-template"), defaultTitleTemplate(perInvite)),
		BodyTemplate:        firstNonEmpty(action.GetInput("discussion-body-template"), defaultBodyTemplate),
		DiscussionPerInvite: perInvite,
	}
	return cfg, nil
}

// LoadCleanup reads and validates the cleanup sweeper inputs.
func LoadCleanup() (Cleanup, error) {
	token, err := action.GetRequiredInput("github-token")
	if err != nil {
		return Cleanup{}, err
	}
	category, err := action.GetRequiredInput("discussion-category-name")
	if err != nil {
		return Cleanup{}, err
	}
	owner, repo, err := parseTargetRepo(action.GetInput("target-repo"))
	if err != nil {
		return Cleanup{}, err
	}

	mode := firstNonEmpty(action.GetInput("cleanup-mode"), defaultCleanupMode)
	if mode != CleanupModeExpiration && mode != CleanupModeImmediate {
		return Cleanup{}, fmt.Errorf("cleanup-mode must be %q or %q (got %q)", CleanupModeExpiration, CleanupModeImmediate, mode)
	}

	hours := defaultExpirationHours
	if raw := action.GetInput("expiration-hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return Cleanup{}, fmt.Errorf("expiration-hours must be a positive integer (got %q)", raw)
		}
		hours = parsed
	}

	return Cleanup{
		GitHubToken:        token,
		Owner:              owner,
		Repo:               repo,
		DiscussionCategory: category,
		TitleTemplate:      firstNonEmpty(action.GetInput("discussion-title-template"), DefaultTitleTemplate),
		Mode:               mode,
		ExpirationHours:    hours,
	}, nil
}

func defaultTitleTemplate(perInvite bool) string {
	if perInvite {
		return defaultPerInviteTitle
	}
	return DefaultTitleTemplate
}

func roleMappingFromInputs() plan.RoleMapping {
	mapping := plan.DefaultRoleMapping()
	for _, level := range plan.Ladder {
		if override := action.GetInput("role-for-" + string(level)); override != "" {
			mapping[level] = override
		}
	}
	return mapping
}

func parseTargetRepo(input string) (owner, repo string, err error) {
	if strings.TrimSpace(input) == "" {
		return action.ContextRepo()
	}
	owner, repo, ok := strings.Cut(input, "/")
	if !ok || strings.TrimSpace(owner) == "" || strings.TrimSpace(repo) == "" {
		return "", "", fmt.Errorf("invalid target-repo format: %s", input)
	}
	return strings.TrimSpace(owner), strings.TrimSpace(repo), nil
}

func parseExpirationHours(raw string) (int, error) {
	if raw == "" {
		return defaultExpirationHours, nil
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours < minExpirationHours || hours > maxExpirationHours {
		return 0, fmt.Errorf("invitation-expiration-hours must be between %d and %d hours", minExpirationHours, maxExpirationHours)
	}
	return hours, nil
}

func parseBool(name string, defaultValue bool) (bool, error) {
	raw := strings.ToLower(action.GetInput(name))
	switch raw {
	case "":
		return defaultValue, nil
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s must be a boolean value", name)
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
