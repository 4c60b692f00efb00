// Package rolesync sequences a full sync run: resolve configuration, fetch
// the desired and current user sets, compute the diff, execute it against
// the Static Web App, and post the notification discussion. The run never
// propagates an error past its boundary; success and failure are both
// reported through the action outputs and the job summary.
package rolesync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yomogy/swa-role-sync/internal/action"
	"github.com/yomogy/swa-role-sync/internal/azure"
	"github.com/yomogy/swa-role-sync/internal/config"
	"github.com/yomogy/swa-role-sync/internal/github"
	"github.com/yomogy/swa-role-sync/internal/plan"
	"github.com/yomogy/swa-role-sync/internal/templates"
)

// RoleAssignmentLimit is the Static Web App ceiling on users holding custom
// roles. The guard fires before the current state is ever fetched.
const RoleAssignmentLimit = 25

// GitHubAPI is the slice of the GitHub boundary the sync run needs.
type GitHubAPI interface {
	ListEligibleCollaborators(ctx context.Context, owner, repo string, minimum plan.PermissionLevel) ([]plan.DesiredUser, error)
	ResolveCategory(ctx context.Context, owner, repo, categoryName string) (github.CategoryIDs, error)
	CreateDiscussion(ctx context.Context, ids github.CategoryIDs, title, body string) (string, error)
}

// UserStore is the external user-management boundary.
type UserStore interface {
	ListUsers(ctx context.Context, name, resourceGroup string) ([]plan.ExternalUser, error)
	ResolveDefaultDomain(ctx context.Context, name, resourceGroup string) (string, error)
	InviteUser(ctx context.Context, name, resourceGroup, domain, login, roles string, expirationHours int) (string, error)
	SetUserRoles(ctx context.Context, name, resourceGroup, login, roles string) error
}

// Reporter is the action output surface.
type Reporter interface {
	SetOutput(name, value string) error
	WriteSummary(markdown string) error
}

type actionReporter struct{}

func (actionReporter) SetOutput(name, value string) error { return action.SetOutput(name, value) }
func (actionReporter) WriteSummary(markdown string) error { return action.WriteSummary(markdown) }

// Orchestrator runs the sync state machine. External calls are sequential;
// the user-management API is not safe for concurrent mutation.
type Orchestrator struct {
	loadConfig func() (config.Sync, error)
	newGitHub  func(token string) (GitHubAPI, error)
	users      UserStore
	reporter   Reporter
	log        *logrus.Logger
	now        func() time.Time
}

func New(log *logrus.Logger) *Orchestrator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Orchestrator{
		loadConfig: config.LoadSync,
		newGitHub: func(token string) (GitHubAPI, error) {
			return github.NewClient(token)
		},
		users:    azure.NewCLI(),
		reporter: actionReporter{},
		log:      log,
		now:      time.Now,
	}
}

// Run executes the whole sync and returns the process exit code. Partial
// results survive a mid-run failure: whatever was already added, updated, or
// removed is rendered into the failure summary.
func (o *Orchestrator) Run(ctx context.Context) int {
	state := &Results{RepoFullName: "unknown", SwaName: "unknown"}

	err := o.run(ctx, state)
	exitCode := 0
	if err != nil {
		message := errorMessage(err)
		state.Summary = failureSummary(state, message)
		o.log.WithField("error", message).Error("sync failed")
		exitCode = 1
	}

	if state.Summary != "" {
		if summaryErr := o.reporter.WriteSummary("## SWA role sync\n\n" + state.Summary); summaryErr != nil {
			o.log.WithField("error", summaryErr.Error()).Warn("failed to write job summary")
		}
	}
	return exitCode
}

func (o *Orchestrator) run(ctx context.Context, state *Results) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	state.RepoFullName = cfg.RepoFullName()
	state.SwaName = cfg.SwaName

	client, err := o.newGitHub(cfg.GitHubToken)
	if err != nil {
		return err
	}

	ids, err := client.ResolveCategory(ctx, cfg.Owner, cfg.Repo, cfg.DiscussionCategory)
	if err != nil {
		return err
	}

	domain := cfg.SwaDomain
	if domain == "" {
		domain, err = o.users.ResolveDefaultDomain(ctx, cfg.SwaName, cfg.SwaResourceGroup)
		if err != nil {
			return err
		}
	}
	o.log.WithField("domain", domain).Info("using SWA domain")

	desired, err := client.ListEligibleCollaborators(ctx, cfg.Owner, cfg.Repo, cfg.MinimumPermission)
	if err != nil {
		return err
	}
	o.log.WithFields(logrus.Fields{
		"count": len(desired),
		"repo":  state.RepoFullName,
	}).Info("fetched eligible collaborators")

	if err := assertWithinRoleLimit(desired); err != nil {
		return err
	}

	current, err := o.users.ListUsers(ctx, cfg.SwaName, cfg.SwaResourceGroup)
	if err != nil {
		return err
	}

	syncPlan := plan.ComputeSyncPlan(desired, current, cfg.RoleMapping, cfg.RolePrefix)
	o.log.WithFields(logrus.Fields{
		"add":    len(syncPlan.ToAdd),
		"update": len(syncPlan.ToUpdate),
		"remove": len(syncPlan.ToRemove),
	}).Info("computed sync plan")

	if err := o.execute(ctx, cfg, domain, syncPlan, state); err != nil {
		return err
	}

	// The success summary is not committed to the state until notification
	// succeeds; a failure past this point must render as a failure.
	summary := templates.BuildSummary(templates.SummaryParams{
		Repo:    state.RepoFullName,
		SwaName: cfg.SwaName,
		Added:   state.Added,
		Updated: state.Updated,
		Removed: state.Removed,
	})

	if err := o.notify(ctx, cfg, client, ids, state, summary); err != nil {
		return err
	}

	return o.reportOutputs(state)
}

func (o *Orchestrator) execute(ctx context.Context, cfg config.Sync, domain string, syncPlan plan.SyncPlan, state *Results) error {
	for _, add := range syncPlan.ToAdd {
		inviteURL, err := o.users.InviteUser(ctx, cfg.SwaName, cfg.SwaResourceGroup, domain, add.Login, add.Role, cfg.ExpirationHours)
		if err != nil {
			return err
		}
		state.Added = append(state.Added, templates.InvitationResult{Login: add.Login, Role: add.Role, InviteURL: inviteURL})
		o.log.WithFields(logrus.Fields{"login": add.Login, "role": add.Role}).Info("invited user")
	}

	for _, update := range syncPlan.ToUpdate {
		if err := o.users.SetUserRoles(ctx, cfg.SwaName, cfg.SwaResourceGroup, update.Login, update.Role); err != nil {
			return err
		}
		state.Updated = append(state.Updated, templates.UpdateResult{Login: update.Login, Role: update.Role})
		o.log.WithFields(logrus.Fields{"login": update.Login, "role": update.Role}).Info("updated user roles")
	}

	for _, removal := range syncPlan.ToRemove {
		if err := o.users.SetUserRoles(ctx, cfg.SwaName, cfg.SwaResourceGroup, removal.Login, ""); err != nil {
			return err
		}
		state.Removed = append(state.Removed, templates.RemovalResult{Login: removal.Login})
		o.log.WithField("login", removal.Login).Info("cleared user roles")
	}

	return nil
}

func (o *Orchestrator) notify(ctx context.Context, cfg config.Sync, client GitHubAPI, ids github.CategoryIDs, state *Results, summary string) error {
	if cfg.DiscussionPerInvite {
		return o.notifyPerInvite(ctx, cfg, client, ids, state, summary)
	}

	if !state.HasChanges() {
		o.log.Info("no SWA role changes detected; skipping discussion creation")
		state.Summary = summary
		return nil
	}

	values := map[string]string{
		"swaName":         cfg.SwaName,
		"repo":            state.RepoFullName,
		"date":            o.now().UTC().Format("2006-01-02"),
		"summaryMarkdown": summary,
	}

	title, body := o.renderTemplates(cfg, values)

	url, err := client.CreateDiscussion(ctx, ids, title, body)
	if err != nil {
		return fmt.Errorf("failed to create discussion: %s", errorMessage(err))
	}
	o.log.WithField("url", url).Info("created discussion")
	state.DiscussionURLs = append(state.DiscussionURLs, url)

	state.Summary = templates.BuildSummary(templates.SummaryParams{
		Repo:          state.RepoFullName,
		SwaName:       cfg.SwaName,
		Added:         state.Added,
		Updated:       state.Updated,
		Removed:       state.Removed,
		DiscussionURL: url,
	})
	return nil
}

// notifyPerInvite posts one discussion per new invite. With nothing added
// there is nothing actionable to share, so updates and removals alone do
// not produce a discussion.
func (o *Orchestrator) notifyPerInvite(ctx context.Context, cfg config.Sync, client GitHubAPI, ids github.CategoryIDs, state *Results, summary string) error {
	if len(state.Added) == 0 {
		o.log.Info("no new invites; skipping discussion creation")
		state.Summary = summary
		return nil
	}

	date := o.now().UTC().Format("2006-01-02")
	for _, invite := range state.Added {
		values := map[string]string{
			"swaName":         cfg.SwaName,
			"repo":            state.RepoFullName,
			"date":            date,
			"summaryMarkdown": summary,
			"login":           invite.Login,
			"role":            invite.Role,
			"inviteLink":      invite.InviteURL,
			"expirationHours": fmt.Sprintf("%d", cfg.ExpirationHours),
		}
		title, body := o.renderTemplates(cfg, values)

		url, err := client.CreateDiscussion(ctx, ids, title, body)
		if err != nil {
			return fmt.Errorf("failed to create discussion: %s", errorMessage(err))
		}
		o.log.WithFields(logrus.Fields{"login": invite.Login, "url": url}).Info("created invite discussion")
		state.DiscussionURLs = append(state.DiscussionURLs, url)
	}

	state.Summary = templates.BuildSummary(templates.SummaryParams{
		Repo:          state.RepoFullName,
		SwaName:       cfg.SwaName,
		Added:         state.Added,
		Updated:       state.Updated,
		Removed:       state.Removed,
		DiscussionURL: strings.Join(state.DiscussionURLs, ", "),
	})
	return nil
}

func (o *Orchestrator) renderTemplates(cfg config.Sync, values map[string]string) (title, body string) {
	missing := make(map[string]bool)
	onMissing := func(key string) { missing[key] = true }

	title = templates.FillTemplate(cfg.TitleTemplate, values, onMissing)
	body = templates.FillTemplate(cfg.BodyTemplate, values, onMissing)

	if !cfg.DiscussionPerInvite && !strings.Contains(cfg.BodyTemplate, "{summaryMarkdown}") {
		o.log.Warn("discussion-body-template does not include {summaryMarkdown}; sync summary will not be added to the discussion body")
	}
	if len(missing) > 0 {
		keys := make([]string, 0, len(missing))
		for key := range missing {
			keys = append(keys, key)
		}
		o.log.WithField("keys", keys).Warn("unknown template placeholders with no value")
	}
	return title, body
}

func (o *Orchestrator) reportOutputs(state *Results) error {
	if err := o.reporter.SetOutput("added-count", fmt.Sprintf("%d", len(state.Added))); err != nil {
		return err
	}
	if err := o.reporter.SetOutput("updated-count", fmt.Sprintf("%d", len(state.Updated))); err != nil {
		return err
	}
	if err := o.reporter.SetOutput("removed-count", fmt.Sprintf("%d", len(state.Removed))); err != nil {
		return err
	}
	return o.reporter.SetOutput("discussion-url", strings.Join(state.DiscussionURLs, "\n"))
}

// assertWithinRoleLimit fails fast before the current state is fetched,
// because a plan over the ceiling cannot possibly be applied.
func assertWithinRoleLimit(desired []plan.DesiredUser) error {
	unique := make(map[string]bool, len(desired))
	for _, user := range desired {
		login := plan.NormalizeLogin(user.Login)
		if login != "" {
			unique[login] = true
		}
	}
	if len(unique) > RoleAssignmentLimit {
		return fmt.Errorf(
			"SWA custom role assignment limit (%d) exceeded: %d users require custom roles",
			RoleAssignmentLimit, len(unique),
		)
	}
	return nil
}

// errorMessage coerces any failure into a non-empty string so the report is
// never blank.
func errorMessage(err error) string {
	if err == nil {
		return "Unknown error"
	}
	message := strings.TrimSpace(err.Error())
	if message == "" {
		return "Unknown error"
	}
	return message
}

// failureSummary keeps a summary already committed by a completed
// notification stage: an output-reporting failure never discards it. Any
// earlier failure renders a failure-status summary carrying whatever
// progress was made.
func failureSummary(state *Results, message string) string {
	if state.Summary != "" {
		return state.Summary
	}
	return templates.BuildSummary(templates.SummaryParams{
		Repo:           state.RepoFullName,
		SwaName:        state.SwaName,
		Added:          state.Added,
		Updated:        state.Updated,
		Removed:        state.Removed,
		Status:         "failure",
		FailureMessage: message,
	})
}
