package cleanup

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/yomogy/swa-role-sync/internal/config"
	"github.com/yomogy/swa-role-sync/internal/github"
)

type fakeDiscussionAPI struct {
	discussions []github.Discussion
	categoryErr error
	listErr     error
	deleteErr   error
	deleted     []string
}

func (f *fakeDiscussionAPI) ResolveCategory(context.Context, string, string, string) (github.CategoryIDs, error) {
	if f.categoryErr != nil {
		return github.CategoryIDs{}, f.categoryErr
	}
	return github.CategoryIDs{RepositoryID: "R_1", CategoryID: "C_1"}, nil
}

func (f *fakeDiscussionAPI) ListDiscussions(context.Context, string, string, string) ([]github.Discussion, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.discussions, nil
}

func (f *fakeDiscussionAPI) DeleteDiscussion(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeReporter struct {
	outputs     map[string]string
	annotations []string
}

func (f *fakeReporter) SetOutput(name, value string) error {
	if f.outputs == nil {
		f.outputs = map[string]string{}
	}
	f.outputs[name] = value
	return nil
}

func (f *fakeReporter) Error(message string) {
	f.annotations = append(f.annotations, message)
}

func testCleanupConfig() config.Cleanup {
	return config.Cleanup{
		GitHubToken:        "token",
		Owner:              "octo",
		Repo:               "site",
		DiscussionCategory: "Announcements",
		TitleTemplate:      config.DefaultTitleTemplate,
		Mode:               config.CleanupModeExpiration,
		ExpirationHours:    168,
	}
}

func newTestSweeper(cfg config.Cleanup, api *fakeDiscussionAPI, reporter *fakeReporter) *Sweeper {
	log := logrus.New()
	log.SetOutput(io.Discard)

	s := New(log)
	s.loadConfig = func() (config.Cleanup, error) { return cfg, nil }
	s.newGitHub = func(string) (DiscussionAPI, error) { return api, nil }
	s.reporter = reporter
	s.now = func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestRunDeletesExpiredMatchingDiscussions(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	api := &fakeDiscussionAPI{discussions: []github.Discussion{
		{
			ID:        "D_old_match",
			Title:     "SWA access invites for my-app (octo/site) - 2026-08-01",
			CreatedAt: now.Add(-200 * time.Hour),
		},
		{
			ID:        "D_fresh_match",
			Title:     "SWA access invites for my-app (octo/site) - 2026-08-29",
			CreatedAt: now.Add(-1 * time.Hour),
		},
		{
			ID:        "D_old_other",
			Title:     "Release notes",
			CreatedAt: now.Add(-200 * time.Hour),
		},
	}}
	reporter := &fakeReporter{}

	code := newTestSweeper(testCleanupConfig(), api, reporter).Run(context.Background())

	require.Equal(t, 0, code)
	require.Equal(t, []string{"D_old_match"}, api.deleted)
	require.Equal(t, "1", reporter.outputs["deleted-count"])
}

func TestRunImmediateModeIgnoresAge(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	cfg := testCleanupConfig()
	cfg.Mode = config.CleanupModeImmediate

	api := &fakeDiscussionAPI{discussions: []github.Discussion{
		{
			ID:        "D_fresh_match",
			Title:     "SWA access invites for my-app (octo/site) - 2026-08-29",
			CreatedAt: now.Add(-1 * time.Minute),
		},
		{
			ID:        "D_other",
			Title:     "Release notes",
			CreatedAt: now.Add(-1 * time.Minute),
		},
	}}
	reporter := &fakeReporter{}

	code := newTestSweeper(cfg, api, reporter).Run(context.Background())

	require.Equal(t, 0, code)
	require.Equal(t, []string{"D_fresh_match"}, api.deleted)
	require.Equal(t, "1", reporter.outputs["deleted-count"])
}

func TestRunMissingCategoryFails(t *testing.T) {
	api := &fakeDiscussionAPI{categoryErr: errors.New(`discussion category "Announcements" not found`)}
	reporter := &fakeReporter{}

	code := newTestSweeper(testCleanupConfig(), api, reporter).Run(context.Background())

	require.Equal(t, 1, code)
	require.Empty(t, reporter.outputs)
	require.Equal(t, []string{`cleanup failed: discussion category "Announcements" not found`}, reporter.annotations)
}

func TestRunDeleteErrorAborts(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	api := &fakeDiscussionAPI{
		deleteErr: errors.New("permission denied"),
		discussions: []github.Discussion{{
			ID:        "D_old_match",
			Title:     "SWA access invites for my-app (octo/site) - 2026-08-01",
			CreatedAt: now.Add(-200 * time.Hour),
		}},
	}
	reporter := &fakeReporter{}

	code := newTestSweeper(testCleanupConfig(), api, reporter).Run(context.Background())

	require.Equal(t, 1, code)
	require.Empty(t, reporter.outputs)
	require.Equal(t, []string{"cleanup failed: permission denied"}, reporter.annotations)
}

func TestTitlePattern(t *testing.T) {
	pattern := TitlePattern("SWA access invites for {swaName} ({repo}) - {date}")

	require.True(t, pattern.MatchString("SWA access invites for my-app (octo/site) - 2026-08-29"))
	require.True(t, pattern.MatchString("SWA access invites for anything (x/y) - whenever"))
	require.False(t, pattern.MatchString("Release notes"))
	require.False(t, pattern.MatchString("prefix SWA access invites for my-app (octo/site) - 2026-08-29"))

	// Regex metacharacters in the literal part stay literal.
	literal := TitlePattern("Deploy [prod] {date}")
	require.True(t, literal.MatchString("Deploy [prod] today"))
	require.False(t, literal.MatchString("Deploy Xprod] today"))
}
