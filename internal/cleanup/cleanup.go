// Package cleanup deletes stale notification discussions. A discussion goes
// when its title matches the configured title template and it is past the
// expiry window (or unconditionally in immediate mode).
package cleanup

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yomogy/swa-role-sync/internal/action"
	"github.com/yomogy/swa-role-sync/internal/config"
	"github.com/yomogy/swa-role-sync/internal/github"
)

// DiscussionAPI is the slice of the GitHub boundary the sweeper needs.
type DiscussionAPI interface {
	ResolveCategory(ctx context.Context, owner, repo, categoryName string) (github.CategoryIDs, error)
	ListDiscussions(ctx context.Context, owner, repo, categoryID string) ([]github.Discussion, error)
	DeleteDiscussion(ctx context.Context, id string) error
}

// Reporter is the action output surface.
type Reporter interface {
	SetOutput(name, value string) error
	Error(message string)
}

type actionReporter struct{}

func (actionReporter) SetOutput(name, value string) error { return action.SetOutput(name, value) }
func (actionReporter) Error(message string)               { action.Error(message) }

// Sweeper lists a category's discussions and deletes the expired matches.
type Sweeper struct {
	loadConfig func() (config.Cleanup, error)
	newGitHub  func(token string) (DiscussionAPI, error)
	reporter   Reporter
	log        *logrus.Logger
	now        func() time.Time
}

func New(log *logrus.Logger) *Sweeper {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Sweeper{
		loadConfig: config.LoadCleanup,
		newGitHub: func(token string) (DiscussionAPI, error) {
			return github.NewClient(token)
		},
		reporter: actionReporter{},
		log:      log,
		now:      time.Now,
	}
}

// Run executes the sweep and returns the process exit code. A failure is
// also annotated on the workflow run, not just logged.
func (s *Sweeper) Run(ctx context.Context) int {
	if err := s.run(ctx); err != nil {
		s.log.WithField("error", err.Error()).Error("cleanup failed")
		s.reporter.Error("cleanup failed: " + err.Error())
		return 1
	}
	return 0
}

func (s *Sweeper) run(ctx context.Context) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}

	client, err := s.newGitHub(cfg.GitHubToken)
	if err != nil {
		return err
	}

	cutoff := s.now().Add(-time.Duration(cfg.ExpirationHours) * time.Hour)
	s.log.WithFields(logrus.Fields{
		"repo":     cfg.Owner + "/" + cfg.Repo,
		"category": cfg.DiscussionCategory,
		"mode":     cfg.Mode,
		"cutoff":   cutoff.UTC().Format(time.RFC3339),
	}).Info("sweeping discussions")

	ids, err := client.ResolveCategory(ctx, cfg.Owner, cfg.Repo, cfg.DiscussionCategory)
	if err != nil {
		return err
	}

	discussions, err := client.ListDiscussions(ctx, cfg.Owner, cfg.Repo, ids.CategoryID)
	if err != nil {
		return err
	}
	s.log.WithField("count", len(discussions)).Info("found discussions in category")

	titlePattern := TitlePattern(cfg.TitleTemplate)
	deleted := 0
	for _, discussion := range discussions {
		expired := cfg.Mode == config.CleanupModeImmediate || discussion.CreatedAt.Before(cutoff)
		matched := titlePattern.MatchString(discussion.Title)
		if !expired || !matched {
			s.log.WithFields(logrus.Fields{
				"title":   discussion.Title,
				"expired": expired,
				"matched": matched,
			}).Debug("skipping discussion")
			continue
		}

		if err := client.DeleteDiscussion(ctx, discussion.ID); err != nil {
			return err
		}
		deleted++
		s.log.WithFields(logrus.Fields{
			"title": discussion.Title,
			"url":   discussion.URL,
		}).Info("deleted expired discussion")
	}

	s.log.WithField("deleted", deleted).Info("cleanup finished")
	return s.reporter.SetOutput("deleted-count", fmt.Sprintf("%d", deleted))
}

var templatePlaceholder = regexp.MustCompile(`\\\{(\w+)\\\}`)

// TitlePattern turns a title template into an anchored matcher: literal text
// is escaped, every {placeholder} becomes a lazy wildcard. The match is
// approximate on purpose; placeholder segments can contain anything.
func TitlePattern(template string) *regexp.Regexp {
	escaped := regexp.QuoteMeta(template)
	pattern := templatePlaceholder.ReplaceAllString(escaped, `.*?`)
	return regexp.MustCompile("^" + pattern + "$")
}
