// Package azure drives the Azure CLI's staticwebapp user commands. Every
// call shells out to az; there is no SDK dependency because role invites are
// only exposed through the CLI.
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/yomogy/swa-role-sync/internal/plan"
)

const githubProvider = "GitHub"

// CommandRunner abstracts az invocation so tests can fake the CLI.
type CommandRunner interface {
	Run(ctx context.Context, args ...string) (stdout string, err error)
}

// CommandError wraps a failed az invocation. Captured stderr is appended to
// the message only when the underlying error does not already contain it.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	message := fmt.Sprintf("az %s: %v", strings.Join(e.Args, " "), e.Err)
	stderr := strings.TrimSpace(e.Stderr)
	if stderr != "" && !strings.Contains(message, stderr) {
		message = message + " (" + stderr + ")"
	}
	return message
}

func (e *CommandError) Unwrap() error { return e.Err }

type execRunner struct{}

func (execRunner) Run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "az", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", &CommandError{Args: args, Stderr: stderr.String(), Err: err}
	}
	return stdout.String(), nil
}

// CLI is the Static Web App user store boundary.
type CLI struct {
	runner CommandRunner
}

type Option func(*CLI)

// WithRunner replaces the process-spawning runner, for tests.
func WithRunner(runner CommandRunner) Option {
	return func(c *CLI) {
		if runner != nil {
			c.runner = runner
		}
	}
}

func NewCLI(options ...Option) *CLI {
	cli := &CLI{runner: execRunner{}}
	for _, option := range options {
		option(cli)
	}
	return cli
}

// ListUsers returns the app's registered users, filtered to the GitHub
// provider. Provider comparison ignores case and surrounding whitespace.
func (c *CLI) ListUsers(ctx context.Context, name, resourceGroup string) ([]plan.ExternalUser, error) {
	stdout, err := c.runner.Run(ctx,
		"staticwebapp", "users", "list",
		"--name", name,
		"--resource-group", resourceGroup,
		"--output", "json",
	)
	if err != nil {
		return nil, err
	}

	var users []plan.ExternalUser
	if err := json.Unmarshal([]byte(stdout), &users); err != nil {
		return nil, fmt.Errorf("decode staticwebapp users list output: %w", err)
	}

	filtered := users[:0]
	for _, user := range users {
		if strings.EqualFold(strings.TrimSpace(user.Provider), githubProvider) {
			filtered = append(filtered, user)
		}
	}
	return filtered, nil
}

// ResolveDefaultDomain returns the app's default hostname.
func (c *CLI) ResolveDefaultDomain(ctx context.Context, name, resourceGroup string) (string, error) {
	stdout, err := c.runner.Run(ctx,
		"staticwebapp", "show",
		"--name", name,
		"--resource-group", resourceGroup,
		"--query", "defaultHostname",
		"--output", "tsv",
	)
	if err != nil {
		return "", err
	}

	domain := strings.TrimSpace(stdout)
	if domain == "" {
		return "", fmt.Errorf("failed to resolve default hostname for static web app %s", name)
	}
	return domain, nil
}

// InviteUser creates a role invitation and returns the invite link.
func (c *CLI) InviteUser(ctx context.Context, name, resourceGroup, domain, login, roles string, expirationHours int) (string, error) {
	stdout, err := c.runner.Run(ctx,
		"staticwebapp", "users", "invite",
		"--name", name,
		"--resource-group", resourceGroup,
		"--authentication-provider", githubProvider,
		"--user-details", login,
		"--roles", roles,
		"--domain", domain,
		"--invitation-expiration-in-hours", strconv.Itoa(expirationHours),
		"--output", "json",
	)
	if err != nil {
		return "", err
	}

	var result map[string]any
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		return "", fmt.Errorf("decode staticwebapp users invite output: %w", err)
	}

	// Azure CLI versions disagree on the field name.
	for _, key := range []string{"inviteUrl", "invitationUrl", "url"} {
		if url, ok := result[key].(string); ok && url != "" {
			return url, nil
		}
	}
	return "", fmt.Errorf("failed to retrieve invite URL for %s", login)
}

// SetUserRoles overwrites a user's roles. An empty roles string clears the
// assignment; the CLI has no distinct delete operation.
func (c *CLI) SetUserRoles(ctx context.Context, name, resourceGroup, login, roles string) error {
	_, err := c.runner.Run(ctx,
		"staticwebapp", "users", "update",
		"--name", name,
		"--resource-group", resourceGroup,
		"--authentication-provider", githubProvider,
		"--user-details", login,
		"--roles", roles,
	)
	return err
}
