// Package action implements the GitHub Actions runner contract: inputs are
// read from INPUT_* environment variables, outputs are appended to the file
// named by GITHUB_OUTPUT, and the job summary is appended to the file named
// by GITHUB_STEP_SUMMARY.
package action

import (
	"fmt"
	"os"
	"strings"
)

const outputDelimiter = "__GH_OUTPUT_EOF__"

// GetInput returns the trimmed value of an action input.
func GetInput(name string) string {
	return strings.TrimSpace(os.Getenv(inputEnvName(name)))
}

// GetRequiredInput is GetInput plus a configuration error when blank.
func GetRequiredInput(name string) (string, error) {
	value := GetInput(name)
	if value == "" {
		return "", fmt.Errorf("input %q is required", name)
	}
	return value, nil
}

func inputEnvName(name string) string {
	normalized := strings.ToUpper(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")
	return "INPUT_" + normalized
}

// ContextRepo returns the owner and repo of the workflow's repository.
func ContextRepo() (owner, repo string, err error) {
	full := strings.TrimSpace(os.Getenv("GITHUB_REPOSITORY"))
	if full == "" {
		return "", "", fmt.Errorf("GITHUB_REPOSITORY is not set")
	}
	owner, repo, ok := strings.Cut(full, "/")
	if !ok || owner == "" || repo == "" {
		return "", "", fmt.Errorf("GITHUB_REPOSITORY %q is not owner/repo", full)
	}
	return owner, repo, nil
}

// SetOutput records a step output. Without GITHUB_OUTPUT (for example when
// run outside the Actions runner) the output is dropped.
func SetOutput(name, value string) error {
	path := strings.TrimSpace(os.Getenv("GITHUB_OUTPUT"))
	if path == "" {
		return nil
	}

	var line string
	if strings.Contains(value, "\n") {
		if strings.Contains(value, outputDelimiter) {
			return fmt.Errorf("output %q contains the heredoc delimiter", name)
		}
		line = fmt.Sprintf("%s<<%s\n%s\n%s\n", name, outputDelimiter, value, outputDelimiter)
	} else {
		line = fmt.Sprintf("%s=%s\n", name, value)
	}

	return appendFile(path, line)
}

// WriteSummary appends markdown to the job summary. Without
// GITHUB_STEP_SUMMARY the summary goes to stdout so a local run still
// shows the result.
func WriteSummary(markdown string) error {
	path := strings.TrimSpace(os.Getenv("GITHUB_STEP_SUMMARY"))
	if path == "" {
		fmt.Println(markdown)
		return nil
	}
	return appendFile(path, markdown+"\n")
}

// Workflow command data escaping per the runner's command protocol.
var commandDataEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")

// Error emits an error annotation through the workflow command stream. The
// runner surfaces it on the job page even when log output is collapsed.
func Error(message string) {
	fmt.Printf("::error::%s\n", commandDataEscaper.Replace(message))
}

func appendFile(path, content string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	if _, err := file.WriteString(content); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
