package fetch

import (
	"context"
	"fmt"
	"os/exec"
)

// Executor runs git commands
type Executor interface {
	Clone(ctx context.Context, url, dest string) ([]byte, error)
}

// GitExecutor is the default implementation of Executor that runs the git binary
type GitExecutor struct{}

// NewExecutor creates a new git executor
func NewExecutor() Executor {
	return &GitExecutor{}
}

// Clone performs a shallow clone of url into dest.
// It respects the provided context for cancellation.
func (e *GitExecutor) Clone(ctx context.Context, url, dest string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", "--quiet", url, dest)
	cmd.Env = append(cmd.Environ(), "GIT_TERMINAL_PROMPT=0")

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("git clone failed: %w\nOutput: %s", err, string(output))
	}

	return output, nil
}
