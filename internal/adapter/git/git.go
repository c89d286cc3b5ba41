// Package git reads earlier revisions of snapshot files through the git
// command line.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/opendata-summary/internal/domain"
)

// DefaultTimeout bounds a single git invocation.
const DefaultTimeout = 10 * time.Second

// Client implements domain.VersionControl by running `git show <rev>:<path>`.
type Client struct {
	dir     string
	rev     string
	timeout time.Duration
	binary  string
	logger  *slog.Logger
}

// NewClient creates a client that runs git in dir and reads files as of rev.
func NewClient(dir, rev string, timeout time.Duration, logger *slog.Logger) *Client {
	if dir == "" {
		dir = "."
	}
	if rev == "" {
		rev = "HEAD^"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{dir: dir, rev: rev, timeout: timeout, binary: "git", logger: logger}
}

// ReadPreviousRevision returns the contents of path at the configured revision.
// A missing revision or path, a missing git binary, a directory outside any
// repository, and a timed-out command all wrap domain.ErrHistoryUnavailable.
// Cancellation of ctx itself is returned unchanged.
func (c *Client) ReadPreviousRevision(ctx context.Context, path string) ([]byte, error) {
	spec, err := c.objectSpec(path)
	if err != nil {
		return nil, fmt.Errorf("git show %s: %w: %w", path, domain.ErrHistoryUnavailable, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, c.binary, "show", spec)
	cmd.Dir = c.dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	c.logger.Debug("executing git command", "args", cmd.Args[1:], "dir", c.dir, "timeout", c.timeout)

	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var exitErr *exec.ExitError
	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return nil, fmt.Errorf("git show %s: timed out after %s: %w", spec, c.timeout, domain.ErrHistoryUnavailable)
	case errors.As(err, &exitErr):
		msg := strings.TrimSpace(stderr.String())
		return nil, fmt.Errorf("git show %s: %s: %w", spec, firstLine(msg), domain.ErrHistoryUnavailable)
	default:
		return nil, fmt.Errorf("git show %s: %w: %w", spec, domain.ErrHistoryUnavailable, err)
	}
}

// objectSpec builds "<rev>:<path>" with path relative to the working
// directory. Git resolves "./"-prefixed paths against the directory it runs
// in rather than the repository root.
func (c *Client) objectSpec(path string) (string, error) {
	if filepath.IsAbs(path) {
		base, err := filepath.Abs(c.dir)
		if err != nil {
			return "", err
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return "", err
		}
		path = rel
	}
	path = filepath.ToSlash(filepath.Clean(path))
	if !strings.HasPrefix(path, "../") {
		path = "./" + path
	}
	return c.rev + ":" + path, nil
}

func firstLine(s string) string {
	if s == "" {
		return "exit status non-zero"
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
