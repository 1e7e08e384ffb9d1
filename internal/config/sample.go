package config

import (
	"errors"
	"fmt"
	"os"
)

// ErrSampleExists is returned by WriteSample when the target already exists.
var ErrSampleExists = errors.New("config file already exists")

const sampleConfig = `# eussiror: turn unhandled failures into GitHub issues.
#
# Every setting can be overridden with an EUSSIROR_<KEY> environment variable,
# e.g. EUSSIROR_TOKEN or EUSSIROR_ENVIRONMENTS=production,staging.

# GitHub token with "issues: write" permission.
token: "${GITHUB_TOKEN}"

# Repository receiving the issues, as owner/name.
repository: ""

# Environments (EUSSIROR_ENV or APP_ENV) where reporting is active.
environments:
  - production

# Applied to every new issue. Leave empty to send none.
labels: []
assignees: []

# Failure kinds never reported. Subtypes of a listed kind are ignored too.
ignored_kinds: []
#  - context.deadlineExceededError

# Report from a background goroutine. Set to false in tests.
async: true

# Per-request timeout for GitHub API calls.
timeout: 10s
`

// WriteSample writes a commented sample configuration to path.
// It refuses to overwrite an existing file.
func WriteSample(path string) error {
	if path == "" {
		path = DefaultPath
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w", path, ErrSampleExists)
		}
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(sampleConfig); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
