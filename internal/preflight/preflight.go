package preflight

import (
	"errors"
	"fmt"
	"os/exec"

	"go.uber.org/multierr"
)

// ErrToolMissing is wrapped once per tool that is not on PATH.
var ErrToolMissing = errors.New("required tool not found")

// LookPath resolves a binary name; exec.LookPath in production.
type LookPath func(file string) (string, error)

// Check verifies every tool is resolvable and reports all missing ones at once.
func Check(lookPath LookPath, tools ...string) error {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	var err error
	seen := make(map[string]struct{}, len(tools))
	for _, tool := range tools {
		if _, ok := seen[tool]; ok || tool == "" {
			continue
		}
		seen[tool] = struct{}{}
		if _, lookErr := lookPath(tool); lookErr != nil {
			err = multierr.Append(err, fmt.Errorf("%w: %s", ErrToolMissing, tool))
		}
	}
	return err
}

// Missing lists the tool errors aggregated by Check.
func Missing(err error) []error {
	return multierr.Errors(err)
}
