package ux

import (
	"fmt"
	"os"
	"path/filepath"
)

// JobFileNames are tried, in order, when no job file is given.
var JobFileNames = []string{"jobbook.yaml", "jobbook.yml", ".jobbook/job.yaml"}

// DiscoverJobFile looks for a default job file in dir and its parents, up to
// the enclosing git root or the filesystem root.
func DiscoverJobFile(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for {
		for _, name := range JobFileNames {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}

		// Stop at git root
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", NewErrorWithSuggestion(
		fmt.Errorf("no job file found (looked for %v)", JobFileNames),
		"Pass the job file explicitly: jobbook run path/to/job.yaml",
	)
}
