// Package paths maps work items to their canonical output locations
// and decides whether a given output still needs to be produced.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Resolver derives every job and analysis location from one datasets
// folder. Path construction is a pure function of its inputs, so
// re-running with identical inputs regenerates identical scripts.
type Resolver struct {
	Folder string
	Force  bool
}

// JobFolder returns (and creates) the folder holding the shell and
// job-submission scripts of one analysis stage.
func (r Resolver) JobFolder(analysis string) (string, error) {
	dir := filepath.Join(r.Folder, "jobs", analysis)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "job folder")
	}
	return dir, nil
}

// AnalysisFolder returns (and creates) the folder holding one stage's
// outputs.
func (r Resolver) AnalysisFolder(analysis string) (string, error) {
	dir := filepath.Join(r.Folder, "qiime", analysis)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "analysis folder")
	}
	return dir, nil
}

// Output derives the output file path for one work item. The case
// label may be empty for per-metric outputs that are not subset.
func (r Resolver) Output(analysis, dataset, stem, caseLabel, ext string) (string, error) {
	dir, err := r.AnalysisFolder(filepath.Join(analysis, dataset))
	if err != nil {
		return "", err
	}
	name := stem
	if caseLabel != "" {
		name = fmt.Sprintf("%s_%s", stem, caseLabel)
	}
	return filepath.Join(dir, name+ext), nil
}

// NeedsRun reports whether the output must be (re)generated: always
// when forced, otherwise only when the path does not exist. Existence
// is the sole memoization in the system; there is no staleness check
// against upstream inputs.
func (r Resolver) NeedsRun(path string) bool {
	return NeedsRun(path, r.Force)
}

// NeedsRun is the force/exists decision on its own.
func NeedsRun(path string, force bool) bool {
	if force {
		return true
	}
	_, err := os.Stat(path)
	return os.IsNotExist(err)
}

// StripExt removes the last extension from path.
func StripExt(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}
