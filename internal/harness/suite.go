package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	Total    int            `json:"total"`
	Passed   int            `json:"passed"`
	Failed   int            `json:"failed"`
	Skipped  int            `json:"skipped"` // Filtered out by name
	Failures []SuiteFailure `json:"failures,omitempty"`
}

// SuiteFailure represents one scenario that did not pass.
type SuiteFailure struct {
	Scenario string `json:"scenario"`
	Path     string `json:"path"`
	Error    string `json:"error"`
}

// Pass reports whether every selected scenario passed.
func (r *SuiteResult) Pass() bool {
	return r.Failed == 0
}

func (r *SuiteResult) fail(name, path, msg string) {
	r.Failed++
	r.Failures = append(r.Failures, SuiteFailure{Scenario: name, Path: path, Error: msg})
}

// ScenarioFiles lists the scenario files under dir in lexical order.
// YAML (.yaml, .yml) and CUE (.cue) files are picked up; subdirectories are
// walked.
func ScenarioFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml", ".cue":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan scenarios in %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// RunSuite loads and runs every scenario under dir whose name contains
// filter (all of them when filter is empty).
//
// For each scenario file:
// 1. Load and validate it
// 2. Skip it if the name does not match
// 3. Run it via RunContext
// 4. Collect failures
//
// The returned error is for an unreadable directory only.
func RunSuite(ctx context.Context, dir, filter string, opts ...RunOption) (*SuiteResult, error) {
	files, err := ScenarioFiles(dir)
	if err != nil {
		return nil, err
	}

	result := &SuiteResult{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		scenario, err := LoadScenario(path)
		if err != nil {
			result.Total++
			result.fail(filepath.Base(path), path, fmt.Sprintf("failed to load scenario: %v", err))
			continue
		}

		if filter != "" && !strings.Contains(scenario.Name, filter) {
			result.Skipped++
			continue
		}
		result.Total++

		runResult, err := RunContext(ctx, scenario, opts...)
		if err != nil {
			result.fail(scenario.Name, path, fmt.Sprintf("scenario execution failed: %v", err))
			continue
		}
		if !runResult.Pass {
			result.fail(scenario.Name, path, strings.Join(runResult.Errors, "\n"))
			continue
		}

		result.Passed++
	}

	return result, nil
}
