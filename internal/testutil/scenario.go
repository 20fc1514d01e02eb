// Package testutil provides shared test helpers for Monkey Go tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/monkey/pkg/evaluator"
)

// ScenariosDir is the relative path from the module root to the scenarios.
const ScenariosDir = "testdata/scenarios"

// Scenario is one golden test case loaded from a YAML file.
type Scenario struct {
	Name string `yaml:"name"`
	// Cmd is one of run (default), check, fmt or repl.
	Cmd    string            `yaml:"cmd,omitempty"`
	Source string            `yaml:"source,omitempty"`
	Lines  []string          `yaml:"lines,omitempty"`
	Budget *evaluator.Budget `yaml:"budget,omitempty"`
	// Validate runs the static checks before a run scenario executes.
	Validate bool           `yaml:"validate,omitempty"`
	Tags     []string       `yaml:"tags,omitempty"`
	Expect   ExpectedResult `yaml:"expect"`

	// Path is the file the scenario was read from.
	Path string `yaml:"-"`
}

// ExpectedResult describes the expected outcome of a scenario. Nil
// pointer fields are not checked.
type ExpectedResult struct {
	ExitCode    int            `yaml:"exit_code"`
	Value       *string        `yaml:"value,omitempty"`
	JSON        string         `yaml:"json,omitempty"`
	Stdout      *string        `yaml:"stdout,omitempty"`
	Diagnostics []ExpectedDiag `yaml:"diagnostics,omitempty"`
	// Outputs holds one entry per repl line: the value or "CODE: message".
	Outputs []string `yaml:"outputs,omitempty"`
}

// ExpectedDiag matches one diagnostic. Zero Line/Col are not checked.
type ExpectedDiag struct {
	Code    string `yaml:"code"`
	Message string `yaml:"message"`
	Line    int    `yaml:"line,omitempty"`
	Col     int    `yaml:"col,omitempty"`
}

// LoadScenario reads a scenario file. Unknown keys are rejected.
func LoadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var s Scenario
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	if s.Cmd == "" {
		s.Cmd = "run"
	}
	if s.Validate && s.Cmd != "run" {
		return nil, fmt.Errorf("scenario %s: validate is only valid for cmd run", path)
	}
	switch s.Cmd {
	case "run", "check", "fmt":
		if len(s.Lines) > 0 {
			return nil, fmt.Errorf("scenario %s: lines are only valid for cmd repl", path)
		}
	case "repl":
		if s.Source != "" {
			return nil, fmt.Errorf("scenario %s: cmd repl takes lines, not source", path)
		}
	default:
		return nil, fmt.Errorf("scenario %s: unknown cmd %q", path, s.Cmd)
	}
	if s.Name == "" {
		s.Name = trimExt(filepath.Base(path))
	}
	s.Path = path
	return &s, nil
}

// ListScenarios returns every *.yml file under root, sorted.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".yml" {
			files = append(files, filepath.Join(root, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
