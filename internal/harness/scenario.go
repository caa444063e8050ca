package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted run against a fresh container.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Fixture is the data set loaded and saved before the steps run.
	// "northwind" loads the sample data; empty starts from an empty store.
	Fixture string `yaml:"fixture,omitempty"`

	Steps      []Step      `yaml:"steps"`
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one container operation.
type Step struct {
	Op string `yaml:"op"`

	// Ref names the entity the step acts on. Insert uses Entity instead.
	Ref    string `yaml:"ref,omitempty"`
	Entity string `yaml:"entity,omitempty"`
	// As names an inserted entity for later steps ("$as").
	As string `yaml:"as,omitempty"`

	// Fields are attribute values for insert and update, by attribute name.
	Fields map[string]any `yaml:"fields,omitempty"`

	// Edge and Target are used by relate, unrelate and clear.
	Edge   string `yaml:"edge,omitempty"`
	Target string `yaml:"target,omitempty"`

	// Expect is the required outcome. Nil means the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the outcome of a step.
type Expect struct {
	// Error is the expected error class, for example "delete_denied".
	Error string `yaml:"error,omitempty"`
	// Deleted is the number of entities a delete must remove.
	Deleted *int `yaml:"deleted,omitempty"`
}

// Assertion checks the final state.
type Assertion struct {
	// Type is one of count, related, absent, field or pending.
	Type string `yaml:"type"`

	Entity string `yaml:"entity,omitempty"`
	Ref    string `yaml:"ref,omitempty"`
	Edge   string `yaml:"edge,omitempty"`
	Field  string `yaml:"field,omitempty"`

	// Where is a predicate tree in its JSON form (used by count).
	Where map[string]any `yaml:"where,omitempty"`

	// Count is the expected number of matches (count, related).
	Count *int `yaml:"count,omitempty"`
	// Targets lists references that must be related, in any order (related).
	Targets []string `yaml:"targets,omitempty"`
	// Value is the expected field value (field). Null checks for absence.
	Value any `yaml:"value,omitempty"`
	// Pending is the expected HasChanges result (pending).
	Pending *bool `yaml:"pending,omitempty"`
}

// Step operations.
const (
	OpInsert   = "insert"
	OpUpdate   = "update"
	OpRelate   = "relate"
	OpUnrelate = "unrelate"
	OpClear    = "clear"
	OpDelete   = "delete"
	OpSave     = "save"
	OpRollback = "rollback"
	OpReload   = "reload"
)

// Assertion types.
const (
	AssertCount   = "count"
	AssertRelated = "related"
	AssertAbsent  = "absent"
	AssertField   = "field"
	AssertPending = "pending"
)

// FixtureNorthwind loads the sample data set.
const FixtureNorthwind = "northwind"

var validOps = []string{OpInsert, OpUpdate, OpRelate, OpUnrelate, OpClear, OpDelete, OpSave, OpRollback, OpReload}

var validAssertions = []string{AssertCount, AssertRelated, AssertAbsent, AssertField, AssertPending}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Fixture != "" && s.Fixture != FixtureNorthwind {
		return fmt.Errorf("unknown fixture %q", s.Fixture)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertion %d: %w", i+1, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	if !slices.Contains(validOps, step.Op) {
		return fmt.Errorf("unknown op %q", step.Op)
	}
	switch step.Op {
	case OpInsert:
		if step.Entity == "" {
			return fmt.Errorf("insert requires entity")
		}
	case OpUpdate, OpDelete:
		if step.Ref == "" {
			return fmt.Errorf("%s requires ref", step.Op)
		}
	case OpRelate, OpUnrelate:
		if step.Ref == "" || step.Edge == "" || step.Target == "" {
			return fmt.Errorf("%s requires ref, edge and target", step.Op)
		}
	case OpClear:
		if step.Ref == "" || step.Edge == "" {
			return fmt.Errorf("clear requires ref and edge")
		}
	}
	if step.Expect != nil && step.Expect.Deleted != nil && step.Op != OpDelete {
		return fmt.Errorf("expect.deleted only applies to delete")
	}
	return nil
}

func validateAssertion(a Assertion) error {
	if !slices.Contains(validAssertions, a.Type) {
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	switch a.Type {
	case AssertCount:
		if a.Entity == "" || a.Count == nil {
			return fmt.Errorf("count requires entity and count")
		}
	case AssertRelated:
		if a.Ref == "" || a.Edge == "" {
			return fmt.Errorf("related requires ref and edge")
		}
		if a.Count == nil && a.Targets == nil {
			return fmt.Errorf("related requires count or targets")
		}
	case AssertAbsent:
		if a.Ref == "" {
			return fmt.Errorf("absent requires ref")
		}
	case AssertField:
		if a.Ref == "" || a.Field == "" {
			return fmt.Errorf("field requires ref and field")
		}
	case AssertPending:
		if a.Pending == nil {
			return fmt.Errorf("pending requires pending")
		}
	}
	return nil
}
