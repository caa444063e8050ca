package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/northwind/internal/ir"
)

// TraceSnapshot is the comparable form of a run: the scenario name and the
// trace, without failure messages.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
}

// value renders the snapshot for canonical JSON.
func (s TraceSnapshot) value() ir.Object {
	trace := make(ir.List, len(s.Trace))
	for i, ev := range s.Trace {
		obj := ir.Object{
			"step":    ir.Int(ev.Step),
			"op":      ir.String(ev.Op),
			"outcome": ir.String(ev.Outcome),
		}
		if ev.Ref != "" {
			obj["ref"] = ir.String(ev.Ref)
		}
		if ev.Deleted != 0 {
			obj["deleted"] = ir.Int(ev.Deleted)
		}
		trace[i] = obj
	}
	return ir.Object{
		"scenario_name": ir.String(s.ScenarioName),
		"trace":         trace,
	}
}

// MarshalCanonical encodes the snapshot as canonical JSON.
func (s TraceSnapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.value())
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) *Result {
	t.Helper()

	result, err := Run(context.Background(), scenario, t.TempDir())
	if err != nil {
		t.Fatalf("scenario %s: %v", scenario.Name, err)
	}

	data, err := TraceSnapshot{ScenarioName: scenario.Name, Trace: result.Trace}.MarshalCanonical()
	if err != nil {
		t.Fatalf("scenario %s: marshal trace: %v", scenario.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return result
}
