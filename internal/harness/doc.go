// Package harness runs scripted scenarios against the Northwind object graph.
//
// A scenario is a YAML file naming a sequence of container operations
// (insert, update, relate, delete, save, reload and so on) with the outcome
// each one must have, followed by assertions over the final state. Each run
// gets a fresh store in its own directory and deterministic identities, so
// the trace of a run is reproducible and can be compared against a golden
// file.
//
// Records are named by references of the form "Type:name". The name is
// resolved against the sample data set when the scenario loads it, then
// against the natural key of the type. "$alias" names an entity inserted
// earlier in the same run with "as: alias".
//
// Example:
//
//	name: deny_shipper
//	description: a shipper with orders cannot be deleted
//	fixture: northwind
//	steps:
//	  - op: delete
//	    ref: Shipper:Speedy Express
//	    expect:
//	      error: delete_denied
//	assertions:
//	  - type: count
//	    entity: Shipper
//	    count: 3
package harness
