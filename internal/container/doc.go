// Package container is the managed object context over a Northwind store.
//
// A Container holds every entity of one store in memory, keyed by identity,
// together with the relationship index. All mutation goes through its entry
// points: Insert, Update, Relate, Unrelate, ClearRelation and Delete. Inverse
// relationships are maintained automatically and delete rules are enforced
// before anything changes. Save writes the accumulated changes to the store in
// one transaction; Rollback discards them.
//
// Entities handed out by Get, List and Fetch are copies. Editing a copy has
// no effect until it is written back through Update.
package container
