// Package graph owns the relationships between Northwind entities.
//
// Every edge is declared once with its cardinality, its inverse and the rule
// applied when the source entity is deleted:
//
//   - Cascade: the targets are deleted too, transitively
//   - Nullify: the link is cleared and the targets survive
//   - Deny: the delete is refused while any target exists
//
// Links is the identifier-keyed index of live relationships. Linking one side
// of an edge always links the inverse side as well, and replacing a to-one
// target detaches the previous pair on both ends. Link maintenance never
// recurses into further inverse bookkeeping.
//
// PlanDelete computes the full effect of a delete before anything changes.
// A deny violation anywhere in the cascade produces a DeleteDeniedError and
// an untouched index.
package graph
