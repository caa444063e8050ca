// Package schema declares the Northwind entity model: the ordered entity
// descriptors, their typed attributes, and the version stamped into every
// store file.
//
// The model is fixed at compile time. Stores record the version they were
// written with; opening a store whose version is not compatible with
// Current().Version fails with a VersionMismatchError unless a contiguous
// chain of migrations can upgrade it.
//
// Relationships between entities are declared separately in package graph,
// which layers cardinality and delete rules on top of these descriptors.
package schema
