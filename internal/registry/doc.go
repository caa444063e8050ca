// Package registry maps stable string names to typed field accessors so that
// predicates can be written, stored and exchanged by name.
//
// A key has the form "northwind.<Entity>.<field>", for example
// "northwind.Product.unitPrice". The field part is the declared attribute
// name from package schema.
//
// Accessors come from a static table of typed getter and setter functions
// per entity. The first lookup for an entity type pairs that table with the
// schema's attribute list and caches the result for the life of the
// registry; a table that disagrees with the schema fails that build instead
// of silently dropping fields. Resolving a name that does not exist returns
// an UnknownFieldError and never panics.
package registry
