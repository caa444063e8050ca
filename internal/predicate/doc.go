// Package predicate is the name-keyed filter language over Northwind
// entities.
//
// Predicates refer to fields by registry key ("northwind.Product.unitPrice")
// so that a filter can be saved as JSON, reloaded in another process and
// resolved again. A Predicate is inert until Bind resolves every field
// through the registry and coerces every literal to the field's kind; the
// resulting Bound predicate is what both the in-memory matcher and the SQL
// compiler consume.
//
// # Null handling
//
// Comparisons against an absent optional value are false, including "ne".
// Only IsNull observes absence. Not negates that result, so Not(Compare) is
// true for records where the field is absent. The SQL compiler guards every
// comparison the same way so that both evaluators agree.
//
// # Sealed interfaces
//
// Predicate and BoundPredicate are sealed with unexported marker methods, so
// type switches over them are exhaustive.
package predicate
