// Package schema compiles the declarative boarding form definition into
// per-field rules and validates Application Records against them.
//
// The merchant boarding definition is embedded (boarding.yaml) and exposed via
// Default. Validate walks every field, object and repeated group and returns
// exactly one message per violating positional path ("ownership.1.ownerssn").
// Group non-emptiness and the sales channel percentage sum are the only rules
// that look beyond a single value.
package schema
