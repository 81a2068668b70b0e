// Package model defines the typed boarding form model shared by the schema,
// widget, wizard and terminal packages. The concrete types live in
// internal/model and are re-exported here as aliases so callers never import
// the internal package. Validation rules use canonical kinds (required,
// digits, length, min/max, pattern, email, domain, date, enum, nonEmpty) with
// string parameters, keeping YAML definitions and JSON snapshots stable.
// Pages split top-level fields into wizard steps; refinements hold the few
// record-level rules that span several paths.
package model
