// Package template defines the template rendering contract shared by the
// agreement document and the demo customer pages. The pongo2 implementation
// lives in the gotemplate subpackage.
package template
