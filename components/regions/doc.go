// Package regions provides the country and first level subdivision data used
// by the country/region widgets, search helpers, and a small net/http handler
// that returns JSON options.
//
// Without a country parameter the handler lists countries; with one it lists
// that country's regions. Both lists honour the query and limit parameters.
// The backing data is loaded from the embedded data/regions.yaml.
package regions
