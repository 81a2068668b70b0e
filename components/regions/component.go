package regions

import (
	"net/http"

	"github.com/goliatone/go-boarding/pkg/model"
)

// Component wraps the region handler, its configuration and routing helpers.
// It also serves as the option source of the country/region widgets.
type Component struct {
	opts      Options
	countries []Country
}

// New constructs a component with default options plus any overrides. The
// embedded data is loaded eagerly so a broken data file fails at start up.
func New(fns ...OptionFn) (*Component, error) {
	opts := NewOptions(fns...)
	countries, err := countriesFor(opts)
	if err != nil {
		return nil, err
	}
	return &Component{opts: opts, countries: countries}, nil
}

// Options returns a copy of the component configuration.
func (c *Component) Options() Options {
	if c == nil {
		return DefaultOptions()
	}
	return NewOptions(func(o *Options) { *o = c.opts })
}

// Handler returns a net/http handler for country and region queries.
func (c *Component) Handler() http.Handler {
	if c == nil {
		return Handler()
	}
	opts := c.opts
	opts.Countries = c.countries
	return HandlerWithOptions(opts)
}

// RegisterRoutes registers the component handler under basePath on mux.
func (c *Component) RegisterRoutes(mux Mux, basePath string) (string, error) {
	opts := c.Options()
	if c != nil {
		opts.Countries = c.countries
	}
	return RegisterRoutesWithOptions(mux, basePath, opts)
}

// Countries lists the selectable countries, priority countries first.
func (c *Component) Countries() []model.Option {
	if c == nil {
		return nil
	}
	return CountryOptions(c.countries, c.opts)
}

// Regions lists the regions of a country code.
func (c *Component) Regions(country string) []model.Option {
	if c == nil {
		return nil
	}
	return RegionOptions(c.countries, country)
}
