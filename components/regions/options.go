package regions

import "net/http"

type GuardFunc func(r *http.Request) error

type Options struct {
	RoutePath    string
	CountryParam string
	SearchParam  string
	LimitParam   string
	DefaultLimit int
	MaxLimit     int
	Guard        GuardFunc

	// Priority country codes are listed first, in the given order.
	Priority []string
	// Whitelist restricts the country list when non-empty.
	Whitelist []string
	// Blacklist removes countries from the list.
	Blacklist []string

	Countries []Country
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		RoutePath:    "/api/regions",
		CountryParam: "country",
		SearchParam:  "q",
		LimitParam:   "limit",
		DefaultLimit: 100,
		MaxLimit:     300,
		Priority:     []string{"US", "CA"},
	}
}

func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 100
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = 300
	}
	if opts.RoutePath == "" {
		opts.RoutePath = "/api/regions"
	}
	if opts.CountryParam == "" {
		opts.CountryParam = "country"
	}
	if opts.SearchParam == "" {
		opts.SearchParam = "q"
	}
	if opts.LimitParam == "" {
		opts.LimitParam = "limit"
	}
	opts.Priority = copyStrings(opts.Priority)
	opts.Whitelist = copyStrings(opts.Whitelist)
	opts.Blacklist = copyStrings(opts.Blacklist)
	if opts.Countries != nil {
		opts.Countries = append([]Country{}, opts.Countries...)
	}
	return opts
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}

func WithRoutePath(path string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.RoutePath = path
	}
}

func WithLimits(defaultLimit, maxLimit int) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.DefaultLimit = defaultLimit
		o.MaxLimit = maxLimit
	}
}

func WithGuard(guard GuardFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Guard = guard
	}
}

func WithPriority(codes ...string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Priority = append([]string{}, codes...)
	}
}

func WithWhitelist(codes ...string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Whitelist = append([]string{}, codes...)
	}
}

func WithBlacklist(codes ...string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Blacklist = append([]string{}, codes...)
	}
}

func WithCountries(countries []Country) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		if countries == nil {
			o.Countries = nil
			return
		}
		o.Countries = append([]Country{}, countries...)
	}
}

func clampLimit(limit int, opts Options) int {
	if limit < 0 {
		return 0
	}
	if limit == 0 {
		limit = opts.DefaultLimit
	}
	if opts.MaxLimit > 0 && limit > opts.MaxLimit {
		return opts.MaxLimit
	}
	return limit
}
