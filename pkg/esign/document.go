package esign

import (
	"embed"
	"fmt"
	"io/fs"
	"math"
	"strings"
	"sync"

	theme "github.com/goliatone/go-theme"
	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	"github.com/goliatone/go-boarding/pkg/render/template"
	"github.com/goliatone/go-boarding/pkg/render/template/gotemplate"
)

//go:embed templates/*.html
var templatesFS embed.FS

// DefaultPages are the agreement body templates in page order.
var DefaultPages = []string{"agreement-1", "agreement-2", "agreement-3"}

// TemplatesFS returns the embedded agreement templates.
func TemplatesFS() fs.FS {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// Fee is one line of the pricing schedule.
type Fee struct {
	Service     string          `json:"service"`
	Description string          `json:"description,omitempty"`
	Rate        decimal.Decimal `json:"rate"`
	Fixed       decimal.Decimal `json:"fixed"`
}

// DefaultPricing is shown on the pricing step and the second agreement page.
func DefaultPricing() []Fee {
	return []Fee{
		{Service: "Card", Description: "per approved sale", Rate: decimal.RequireFromString("2.90"), Fixed: decimal.RequireFromString("0.30")},
		{Service: "ACH", Description: "per debit", Rate: decimal.Zero, Fixed: decimal.RequireFromString("0.25")},
		{Service: "Chargeback", Description: "per dispute", Rate: decimal.Zero, Fixed: decimal.RequireFromString("15.00")},
	}
}

// Page is one rendered agreement page.
type Page struct {
	Number int    `json:"number"`
	Total  int    `json:"total"`
	HTML   string `json:"html"`
}

var (
	namePolicyOnce sync.Once
	namePolicy     *bluemonday.Policy
)

// signerPolicy strips every tag from signer supplied text.
func signerPolicy() *bluemonday.Policy {
	namePolicyOnce.Do(func() {
		namePolicy = bluemonday.StrictPolicy()
	})
	return namePolicy
}

// Agreement renders the agreement pages for a record and signature.
type Agreement struct {
	engine   template.TemplateRenderer
	pages    []string
	pricing  []Fee
	branding *theme.RendererConfig
}

type AgreementOption func(*Agreement)

// WithEngine replaces the embedded template engine.
func WithEngine(engine template.TemplateRenderer) AgreementOption {
	return func(a *Agreement) {
		if engine != nil {
			a.engine = engine
		}
	}
}

func WithPages(names ...string) AgreementOption {
	return func(a *Agreement) {
		if len(names) > 0 {
			a.pages = append([]string(nil), names...)
		}
	}
}

func WithPricing(fees []Fee) AgreementOption {
	return func(a *Agreement) {
		if fees != nil {
			a.pricing = fees
		}
	}
}

func WithBranding(cfg *theme.RendererConfig) AgreementOption {
	return func(a *Agreement) {
		if cfg != nil {
			a.branding = cfg
		}
	}
}

func NewAgreement(opts ...AgreementOption) (*Agreement, error) {
	a := &Agreement{pages: DefaultPages, pricing: DefaultPricing()}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	if a.engine == nil {
		engine, err := gotemplate.New(gotemplate.WithFS(TemplatesFS()))
		if err != nil {
			return nil, fmt.Errorf("esign: template engine: %w", err)
		}
		a.engine = engine
	}
	if a.branding == nil {
		branding, err := Branding(nil, "", "")
		if err != nil {
			return nil, err
		}
		a.branding = branding
	}
	return a, nil
}

func (a *Agreement) Pricing() []Fee { return a.pricing }

func (a *Agreement) Branding() *theme.RendererConfig { return a.branding }

// Pages renders every page. The signature block is appended to the last
// page and each page carries a "Page i of n" footer.
func (a *Agreement) Pages(record map[string]any, sig Signature) ([]Page, error) {
	total := len(a.pages)
	data := map[string]any{
		"record":    displayValue(record),
		"signature": signatureContext(sig),
		"pricing":   pricingContext(a.pricing),
		"theme":     a.branding.Tokens,
		"total":     total,
	}

	out := make([]Page, 0, total)
	for i, name := range a.pages {
		data["page"] = i + 1
		body, err := a.engine.RenderTemplate(name, data)
		if err != nil {
			return nil, fmt.Errorf("esign: render %s: %w", name, err)
		}
		data["body"] = body
		html, err := a.engine.RenderTemplate("page", data)
		if err != nil {
			return nil, fmt.Errorf("esign: render page %d: %w", i+1, err)
		}
		out = append(out, Page{Number: i + 1, Total: total, HTML: strings.TrimSpace(html)})
	}
	return out, nil
}

func signatureContext(sig Signature) map[string]any {
	signedOn := ""
	if !sig.SignedAt.IsZero() {
		signedOn = sig.SignedAt.Format("01/02/2006 15:04 MST")
	}
	return map[string]any{
		"name":          strings.TrimSpace(signerPolicy().Sanitize(sig.Name)),
		"acceptedTerms": sig.AcceptedTerms,
		"device":        sig.Device,
		"ip":            sig.IP,
		"signedOn":      signedOn,
	}
}

func pricingContext(fees []Fee) []any {
	out := make([]any, 0, len(fees))
	for _, fee := range fees {
		out = append(out, map[string]any{
			"service":     fee.Service,
			"description": fee.Description,
			"rate":        fee.Rate.StringFixed(2),
			"fixed":       fee.Fixed.StringFixed(2),
		})
	}
	return out
}

// displayValue turns whole floats into integers so templates print "100"
// rather than a float rendering.
func displayValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = displayValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = displayValue(item)
		}
		return out
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
			return int64(v)
		}
		return v
	default:
		return v
	}
}
