// Package httpapi serves the boarding wizard over HTTP: the field schema,
// validation, saved progress, application submission, the e-signature step
// and the customer demo pages.
package httpapi

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/goliatone/go-boarding/components/regions"
	"github.com/goliatone/go-boarding/pkg/config"
	"github.com/goliatone/go-boarding/pkg/esign"
	"github.com/goliatone/go-boarding/pkg/gateway"
	"github.com/goliatone/go-boarding/pkg/persistence"
	"github.com/goliatone/go-boarding/pkg/render/template"
	"github.com/goliatone/go-boarding/pkg/render/template/gotemplate"
	"github.com/goliatone/go-boarding/pkg/schema"
)

//go:embed templates/*.html
var templatesFS embed.FS

const maxBody = 16 << 20

// Boarding is the part of the gateway client the boarding routes call.
type Boarding interface {
	CreateApp(ctx context.Context, application map[string]any, idempotencyKey string) (json.RawMessage, error)
	AttachFiles(ctx context.Context, appID string, attachments []gateway.Attachment) error
	AttachPDF(ctx context.Context, appID, base64PDF string) error
	SubmitApp(ctx context.Context, appID string) (json.RawMessage, error)
}

// Customers is the part of the gateway client the demo routes call.
type Customers interface {
	ListCustomers(ctx context.Context) ([]gateway.Customer, error)
	AddCustomer(ctx context.Context, customer gateway.Customer) (json.RawMessage, error)
	DeleteCustomer(ctx context.Context, customerID int64) error
	ConvertToken(ctx context.Context, req gateway.TokenRequest) (string, error)
	GetPaid(ctx context.Context, p gateway.Payment) (string, error)
	QueryTransactions(ctx context.Context, transactionID string) (json.RawMessage, error)
}

// Server wires the HTTP routes. Build it with New and serve Handler().
type Server struct {
	cfg       config.Config
	schema    *schema.Schema
	boarding  Boarding
	customers Customers
	store     persistence.Store
	sessions  *persistence.Sessions
	signing   *esign.Service
	regions   *regions.Component
	views     template.TemplateRenderer
	validator *requestValidator
	logger    zerolog.Logger
	newKey    func() string
}

type Option func(*Server)

func WithBoarding(b Boarding) Option {
	return func(s *Server) {
		s.boarding = b
	}
}

func WithCustomers(c Customers) Option {
	return func(s *Server) {
		s.customers = c
	}
}

// WithGateway uses one client for the boarding and the demo routes.
func WithGateway(c *gateway.Client) Option {
	return func(s *Server) {
		if c != nil {
			s.boarding = c
			s.customers = c
		}
	}
}

func WithStore(store persistence.Store) Option {
	return func(s *Server) {
		if store != nil {
			s.store = store
		}
	}
}

// WithSessions enables the login gate and session identities.
func WithSessions(sessions *persistence.Sessions) Option {
	return func(s *Server) {
		s.sessions = sessions
	}
}

func WithSigning(svc *esign.Service) Option {
	return func(s *Server) {
		if svc != nil {
			s.signing = svc
		}
	}
}

func WithRegions(c *regions.Component) Option {
	return func(s *Server) {
		if c != nil {
			s.regions = c
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithIdempotencyKeys(fn func() string) Option {
	return func(s *Server) {
		if fn != nil {
			s.newKey = fn
		}
	}
}

// New builds a server. Collaborators left unset default to an in-memory
// store, the embedded country list and an agreement themed from cfg.
func New(ctx context.Context, cfg config.Config, sch *schema.Schema, opts ...Option) (*Server, error) {
	if sch == nil {
		return nil, fmt.Errorf("httpapi: schema is required")
	}
	s := &Server{
		cfg:    cfg,
		schema: sch,
		logger: zerolog.Nop(),
		newKey: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.store == nil {
		s.store = persistence.NewMemoryStore()
	}
	if s.sessions == nil && cfg.SessionMode() {
		s.sessions = persistence.NewSessions(cfg.Identity.SessionSecret, cfg.Identity.SessionCookie)
	}
	if s.regions == nil {
		component, err := regions.New()
		if err != nil {
			return nil, fmt.Errorf("httpapi: regions: %w", err)
		}
		s.regions = component
	}
	if s.signing == nil {
		branding, err := esign.Branding(nil, cfg.Theme.Name, cfg.Theme.Variant)
		if err != nil {
			return nil, err
		}
		agreement, err := esign.NewAgreement(esign.WithBranding(branding))
		if err != nil {
			return nil, err
		}
		var attacher esign.Attacher
		if s.boarding != nil {
			attacher = s.boarding
		}
		s.signing = esign.NewService(agreement, attacher, esign.WithLogger(s.logger))
	}

	views, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, err
	}
	s.views, err = gotemplate.New(gotemplate.WithFS(views))
	if err != nil {
		return nil, fmt.Errorf("httpapi: views: %w", err)
	}
	s.validator, err = newRequestValidator(ctx)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Handler returns the routed handler wrapped in access logging, the login
// gate and request validation.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/schema", s.handleSchema)
	mux.HandleFunc("POST /api/validate", s.handleValidate)
	mux.HandleFunc("GET /api/steps/{index}", s.handleStep)
	mux.Handle("/api/formData", s.formDataHandler())
	mux.HandleFunc("POST /api/createApp", s.handleCreateApp)
	mux.HandleFunc("POST /api/attachFiles", s.handleAttachFiles)
	mux.HandleFunc("POST /api/attachPDF", s.handleAttachPDF)
	mux.HandleFunc("POST /api/submitApp", s.handleSubmitApp)
	mux.HandleFunc("POST /api/esign/document", s.handleDocument)
	mux.HandleFunc("POST /api/esign/sign", s.handleSign)
	mux.HandleFunc("GET /api/openapi.json", s.handleOpenAPI)
	_, _ = s.regions.RegisterRoutes(mux, "/")

	mux.HandleFunc("GET /demo/customers", s.handleListCustomers)
	mux.HandleFunc("POST /demo/customers", s.handleAddCustomer)
	mux.HandleFunc("DELETE /demo/customers/{id}", s.handleDeleteCustomer)
	mux.HandleFunc("POST /demo/transaction", s.handleTransaction)

	var h http.Handler = mux
	h = s.validator.middleware(h)
	h = s.loginGate(h)
	return s.accessLog(h)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	h := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})(next)
	h = hlog.UserAgentHandler("user_agent")(h)
	h = hlog.RemoteAddrHandler("ip")(h)
	return hlog.NewHandler(s.logger)(h)
}

// publicPaths stay reachable without a session.
var publicPaths = map[string]bool{
	"/api/openapi.json": true,
	"/api/regions":      true,
	"/api/schema":       true,
}

// loginGate redirects requests without a valid session to the login page.
// It is a no-op in fingerprint mode.
func (s *Server) loginGate(next http.Handler) http.Handler {
	if s.sessions == nil {
		return next
	}
	login := s.cfg.Identity.LoginPath
	if login == "" {
		login = "/login"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		protected := path == "/" || (strings.HasPrefix(path, "/api/") && !publicPaths[path])
		if protected {
			if _, err := s.sessions.Identify(r); err != nil {
				hlog.FromRequest(r).Debug().Str("path", path).Msg("redirecting to login")
				http.Redirect(w, r, login, http.StatusFound)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) identifier() persistence.Identifier {
	if s.sessions != nil {
		return s.sessions
	}
	return persistence.Fingerprint{}
}

func (s *Server) formDataHandler() http.Handler {
	opts := []persistence.HandlerOption{persistence.WithHandlerLogger(s.logger)}
	if s.sessions != nil {
		opts = append(opts, persistence.WithRequestIdentifier(s.sessions))
	}
	return persistence.FormDataHandler(s.store, opts...)
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	writeRaw(w, http.StatusOK, openAPIDocument)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(dest); err != nil {
		return StatusError{Code: http.StatusBadRequest, Message: "Invalid request body", Err: err}
	}
	return nil
}
