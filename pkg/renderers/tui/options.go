package tui

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-boarding/pkg/esign"
	"github.com/goliatone/go-boarding/pkg/persistence"
	"github.com/goliatone/go-boarding/pkg/widgets"
	"github.com/goliatone/go-boarding/pkg/wizard"
)

// Theme captures optional prefixes the session puts in front of messages.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
}

// Networker resolves the signer's public address.
type Networker interface {
	Lookup(ctx context.Context) string
}

// Option configures a Session.
type Option func(*Session)

// WithPromptDriver overrides the prompt driver used by the session.
func WithPromptDriver(driver PromptDriver) Option {
	return func(s *Session) {
		if driver != nil {
			s.driver = driver
		}
	}
}

// WithSubmitter sends the finished application to the gateway.
func WithSubmitter(sub wizard.Submitter) Option {
	return func(s *Session) {
		s.submitter = sub
	}
}

// WithPersistence saves and restores progress in store under identifier.
func WithPersistence(store persistence.Store, identifier string) Option {
	return func(s *Session) {
		s.store = store
		s.identifier = identifier
	}
}

// WithSigning opens the e-signature step once the application is created.
func WithSigning(svc *esign.Service) Option {
	return func(s *Session) {
		s.signing = svc
	}
}

// WithNetwork resolves the address recorded with the signature.
func WithNetwork(n Networker) Option {
	return func(s *Session) {
		s.network = n
	}
}

// WithDevice overrides the device label recorded with the signature.
func WithDevice(device string) Option {
	return func(s *Session) {
		if device != "" {
			s.device = device
		}
	}
}

// WithOptionSource supplies country and region choices.
func WithOptionSource(src widgets.OptionSource) Option {
	return func(s *Session) {
		s.options = src
	}
}

// WithFileReader replaces os.ReadFile for upload prompts.
func WithFileReader(fn func(string) ([]byte, error)) Option {
	return func(s *Session) {
		if fn != nil {
			s.readFile = fn
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithTheme applies optional message prefixes.
func WithTheme(theme Theme) Option {
	return func(s *Session) {
		s.theme = theme
	}
}
