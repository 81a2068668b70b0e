package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-boarding/pkg/esign"
)

// sign runs the signature modal as a prompt sequence. A nil PDF with a nil
// error means the applicant chose not to sign now.
func (s *Session) sign(ctx context.Context, appID string, values map[string]any) ([]byte, error) {
	texts := esign.DefaultTexts()
	ip := esign.IPFallback
	if s.network != nil {
		ip = s.network.Lookup(ctx)
	}

	flow := esign.NewFlow()
	flow.Open(s.device, ip)
	defer flow.Close()

	s.info(ctx, texts.PricingTitle)
	for _, fee := range s.signing.Agreement().Pricing() {
		s.info(ctx, fmt.Sprintf("  %s: %s%% + $%s %s", fee.Service, fee.Rate.StringFixed(2), fee.Fixed.StringFixed(2), fee.Description))
	}
	proceed, err := s.driver.Confirm(ctx, ConfirmConfig{Message: texts.ContinueButton + "?", Default: true})
	if err != nil {
		return nil, err
	}
	if !proceed {
		s.info(ctx, fmt.Sprintf("Application %s was created without a signature.", appID))
		return nil, nil
	}
	if err := flow.Continue(); err != nil {
		return nil, err
	}

	proofs := esign.ProofAttachments(s.schema, values)
	for {
		view := flow.View(texts)
		name, err := s.driver.Input(ctx, InputConfig{Message: texts.DialogTitle, Default: view.Signature, Help: texts.Placeholder})
		if err != nil {
			return nil, err
		}
		if err := flow.Sign(name); err != nil {
			return nil, err
		}
		if !view.TermsOpened {
			read, err := s.driver.Confirm(ctx, ConfirmConfig{Message: texts.TermsLink + "?"})
			if err != nil {
				return nil, err
			}
			if read {
				s.showTerms(ctx, values, esign.Signature{Name: name, Device: s.device, IP: ip})
				if err := flow.OpenTerms(); err != nil {
					return nil, err
				}
			}
		}
		consent, err := s.driver.Confirm(ctx, ConfirmConfig{Message: texts.ConsentLabel, Default: view.Consent})
		if err != nil {
			return nil, err
		}
		if err := flow.SetConsent(consent); err != nil {
			return nil, err
		}

		err = flow.Confirm(ctx, s.signing.Finalizer(appID, values, proofs))
		view = flow.View(texts)
		switch {
		case errors.Is(err, esign.ErrPreconditions):
			s.warn(ctx, "Still missing: "+strings.Join(view.Missing, ", "))
		case err != nil:
			s.warn(ctx, view.Title+": "+view.Message)
			retry, cerr := s.driver.Confirm(ctx, ConfirmConfig{Message: view.Action + "?", Default: true})
			if cerr != nil {
				return nil, cerr
			}
			if !retry {
				return nil, err
			}
			flow.Open(s.device, ip)
			if err := flow.Continue(); err != nil {
				return nil, err
			}
		default:
			s.info(ctx, view.Title+" "+view.Message)
			return flow.PDF(), nil
		}
	}
}

// showTerms prints the agreement as plain text.
func (s *Session) showTerms(ctx context.Context, values map[string]any, sig esign.Signature) {
	pages, err := s.signing.Agreement().Pages(values, sig)
	if err != nil {
		s.warn(ctx, err.Error())
		return
	}
	policy := bluemonday.StrictPolicy()
	for _, page := range pages {
		text := strings.Join(strings.Fields(policy.Sanitize(page.HTML)), " ")
		s.info(ctx, fmt.Sprintf("[%d/%d] %s", page.Number, page.Total, text))
	}
}
