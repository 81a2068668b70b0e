// Package esign implements the e-signature step that follows a successful
// application submission: the modal flow state machine, the agreement
// document, its PDF rendering and the signer's device and network details.
package esign

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// State is the visible step of the signature modal.
type State string

const (
	StatePricing State = "pricing"
	StateForm    State = "form"
	StateSuccess State = "success"
	StateError   State = "error"
)

var (
	// ErrPreconditions is returned by Confirm while the signature, the terms
	// acknowledgement or the consent box is missing.
	ErrPreconditions = errors.New("esign: signature preconditions not met")
	// ErrTransition reports an action that is not valid in the current state.
	ErrTransition = errors.New("esign: invalid transition")
	// ErrSigning wraps document rendering and attachment failures.
	ErrSigning = errors.New("esign: signing failed")
)

// Signature is the ephemeral signature record. It is rendered into the
// agreement and never persisted.
type Signature struct {
	Name          string    `json:"name"`
	AcceptedTerms bool      `json:"acceptedTerms"`
	Device        string    `json:"device"`
	IP            string    `json:"ip"`
	SignedAt      time.Time `json:"signedAt"`
}

// Finalizer turns a complete signature into the signed PDF, typically by
// rendering the agreement and attaching it to the application.
type Finalizer func(ctx context.Context, sig Signature) ([]byte, error)

// Flow is the signature modal state machine. The zero value is closed.
type Flow struct {
	mu sync.Mutex

	open        bool
	state       State
	signature   string
	termsOpened bool
	consent     bool
	device      string
	ip          string
	pdf         []byte
	err         error
	now         func() time.Time
}

func NewFlow() *Flow {
	return &Flow{state: StatePricing, now: time.Now}
}

// Open shows the modal on the pricing step for a signer on device/ip.
func (f *Flow) Open(device, ip string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetLocked()
	f.open = true
	f.device = device
	f.ip = ip
}

// SetNetwork records the signer address once an asynchronous lookup ends.
func (f *Flow) SetNetwork(ip string) {
	f.mu.Lock()
	f.ip = ip
	f.mu.Unlock()
}

func (f *Flow) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stateLocked()
}

func (f *Flow) stateLocked() State {
	if f.state == "" {
		return StatePricing
	}
	return f.state
}

func (f *Flow) expect(s State) error {
	if !f.open {
		return fmt.Errorf("%w: flow is closed", ErrTransition)
	}
	if current := f.stateLocked(); current != s {
		return fmt.Errorf("%w: expected %s, in %s", ErrTransition, s, current)
	}
	return nil
}

// Continue moves from pricing to the signature form.
func (f *Flow) Continue() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.expect(StatePricing); err != nil {
		return err
	}
	f.state = StateForm
	return nil
}

// Sign records the typed signature.
func (f *Flow) Sign(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.expect(StateForm); err != nil {
		return err
	}
	f.signature = name
	return nil
}

// OpenTerms acknowledges that the terms link was opened.
func (f *Flow) OpenTerms() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.expect(StateForm); err != nil {
		return err
	}
	f.termsOpened = true
	return nil
}

func (f *Flow) SetConsent(checked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.expect(StateForm); err != nil {
		return err
	}
	f.consent = checked
	return nil
}

// Missing lists the unmet signing preconditions.
func (f *Flow) Missing() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.missingLocked()
}

func (f *Flow) missingLocked() []string {
	var missing []string
	if strings.TrimSpace(f.signature) == "" {
		missing = append(missing, "signature")
	}
	if !f.termsOpened {
		missing = append(missing, "terms")
	}
	if !f.consent {
		missing = append(missing, "consent")
	}
	return missing
}

// Ready reports whether Confirm would attempt to sign.
func (f *Flow) Ready() bool {
	return len(f.Missing()) == 0
}

// Confirm runs finalize once every precondition holds. The flow ends in
// success when finalize returns the PDF and in error otherwise. finalize runs
// without the lock held.
func (f *Flow) Confirm(ctx context.Context, finalize Finalizer) error {
	f.mu.Lock()
	if err := f.expect(StateForm); err != nil {
		f.mu.Unlock()
		return err
	}
	if missing := f.missingLocked(); len(missing) > 0 {
		f.mu.Unlock()
		return fmt.Errorf("%w: missing %s", ErrPreconditions, strings.Join(missing, ", "))
	}
	sig := Signature{
		Name:          strings.TrimSpace(f.signature),
		AcceptedTerms: f.consent,
		Device:        f.device,
		IP:            f.ip,
		SignedAt:      f.now(),
	}
	f.mu.Unlock()

	var (
		pdf []byte
		err error
	)
	if finalize == nil {
		err = errors.New("no finalizer")
	} else {
		pdf, err = finalize(ctx, sig)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open || f.state != StateForm {
		return fmt.Errorf("%w: flow closed while signing", ErrTransition)
	}
	if err != nil {
		f.state = StateError
		f.err = err
		return fmt.Errorf("%w: %w", ErrSigning, err)
	}
	f.state = StateSuccess
	f.pdf = pdf
	return nil
}

// PDF returns the signed document after a successful Confirm.
func (f *Flow) PDF() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.pdf...)
}

// Err returns the failure that moved the flow to the error state.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Close hides the modal and clears every ephemeral field. The next Open
// starts again on the pricing step.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetLocked()
}

func (f *Flow) resetLocked() {
	f.open = false
	f.state = StatePricing
	f.signature = ""
	f.termsOpened = false
	f.consent = false
	f.pdf = nil
	f.err = nil
	if f.now == nil {
		f.now = time.Now
	}
}

// View is a snapshot of the flow for presentation layers.
type View struct {
	Open        bool     `json:"open"`
	State       State    `json:"state"`
	Title       string   `json:"title"`
	Message     string   `json:"message,omitempty"`
	Action      string   `json:"action,omitempty"`
	Signature   string   `json:"signature"`
	TermsOpened bool     `json:"termsOpened"`
	Consent     bool     `json:"consent"`
	Missing     []string `json:"missing,omitempty"`
	Device      string   `json:"device,omitempty"`
	IP          string   `json:"ip,omitempty"`
}

// View describes the current step using texts.
func (f *Flow) View(texts Texts) View {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := View{
		Open:        f.open,
		State:       f.stateLocked(),
		Signature:   f.signature,
		TermsOpened: f.termsOpened,
		Consent:     f.consent,
		Device:      f.device,
		IP:          f.ip,
	}
	switch v.State {
	case StatePricing:
		v.Title, v.Action = texts.PricingTitle, texts.ContinueButton
	case StateForm:
		v.Title, v.Action = texts.DialogTitle, texts.ConfirmButton
		v.Missing = f.missingLocked()
	case StateSuccess:
		v.Title, v.Message, v.Action = texts.SuccessTitle, texts.SuccessMessage, texts.CloseButton
	case StateError:
		v.Title, v.Message, v.Action = texts.ErrorTitle, texts.ErrorMessage, texts.RetryButton
	}
	return v
}
