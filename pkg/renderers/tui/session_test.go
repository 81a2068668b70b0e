package tui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	json "github.com/json-iterator/go"

	"github.com/goliatone/go-boarding/pkg/esign"
	"github.com/goliatone/go-boarding/pkg/gateway"
	"github.com/goliatone/go-boarding/pkg/persistence"
	"github.com/goliatone/go-boarding/pkg/schema"
	"github.com/goliatone/go-boarding/pkg/testsupport"
)

// stubDriver answers prompts from per-message scripts and falls back to the
// prompt default, which keeps the current value.
type stubDriver struct {
	inputs   map[string][]string
	confirms map[string][]bool
	selects  map[string][]int
	infos    []string
	prompts  int
	limit    int
}

func newStub() *stubDriver {
	return &stubDriver{
		inputs:   map[string][]string{},
		confirms: map[string][]bool{},
		selects:  map[string][]int{},
		limit:    500,
	}
}

func (s *stubDriver) count() error {
	s.prompts++
	if s.prompts > s.limit {
		return errors.New("stub: too many prompts")
	}
	return nil
}

func (s *stubDriver) Input(_ context.Context, cfg InputConfig) (string, error) {
	if err := s.count(); err != nil {
		return "", err
	}
	if queue := s.inputs[cfg.Message]; len(queue) > 0 {
		s.inputs[cfg.Message] = queue[1:]
		return queue[0], nil
	}
	return cfg.Default, nil
}

func (s *stubDriver) TextArea(_ context.Context, cfg TextAreaConfig) (string, error) {
	if err := s.count(); err != nil {
		return "", err
	}
	return cfg.Default, nil
}

func (s *stubDriver) Confirm(_ context.Context, cfg ConfirmConfig) (bool, error) {
	if err := s.count(); err != nil {
		return false, err
	}
	if queue := s.confirms[cfg.Message]; len(queue) > 0 {
		s.confirms[cfg.Message] = queue[1:]
		return queue[0], nil
	}
	return cfg.Default, nil
}

func (s *stubDriver) Select(_ context.Context, cfg SelectConfig) (int, error) {
	if err := s.count(); err != nil {
		return 0, err
	}
	if queue := s.selects[cfg.Message]; len(queue) > 0 {
		s.selects[cfg.Message] = queue[1:]
		return queue[0], nil
	}
	if cfg.Message == "What next?" {
		return 0, errors.New("stub: menu not scripted")
	}
	return cfg.DefaultIndex, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infos = append(s.infos, msg)
	return nil
}

func (s *stubDriver) saw(msg string) bool {
	for _, info := range s.infos {
		if strings.Contains(info, msg) {
			return true
		}
	}
	return false
}

type fakeSubmitter struct {
	calls   int
	payload map[string]any
	err     error
}

func (f *fakeSubmitter) CreateApp(_ context.Context, application map[string]any, _ string) (json.RawMessage, error) {
	f.calls++
	f.payload = application
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(`4512`), nil
}

type fakeAttacher struct {
	mu          sync.Mutex
	attachments []gateway.Attachment
}

func (f *fakeAttacher) AttachFiles(_ context.Context, _ string, attachments []gateway.Attachment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attachments = append(f.attachments, attachments...)
	return nil
}

// The first menu entry is Next on every step but the last, where it is Submit.
const (
	menuNext   = 0
	menuSubmit = 0
)

func savedStore(t *testing.T, values map[string]any) persistence.Store {
	t.Helper()
	data, err := json.Marshal(values)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	store := persistence.NewMemoryStore()
	if err := store.Save(context.Background(), "dev-1", data); err != nil {
		t.Fatalf("save: %v", err)
	}
	return store
}

func newSession(t *testing.T, driver PromptDriver, opts ...Option) *Session {
	t.Helper()
	sch, err := schema.Default()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	s, err := New(sch, append([]Option{WithPromptDriver(driver), WithDevice("Linux")}, opts...)...)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}

func walkToSubmit(driver *stubDriver) {
	driver.selects["What next?"] = []int{menuNext, menuNext, menuNext, menuNext, menuSubmit}
}

func TestRunSubmitsRestoredApplication(t *testing.T) {
	driver := newStub()
	walkToSubmit(driver)
	store := savedStore(t, testsupport.ValidRecord())
	sub := &fakeSubmitter{}

	s := newSession(t, driver, WithPersistence(store, "dev-1"), WithSubmitter(sub))
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v\ninfos: %v", err, driver.infos)
	}
	if res.AppID != "4512" || sub.calls != 1 {
		t.Fatalf("result %+v after %d calls", res, sub.calls)
	}
	if sub.payload["legalname"] != "Acme Holdings LLC" {
		t.Fatalf("payload legalname = %v", sub.payload["legalname"])
	}
	if _, err := store.Load(context.Background(), "dev-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("saved progress not discarded: %v", err)
	}
	for _, want := range []string{"Restored your saved progress.", "Step 5 of 5", "Success!"} {
		if !driver.saw(want) {
			t.Fatalf("missing %q in %v", want, driver.infos)
		}
	}
}

func TestInlineValidationAsksAgain(t *testing.T) {
	driver := newStub()
	walkToSubmit(driver)
	driver.inputs["EIN *"] = []string{"12", "987654321"}
	sub := &fakeSubmitter{}

	s := newSession(t, driver, WithPersistence(savedStore(t, testsupport.ValidRecord()), "dev-1"), WithSubmitter(sub))
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !driver.saw("EIN must be 9 digits") {
		t.Fatalf("no inline error in %v", driver.infos)
	}
	if sub.payload["ein"] != "987654321" {
		t.Fatalf("ein = %v", sub.payload["ein"])
	}
}

func TestSubmitFailureKeepsTheUserOnTheLastStep(t *testing.T) {
	driver := newStub()
	// Next x4, Submit (fails), then Quit from the menu of the last step:
	// Submit, Previous, Edit, Save, Clear, Quit.
	driver.selects["What next?"] = []int{0, 0, 0, 0, menuSubmit, 5}
	store := savedStore(t, testsupport.ValidRecord())
	sub := &fakeSubmitter{err: &gateway.StatusError{Op: "createApp", Code: 500}}

	s := newSession(t, driver, WithPersistence(store, "dev-1"), WithSubmitter(sub))
	_, err := s.Run(context.Background())
	if !errors.Is(err, ErrQuit) {
		t.Fatalf("err = %v, want ErrQuit", err)
	}
	if !driver.saw("An unexpected error occurred.") {
		t.Fatalf("no failure notice in %v", driver.infos)
	}
	if _, err := store.Load(context.Background(), "dev-1"); err != nil {
		t.Fatalf("progress lost after failure: %v", err)
	}
}

func TestQuitSavesProgress(t *testing.T) {
	driver := newStub()
	// First step menu with a store: Next, Edit, Save, Clear, Quit.
	driver.selects["What next?"] = []int{4}
	driver.inputs["Legal Name *"] = []string{"Renamed Holdings LLC"}
	store := savedStore(t, testsupport.ValidRecord())

	s := newSession(t, driver, WithPersistence(store, "dev-1"))
	if _, err := s.Run(context.Background()); !errors.Is(err, ErrQuit) {
		t.Fatalf("err = %v, want ErrQuit", err)
	}
	data, err := store.Load(context.Background(), "dev-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !bytes.Contains(data, []byte("Renamed Holdings LLC")) {
		t.Fatalf("snapshot not updated: %s", data)
	}
	if !driver.saw("Saved!") {
		t.Fatalf("no save notice in %v", driver.infos)
	}
}

func TestUploadReadsAndChecksFiles(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)
	files := map[string][]byte{
		"check.png": png,
		"notes.txt": []byte("plain text"),
	}
	driver := newStub()
	walkToSubmit(driver)
	driver.inputs["Deposit Account Verification (file path)"] = []string{"missing.png", "notes.txt", "check.png"}
	sub := &fakeSubmitter{}

	s := newSession(t, driver,
		WithPersistence(savedStore(t, testsupport.ValidRecord()), "dev-1"),
		WithSubmitter(sub),
		WithFileReader(func(name string) ([]byte, error) {
			data, ok := files[name]
			if !ok {
				return nil, fmt.Errorf("open %s: no such file", name)
			}
			return data, nil
		}),
	)
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !driver.saw("Cannot read missing.png") || !driver.saw("file type not accepted") {
		t.Fatalf("upload errors not reported: %v", driver.infos)
	}
	if _, ok := sub.payload["depositProof"]; ok {
		t.Fatalf("upload leaked into the gateway payload")
	}
}

func TestSigningAfterSubmit(t *testing.T) {
	driver := newStub()
	walkToSubmit(driver)
	texts := esign.DefaultTexts()
	// The first confirmation is missing the terms, the second one signs.
	driver.inputs[texts.DialogTitle] = []string{"Dana Reyes", "Dana Reyes"}
	driver.confirms[texts.TermsLink+"?"] = []bool{false, true}
	driver.confirms[texts.ConsentLabel] = []bool{true, true}

	agreement, err := esign.NewAgreement()
	if err != nil {
		t.Fatalf("agreement: %v", err)
	}
	attacher := &fakeAttacher{}
	s := newSession(t, driver,
		WithPersistence(savedStore(t, testsupport.ValidRecord()), "dev-1"),
		WithSubmitter(&fakeSubmitter{}),
		WithSigning(esign.NewService(agreement, attacher)),
		WithNetwork(fixedIP("198.51.100.7")),
	)
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v\ninfos: %v", err, driver.infos)
	}
	if !bytes.HasPrefix(res.PDF, []byte("%PDF-")) {
		t.Fatalf("no signed pdf")
	}
	if !driver.saw("Still missing: terms") || !driver.saw(texts.SuccessTitle) {
		t.Fatalf("unexpected signing output: %v", driver.infos)
	}
	if !driver.saw("[1/3]") {
		t.Fatalf("terms not printed: %v", driver.infos)
	}
	if len(attacher.attachments) == 0 || attacher.attachments[0].Filename != "esignature.pdf" {
		t.Fatalf("attachments = %v", attacher.attachments)
	}
}

func TestSigningCanBeDeferred(t *testing.T) {
	driver := newStub()
	walkToSubmit(driver)
	driver.confirms[esign.DefaultTexts().ContinueButton+"?"] = []bool{false}

	agreement, err := esign.NewAgreement()
	if err != nil {
		t.Fatalf("agreement: %v", err)
	}
	attacher := &fakeAttacher{}
	s := newSession(t, driver,
		WithPersistence(savedStore(t, testsupport.ValidRecord()), "dev-1"),
		WithSubmitter(&fakeSubmitter{}),
		WithSigning(esign.NewService(agreement, attacher)),
	)
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.AppID != "4512" || res.PDF != nil || attacher.attachments != nil {
		t.Fatalf("unexpected result %+v, attachments %v", res, attacher.attachments)
	}
}

func TestNewRequiresIdentifierWithStore(t *testing.T) {
	sch, err := schema.Default()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if _, err := New(sch, WithPersistence(persistence.NewMemoryStore(), "")); err == nil {
		t.Fatalf("expected an error")
	}
	if _, err := New(nil); err == nil {
		t.Fatalf("expected an error for a nil schema")
	}
}

type fixedIP string

func (f fixedIP) Lookup(context.Context) string { return string(f) }
