package esign_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-boarding/pkg/esign"
	"github.com/goliatone/go-boarding/pkg/gateway"
	"github.com/goliatone/go-boarding/pkg/schema"
	"github.com/goliatone/go-boarding/pkg/testsupport"
)

type fakeAttacher struct {
	appID       string
	attachments []gateway.Attachment
	err         error
}

func (f *fakeAttacher) AttachFiles(_ context.Context, appID string, attachments []gateway.Attachment) error {
	f.appID = appID
	f.attachments = attachments
	return f.err
}

func newService(t *testing.T, attacher esign.Attacher) *esign.Service {
	t.Helper()
	agreement, err := esign.NewAgreement()
	if err != nil {
		t.Fatalf("new agreement: %v", err)
	}
	return esign.NewService(agreement, attacher)
}

func signature() esign.Signature {
	return esign.Signature{
		Name:          "Dana Reyes",
		AcceptedTerms: true,
		Device:        "Windows",
		IP:            esign.IPFallback,
		SignedAt:      time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC),
	}
}

func TestFinalizer_AttachesPDFAndProofs(t *testing.T) {
	attacher := &fakeAttacher{}
	svc := newService(t, attacher)
	proofs := []gateway.Attachment{gateway.ProofAttachment("deposit", "png", "aW1n")}

	pdf, err := svc.Finalizer("4521", testsupport.ValidRecord(), proofs)(context.Background(), signature())
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Fatalf("finalizer did not return a pdf")
	}
	if attacher.appID != "4521" {
		t.Fatalf("attached to %q", attacher.appID)
	}

	var names []string
	for _, a := range attacher.attachments {
		names = append(names, a.Filename)
	}
	if diff := cmp.Diff([]string{"esignature.pdf", "deposit.png"}, names); diff != "" {
		t.Fatalf("attachments mismatch (-want +got):\n%s", diff)
	}
	decoded, err := base64.StdEncoding.DecodeString(attacher.attachments[0].FContent)
	if err != nil || !bytes.Equal(decoded, pdf) {
		t.Fatalf("pdf attachment does not carry the rendered document")
	}
}

func TestFinalizer_AttachFailure(t *testing.T) {
	boom := errors.New("gateway down")
	svc := newService(t, &fakeAttacher{err: boom})

	_, err := svc.Finalizer("4521", testsupport.ValidRecord(), nil)(context.Background(), signature())
	if !errors.Is(err, boom) {
		t.Fatalf("expected attach error, got %v", err)
	}

	flow := esign.NewFlow()
	flow.Open("Windows", esign.IPFallback)
	_ = flow.Continue()
	_ = flow.Sign("Dana Reyes")
	_ = flow.OpenTerms()
	_ = flow.SetConsent(true)
	err = flow.Confirm(context.Background(), svc.Finalizer("4521", testsupport.ValidRecord(), nil))
	if !errors.Is(err, esign.ErrSigning) || flow.State() != esign.StateError {
		t.Fatalf("expected error state, got %v in %s", err, flow.State())
	}
}

func TestFinalizer_WithoutAttacher(t *testing.T) {
	svc := newService(t, nil)
	pdf, err := svc.Finalizer("", testsupport.ValidRecord(), nil)(context.Background(), signature())
	if err != nil || len(pdf) == 0 {
		t.Fatalf("expected pdf, got %d bytes, err %v", len(pdf), err)
	}
}

func TestProofAttachments(t *testing.T) {
	s, err := schema.Default()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	record := testsupport.ValidRecord()
	record["depositProof"] = map[string]any{"filename": "Check.PNG", "mime": "image/png", "content": "aW1n"}
	record["withdrawalProof"] = map[string]any{"filename": "statement", "mime": "application/pdf", "content": "cGRm"}

	want := []gateway.Attachment{
		{FType: "png", Filename: "deposit.png", FContent: "aW1n"},
		{FType: "pdf", Filename: "withdrawal.pdf", FContent: "cGRm"},
	}
	if diff := cmp.Diff(want, esign.ProofAttachments(s, record)); diff != "" {
		t.Fatalf("proofs mismatch (-want +got):\n%s", diff)
	}

	record["withdrawalProof"] = map[string]any{"filename": "empty.pdf", "content": ""}
	if got := esign.ProofAttachments(s, record); len(got) != 1 {
		t.Fatalf("empty uploads should be skipped, got %+v", got)
	}
}
