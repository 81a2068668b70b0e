package httpapi_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	json "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"github.com/goliatone/go-boarding/pkg/config"
	"github.com/goliatone/go-boarding/pkg/gateway"
	"github.com/goliatone/go-boarding/pkg/httpapi"
	"github.com/goliatone/go-boarding/pkg/persistence"
	"github.com/goliatone/go-boarding/pkg/schema"
	"github.com/goliatone/go-boarding/pkg/testsupport"
)

type fakeGateway struct {
	mu          sync.Mutex
	created     map[string]any
	key         string
	attached    []gateway.Attachment
	attachedFor string
	pdf         string
	submitted   string
	deleted     int64
	token       gateway.TokenRequest
	payment     gateway.Payment
	response    json.RawMessage
	customers   []gateway.Customer
	err         error
}

func (f *fakeGateway) CreateApp(_ context.Context, application map[string]any, key string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created, f.key = application, key
	return f.response, f.err
}

func (f *fakeGateway) AttachFiles(_ context.Context, appID string, attachments []gateway.Attachment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attachedFor = appID
	f.attached = append(f.attached, attachments...)
	return f.err
}

func (f *fakeGateway) AttachPDF(_ context.Context, appID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attachedFor, f.pdf = appID, content
	return f.err
}

func (f *fakeGateway) SubmitApp(_ context.Context, appID string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = appID
	return f.response, f.err
}

func (f *fakeGateway) ListCustomers(context.Context) ([]gateway.Customer, error) {
	return f.customers, f.err
}

func (f *fakeGateway) AddCustomer(context.Context, gateway.Customer) (json.RawMessage, error) {
	return f.response, f.err
}

func (f *fakeGateway) DeleteCustomer(_ context.Context, id int64) error {
	f.deleted = id
	return f.err
}

func (f *fakeGateway) ConvertToken(_ context.Context, req gateway.TokenRequest) (string, error) {
	f.token = req
	return "stored-1", f.err
}

func (f *fakeGateway) GetPaid(_ context.Context, p gateway.Payment) (string, error) {
	f.payment = p
	return "ref-9", f.err
}

func (f *fakeGateway) QueryTransactions(context.Context, string) (json.RawMessage, error) {
	return json.RawMessage(`[{"TransStatus":1}]`), nil
}

func newServer(t *testing.T, cfg config.Config, fake *fakeGateway, opts ...httpapi.Option) http.Handler {
	t.Helper()
	sch, err := schema.Default()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if fake != nil {
		opts = append(opts, httpapi.WithBoarding(fake), httpapi.WithCustomers(fake))
	}
	opts = append(opts, httpapi.WithIdempotencyKeys(func() string { return "generated-key" }))
	srv, err := httpapi.New(context.Background(), cfg, sch, opts...)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, target string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestIndexAndSchema(t *testing.T) {
	h := newServer(t, config.Config{}, nil)

	rr := do(t, h, http.MethodGet, "/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status = %d", rr.Code)
	}
	steps, _ := decode(t, rr)["steps"].([]any)
	if len(steps) != 5 {
		t.Fatalf("steps = %v", steps)
	}

	rr = do(t, h, http.MethodGet, "/api/schema", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "Business Information") {
		t.Fatalf("schema: %d %s", rr.Code, rr.Body.String())
	}
}

func TestValidateEndpoint(t *testing.T) {
	h := newServer(t, config.Config{}, nil)

	rec := testsupport.ValidRecord()
	rr := do(t, h, http.MethodPost, "/api/validate", rec)
	if got := decode(t, rr)["valid"]; got != true {
		t.Fatalf("valid record reported %v: %s", got, rr.Body.String())
	}

	rec["ein"] = "12"
	got := decode(t, do(t, h, http.MethodPost, "/api/validate", rec))
	want := map[string]any{
		"valid":      false,
		"violations": map[string]any{"ein": "EIN must be 9 digits"},
		"firstPage":  float64(0),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("validate mismatch (-want +got):\n%s", diff)
	}
}

func TestStepRestoresSavedProgress(t *testing.T) {
	h := newServer(t, config.Config{}, nil)

	save := map[string]any{"action": "save", "deviceToken": "dev-1", "data": map[string]any{"ein": "987654321"}}
	if rr := do(t, h, http.MethodPost, "/api/formData", save); rr.Code != http.StatusOK {
		t.Fatalf("save status = %d: %s", rr.Code, rr.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/steps/0", nil)
	req.AddCookie(&http.Cookie{Name: persistence.DeviceCookie, Value: "dev-1"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("step status = %d: %s", rr.Code, rr.Body.String())
	}
	view := decode(t, rr)
	if view["title"] != "Business Information" || view["isFirst"] != true {
		t.Fatalf("unexpected view header: %v", view)
	}
	var ein map[string]any
	for _, w := range view["widgets"].([]any) {
		if m := w.(map[string]any); m["path"] == "ein" {
			ein = m
		}
	}
	if ein == nil || ein["value"] != "987654321" {
		t.Fatalf("ein widget = %v", ein)
	}

	if rr := do(t, h, http.MethodGet, "/api/steps/9", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("out of range step status = %d", rr.Code)
	}
}

func TestFormDataMethodNotAllowed(t *testing.T) {
	h := newServer(t, config.Config{}, nil)

	rr := do(t, h, http.MethodGet, "/api/formData", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rr.Code)
	}
	if allow := rr.Header().Get("Allow"); allow != http.MethodPost {
		t.Fatalf("Allow = %q", allow)
	}
}

func TestCreateApp(t *testing.T) {
	t.Run("invalid record never reaches the gateway", func(t *testing.T) {
		fake := &fakeGateway{}
		h := newServer(t, config.Config{}, fake)
		rec := testsupport.ValidRecord()
		rec["ein"] = "12"

		rr := do(t, h, http.MethodPost, "/api/createApp", rec)
		if rr.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d", rr.Code)
		}
		if fake.created != nil {
			t.Fatalf("gateway called with %v", fake.created)
		}
	})

	t.Run("relays the upstream payload", func(t *testing.T) {
		fake := &fakeGateway{response: json.RawMessage(`4512`)}
		h := newServer(t, config.Config{}, fake)

		rr := do(t, h, http.MethodPost, "/api/createApp", testsupport.ValidRecord(), "Idempotency-Key", "client-key")
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
		}
		if got := rr.Body.String(); got != `4512` {
			t.Fatalf("body = %s", got)
		}
		if fake.key != "client-key" {
			t.Fatalf("idempotency key = %q", fake.key)
		}
		if _, ok := fake.created["depositProof"]; ok {
			t.Fatalf("payload kept the proof upload")
		}
	})

	t.Run("generates a key when the header is missing", func(t *testing.T) {
		fake := &fakeGateway{response: json.RawMessage(`{}`)}
		h := newServer(t, config.Config{}, fake)
		do(t, h, http.MethodPost, "/api/createApp", testsupport.ValidRecord())
		if fake.key != "generated-key" {
			t.Fatalf("idempotency key = %q", fake.key)
		}
	})

	cases := []struct {
		name     string
		upstream int
		want     int
	}{
		{"server failure", http.StatusInternalServerError, http.StatusBadGateway},
		{"client failure", http.StatusBadRequest, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeGateway{err: &gateway.StatusError{Op: "createApp", Code: tc.upstream}}
			h := newServer(t, config.Config{}, fake)

			rr := do(t, h, http.MethodPost, "/api/createApp", testsupport.ValidRecord())
			if rr.Code != tc.want {
				t.Fatalf("status = %d, want %d", rr.Code, tc.want)
			}
			if got := decode(t, rr)["error"]; got != "Failed to submit application" {
				t.Fatalf("error = %v", got)
			}
		})
	}

	t.Run("without a gateway", func(t *testing.T) {
		h := newServer(t, config.Config{}, nil)
		rr := do(t, h, http.MethodPost, "/api/createApp", testsupport.ValidRecord())
		if rr.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d", rr.Code)
		}
	})
}

func TestAttachAndSubmit(t *testing.T) {
	fake := &fakeGateway{response: json.RawMessage(`{"isSuccess":true}`)}
	h := newServer(t, config.Config{}, fake)

	files := map[string]any{
		"appId": 4512,
		"attachments": []any{
			map[string]any{"filename": "deposit.png", "ftype": "png", "fContent": "aGVsbG8="},
		},
	}
	rr := do(t, h, http.MethodPost, "/api/attachFiles", files)
	if diff := cmp.Diff(map[string]any{"success": true}, decode(t, rr)); diff != "" {
		t.Fatalf("attachFiles mismatch (-want +got):\n%s", diff)
	}
	if fake.attachedFor != "4512" || len(fake.attached) != 1 {
		t.Fatalf("attached %v for %q", fake.attached, fake.attachedFor)
	}

	rr = do(t, h, http.MethodPost, "/api/attachPDF", map[string]any{"appId": "4512", "pdfContent": "JVBERi0="})
	if rr.Code != http.StatusOK || fake.pdf != "JVBERi0=" {
		t.Fatalf("attachPDF: %d pdf=%q", rr.Code, fake.pdf)
	}

	rr = do(t, h, http.MethodPost, "/api/submitApp", map[string]any{"appId": 4512})
	if rr.Code != http.StatusOK || fake.submitted != "4512" {
		t.Fatalf("submitApp: %d submitted=%q", rr.Code, fake.submitted)
	}

	fake.err = errors.New("boom")
	rr = do(t, h, http.MethodPost, "/api/attachPDF", map[string]any{"appId": "4512", "pdfContent": "JVBERi0="})
	if got := decode(t, rr)["error"]; rr.Code != http.StatusBadGateway || got != "Failed to attach PDF" {
		t.Fatalf("attachPDF failure: %d %v", rr.Code, got)
	}
}

func TestRequestsAreCheckedAgainstTheOpenAPIDocument(t *testing.T) {
	fake := &fakeGateway{}
	h := newServer(t, config.Config{}, fake)

	rr := do(t, h, http.MethodPost, "/api/submitApp", map[string]any{})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(decode(t, rr)["details"].(string), "appId") {
		t.Fatalf("details do not name the property: %s", rr.Body.String())
	}
	if fake.submitted != "" {
		t.Fatalf("handler reached with %q", fake.submitted)
	}

	rr = do(t, h, http.MethodGet, "/api/openapi.json", nil)
	if rr.Code != http.StatusOK || !bytes.Equal(rr.Body.Bytes(), httpapi.OpenAPIDocument()) {
		t.Fatalf("openapi document not served")
	}
}

func TestESignDocument(t *testing.T) {
	h := newServer(t, config.Config{}, nil)

	rr := do(t, h, http.MethodPost, "/api/esign/document",
		map[string]any{"record": testsupport.ValidRecord(), "name": "Dana Reyes"},
		"User-Agent", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	body := decode(t, rr)
	if pages, _ := body["pages"].([]any); len(pages) == 0 {
		t.Fatalf("no pages rendered")
	}
	if pdf, _ := body["pdf"].(string); !strings.HasPrefix(pdf, "JVBERi0") {
		t.Fatalf("pdf is not base64 PDF data")
	}
}

func TestESignSign(t *testing.T) {
	t.Run("unmet preconditions", func(t *testing.T) {
		fake := &fakeGateway{}
		h := newServer(t, config.Config{}, fake)

		rr := do(t, h, http.MethodPost, "/api/esign/sign", map[string]any{
			"appId": 4512, "record": testsupport.ValidRecord(), "name": "Dana Reyes", "acceptedTerms": true,
		})
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rr.Code)
		}
		view := decode(t, rr)["view"].(map[string]any)
		if diff := cmp.Diff([]any{"terms"}, view["missing"]); diff != "" {
			t.Fatalf("missing mismatch (-want +got):\n%s", diff)
		}
		if fake.attached != nil {
			t.Fatalf("attached before signing was allowed")
		}
	})

	t.Run("signs and attaches", func(t *testing.T) {
		fake := &fakeGateway{}
		h := newServer(t, config.Config{}, fake)

		rr := do(t, h, http.MethodPost, "/api/esign/sign", map[string]any{
			"appId": "4512", "record": testsupport.ValidRecord(), "name": " Dana Reyes ",
			"termsOpened": true, "acceptedTerms": true,
		}, "X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
		}
		view := decode(t, rr)["view"].(map[string]any)
		if view["state"] != "success" || view["ip"] != "203.0.113.9" {
			t.Fatalf("view = %v", view)
		}
		if fake.attachedFor != "4512" || len(fake.attached) == 0 || fake.attached[0].Filename != "esignature.pdf" {
			t.Fatalf("attached %v for %q", fake.attached, fake.attachedFor)
		}
	})

	t.Run("attach failure", func(t *testing.T) {
		fake := &fakeGateway{err: &gateway.StatusError{Op: "attachFiles", Code: http.StatusServiceUnavailable}}
		h := newServer(t, config.Config{}, fake)

		rr := do(t, h, http.MethodPost, "/api/esign/sign", map[string]any{
			"appId": "4512", "record": testsupport.ValidRecord(), "name": "Dana Reyes",
			"termsOpened": true, "acceptedTerms": true,
		})
		if rr.Code != http.StatusBadGateway {
			t.Fatalf("status = %d", rr.Code)
		}
		if view := decode(t, rr)["view"].(map[string]any); view["state"] != "error" {
			t.Fatalf("view = %v", view)
		}
	})
}

func TestLoginGate(t *testing.T) {
	cfg := config.Config{Identity: config.IdentityConfig{
		Mode:          config.IdentitySession,
		SessionSecret: "s3cret",
		SessionCookie: "session",
		LoginPath:     "/signin",
	}}
	h := newServer(t, cfg, nil)

	rr := do(t, h, http.MethodGet, "/api/steps/0", nil)
	if rr.Code != http.StatusFound || rr.Header().Get("Location") != "/signin" {
		t.Fatalf("unauthenticated: %d %q", rr.Code, rr.Header().Get("Location"))
	}

	for _, path := range []string{"/api/schema", "/api/regions?q=united"} {
		if rr := do(t, h, http.MethodGet, path, nil); rr.Code != http.StatusOK {
			t.Fatalf("public %s status = %d", path, rr.Code)
		}
	}

	token, err := persistence.NewSessions("s3cret", "session").Issue("user-42", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/steps/0", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: token})
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("authenticated status = %d: %s", rr.Code, rr.Body.String())
	}
}

func TestRegions(t *testing.T) {
	h := newServer(t, config.Config{}, nil)

	rr := do(t, h, http.MethodGet, "/api/regions?country=US&q=texas", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"TX"`) {
		t.Fatalf("texas missing: %s", rr.Body.String())
	}
}

func TestDemoCustomers(t *testing.T) {
	fake := &fakeGateway{customers: []gateway.Customer{
		{CustomerID: 7, Firstname: "Ana", Lastname: "Ruiz", Email: "ana@example.com", City: "Austin", State: "TX"},
	}}
	h := newServer(t, config.Config{}, fake)

	rr := do(t, h, http.MethodGet, "/demo/customers", nil)
	if rr.Code != http.StatusOK || !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/html") {
		t.Fatalf("list: %d %q", rr.Code, rr.Header().Get("Content-Type"))
	}
	for _, want := range []string{`data-customer="7"`, "Ana Ruiz", "Austin, TX"} {
		if !strings.Contains(rr.Body.String(), want) {
			t.Fatalf("list missing %q:\n%s", want, rr.Body.String())
		}
	}

	if rr := do(t, h, http.MethodDelete, "/demo/customers/7", nil); rr.Code != http.StatusOK || fake.deleted != 7 {
		t.Fatalf("delete: %d deleted=%d", rr.Code, fake.deleted)
	}

	rr = do(t, h, http.MethodPost, "/demo/customers", map[string]any{"email": "x@example.com"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("create without names status = %d", rr.Code)
	}
}

func TestDemoTransaction(t *testing.T) {
	fake := &fakeGateway{}
	h := newServer(t, config.Config{}, fake)

	rr := do(t, h, http.MethodPost, "/demo/transaction", map[string]any{
		"method": "tmp-token", "customerId": 7, "customerNumber": "C-7", "billingAddress1": "100 Congress Ave",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	want := map[string]any{
		"storedMethodId": "stored-1",
		"referenceId":    "ref-9",
		"transactions":   []any{map[string]any{"TransStatus": float64(1)}},
	}
	if diff := cmp.Diff(want, decode(t, rr)); diff != "" {
		t.Fatalf("transaction mismatch (-want +got):\n%s", diff)
	}
	if fake.token.TokenID != "tmp-token" || fake.token.CustomerID != 7 {
		t.Fatalf("token request = %+v", fake.token)
	}
	if !fake.payment.Amount.Equal(decimal.NewFromInt(20)) || fake.payment.StoredMethodID != "stored-1" {
		t.Fatalf("payment = %+v", fake.payment)
	}
}
