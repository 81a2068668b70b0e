package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	json "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

type captured struct {
	method      string
	path        string
	query       string
	token       string
	idempotency string
	body        map[string]any
}

func newTestClient(t *testing.T, status int, response string) (*Client, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.token = r.Header.Get("requestToken")
		got.idempotency = r.Header.Get("idempotencyKey")
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			if err := json.Unmarshal(raw, &got.body); err != nil {
				t.Errorf("decode request body: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api", "tok-1", "entry-1", 5*time.Second), got
}

func TestCreateApp_PostsRecordAndRelaysPayload(t *testing.T) {
	client, got := newTestClient(t, http.StatusOK, `{"isSuccess":true,"responseText":"Success","responseData":4521}`)

	payload, err := client.CreateApp(context.Background(), map[string]any{"legalname": "Acme LLC"}, "key-1")
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	if got.method != http.MethodPost || got.path != "/api/Boarding/app" {
		t.Fatalf("unexpected request %s %s", got.method, got.path)
	}
	if got.token != "tok-1" || got.idempotency != "key-1" {
		t.Fatalf("unexpected headers token=%q key=%q", got.token, got.idempotency)
	}
	if diff := cmp.Diff(map[string]any{"legalname": "Acme LLC"}, got.body); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
	id, err := AppID(payload)
	if err != nil || id != "4521" {
		t.Fatalf("AppID = %q, %v", id, err)
	}
}

func TestCreateApp_NonSuccessStatus(t *testing.T) {
	client, _ := newTestClient(t, http.StatusBadRequest, `{"isSuccess":false,"responseText":"bad ein"}`)

	_, err := client.CreateApp(context.Background(), map[string]any{}, "")
	if !errors.Is(err, ErrSubmission) {
		t.Fatalf("expected submission error, got %v", err)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode() != http.StatusBadRequest {
		t.Fatalf("expected 400 status error, got %v", err)
	}

	upstream := &StatusError{Op: "create app", Code: http.StatusServiceUnavailable}
	if upstream.StatusCode() != http.StatusBadGateway {
		t.Fatalf("expected 5xx to map to 502, got %d", upstream.StatusCode())
	}
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := New(url, "tok", "entry", time.Second)
	if err := client.AttachPDF(context.Background(), "1", "JVBER"); !errors.Is(err, ErrSubmission) {
		t.Fatalf("expected submission error, got %v", err)
	}
}

func TestAttachFiles(t *testing.T) {
	client, got := newTestClient(t, http.StatusOK, `{"isSuccess":true}`)

	attachments := []Attachment{PDFAttachment("JVBER"), ProofAttachment("deposit", ".PNG", "iVBOR")}
	if err := client.AttachFiles(context.Background(), "77", attachments); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if got.method != http.MethodPut || got.path != "/api/Boarding/app/77" {
		t.Fatalf("unexpected request %s %s", got.method, got.path)
	}
	want := map[string]any{"attachments": []any{
		map[string]any{"ftype": "pdf", "filename": "esignature.pdf", "fContent": "JVBER"},
		map[string]any{"ftype": "png", "filename": "deposit.png", "fContent": "iVBOR"},
	}}
	if diff := cmp.Diff(want, got.body); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}

	if err := client.AttachFiles(context.Background(), "", attachments); err == nil {
		t.Fatalf("expected error for missing app id")
	}
}

func TestSubmitApp(t *testing.T) {
	client, got := newTestClient(t, http.StatusOK, `{"isSuccess":true,"responseData":"ok"}`)
	if _, err := client.SubmitApp(context.Background(), "77"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got.method != http.MethodGet || got.path != "/api/Boarding/appsts/77/4/0" {
		t.Fatalf("unexpected request %s %s", got.method, got.path)
	}
}

func TestAppID(t *testing.T) {
	cases := map[string]string{
		`4521`:             "4521",
		`"A-9"`:            "A-9",
		`{"appId": 12}`:    "12",
		`{"id": "abc"}`:    "abc",
		`1.5e3`:            "1500",
	}
	for raw, want := range cases {
		got, err := AppID(json.RawMessage(raw))
		if err != nil || got != want {
			t.Fatalf("AppID(%s) = %q, %v; want %q", raw, got, err, want)
		}
	}
	for _, raw := range []string{``, `null`, `""`, `{"other":1}`, `[1]`} {
		if _, err := AppID(json.RawMessage(raw)); !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("AppID(%q) expected malformed error, got %v", raw, err)
		}
	}
}

func TestListCustomers(t *testing.T) {
	client, got := newTestClient(t, http.StatusOK, `{"Records":[{"customerId":3,"Firstname":"Ada","Lastname":"Lovelace","Email":"ada@example.com"}]}`)

	customers, err := client.ListCustomers(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got.path != "/api/Query/customers/entry-1" {
		t.Fatalf("unexpected path %s", got.path)
	}
	want := []Customer{{CustomerID: 3, Firstname: "Ada", Lastname: "Lovelace", Email: "ada@example.com"}}
	if diff := cmp.Diff(want, customers); diff != "" {
		t.Fatalf("customers mismatch (-want +got):\n%s", diff)
	}
}

func TestAddAndDeleteCustomer(t *testing.T) {
	client, got := newTestClient(t, http.StatusOK, `{"isSuccess":true,"responseData":{"customerId":9}}`)

	if _, err := client.AddCustomer(context.Background(), Customer{Firstname: "Ada", Email: "ada@example.com"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got.path != "/api/Customer/single/entry-1" || got.query != "forceCustomerCreation=true" {
		t.Fatalf("unexpected request %s?%s", got.path, got.query)
	}
	if diff := cmp.Diff(map[string]any{"firstname": "Ada", "email": "ada@example.com"}, got.body); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}

	if err := client.DeleteCustomer(context.Background(), 9); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got.method != http.MethodDelete || got.path != "/api/Customer/9" {
		t.Fatalf("unexpected request %s %s", got.method, got.path)
	}
}

func TestConvertToken(t *testing.T) {
	client, got := newTestClient(t, http.StatusOK, `{"isSuccess":true,"responseData":{"referenceId":"stored-1"}}`)

	ref, err := client.ConvertToken(context.Background(), TokenRequest{TokenID: "tmp-1", CustomerID: 9})
	if err != nil || ref != "stored-1" {
		t.Fatalf("convert = %q, %v", ref, err)
	}
	want := map[string]any{
		"paymentMethod":     map[string]any{"method": "card", "tokenId": "tmp-1"},
		"customerData":      map[string]any{"customerId": float64(9)},
		"entryPoint":        "entry-1",
		"source":            "web",
		"methodDescription": "Main card",
	}
	if diff := cmp.Diff(want, got.body); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
	if got.query != "temporary=false" {
		t.Fatalf("unexpected query %q", got.query)
	}
}

func TestGetPaid(t *testing.T) {
	client, got := newTestClient(t, http.StatusOK, `{"isSuccess":true,"responseData":{"referenceId":"txn-1"}}`)

	ref, err := client.GetPaid(context.Background(), Payment{
		StoredMethodID: "stored-1",
		Amount:         decimal.RequireFromString("10.005"),
		CustomerID:     9,
	})
	if err != nil || ref != "txn-1" {
		t.Fatalf("get paid = %q, %v", ref, err)
	}
	if got.idempotency == "" {
		t.Fatalf("expected generated idempotency key")
	}
	details, _ := got.body["paymentDetails"].(map[string]any)
	if details["totalAmount"] != 10.01 || details["serviceFee"] != float64(0) {
		t.Fatalf("unexpected payment details %v", details)
	}

	if _, err := client.GetPaid(context.Background(), Payment{StoredMethodID: "s", Amount: decimal.Zero}); err == nil {
		t.Fatalf("expected error for zero amount")
	}
}

func TestGetPaid_MissingReference(t *testing.T) {
	client, _ := newTestClient(t, http.StatusOK, `{"isSuccess":true,"responseData":{}}`)
	_, err := client.GetPaid(context.Background(), Payment{StoredMethodID: "s", Amount: decimal.NewFromInt(1)})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func TestQueryTransactions(t *testing.T) {
	client, got := newTestClient(t, http.StatusOK, `{"Records":[{"TransId":"txn-1"}]}`)

	records, err := client.QueryTransactions(context.Background(), "txn-1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if got.path != "/api/Query/transactions/entry-1" || got.query != "transId%28eq%29=txn-1" {
		t.Fatalf("unexpected request %s?%s", got.path, got.query)
	}
	if string(records) != `[{"TransId":"txn-1"}]` {
		t.Fatalf("unexpected records %s", records)
	}
}
