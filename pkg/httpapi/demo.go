package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	json "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"github.com/goliatone/go-boarding/pkg/gateway"
)

// defaultCharge is the sale amount of the demo checkout.
var defaultCharge = decimal.NewFromInt(20)

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	if s.customers == nil {
		writeError(w, errNoGateway)
		return
	}
	customers, err := s.customers.ListCustomers(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list customers failed")
		writeError(w, upstream("Failed to list customers", err))
		return
	}
	rows := make([]map[string]any, 0, len(customers))
	for _, c := range customers {
		rows = append(rows, map[string]any{
			"id":    strconv.FormatInt(c.CustomerID, 10),
			"name":  strings.TrimSpace(c.Firstname + " " + c.Lastname),
			"email": c.Email,
			"city":  c.City,
			"state": c.State,
		})
	}
	html, err := s.views.RenderTemplate("customers", map[string]any{"customers": rows})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

func (s *Server) handleAddCustomer(w http.ResponseWriter, r *http.Request) {
	if s.customers == nil {
		writeError(w, errNoGateway)
		return
	}
	var customer gateway.Customer
	if err := decodeBody(w, r, &customer); err != nil {
		writeError(w, err)
		return
	}
	payload, err := s.customers.AddCustomer(r.Context(), customer)
	if err != nil {
		s.logger.Error().Err(err).Msg("add customer failed")
		writeError(w, upstream("Failed to create customer", err))
		return
	}
	writeRaw(w, http.StatusOK, payload)
}

func (s *Server) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	if s.customers == nil {
		writeError(w, errNoGateway)
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, StatusError{Code: http.StatusBadRequest, Message: "Invalid customer id", Err: fmt.Errorf("customer %q", r.PathValue("id"))})
		return
	}
	if err := s.customers.DeleteCustomer(r.Context(), id); err != nil {
		s.logger.Error().Err(err).Int64("customer_id", id).Msg("delete customer failed")
		writeError(w, upstream("Failed to delete customer", err))
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

type transactionRequest struct {
	Method          string          `json:"method"`
	CustomerID      int64           `json:"customerId"`
	Amount          decimal.Decimal `json:"amount"`
	CustomerNumber  string          `json:"customerNumber"`
	BillingAddress1 string          `json:"billingAddress1"`
}

type transactionResponse struct {
	StoredMethodID string          `json:"storedMethodId"`
	ReferenceID    string          `json:"referenceId"`
	Transactions   json.RawMessage `json:"transactions,omitempty"`
}

// handleTransaction turns a temporary card token into a stored method, charges
// it and returns the resulting transaction records.
func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	if s.customers == nil {
		writeError(w, errNoGateway)
		return
	}
	var req transactionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Amount.IsZero() {
		req.Amount = defaultCharge
	}
	ctx := r.Context()
	log := s.logger.With().Int64("customer_id", req.CustomerID).Logger()

	stored, err := s.customers.ConvertToken(ctx, gateway.TokenRequest{
		TokenID:    strings.TrimSpace(req.Method),
		CustomerID: req.CustomerID,
	})
	if err != nil {
		log.Error().Err(err).Msg("token conversion failed")
		writeError(w, upstream("Failed to store payment method", err))
		return
	}
	reference, err := s.customers.GetPaid(ctx, gateway.Payment{
		StoredMethodID:  stored,
		Amount:          req.Amount,
		CustomerID:      req.CustomerID,
		CustomerNumber:  req.CustomerNumber,
		BillingAddress1: req.BillingAddress1,
		IdempotencyKey:  r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		log.Error().Err(err).Str("stored_method", stored).Msg("payment failed")
		writeError(w, upstream("Failed to process transaction", err))
		return
	}
	records, err := s.customers.QueryTransactions(ctx, reference)
	if err != nil {
		log.Warn().Err(err).Str("reference_id", reference).Msg("transaction lookup failed")
	}
	writeJSON(w, http.StatusOK, transactionResponse{StoredMethodID: stored, ReferenceID: reference, Transactions: records})
}
