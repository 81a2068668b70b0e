package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

// Customer is a record of the hosted customer vault.
type Customer struct {
	CustomerID       int64             `json:"customerId,omitempty"`
	CustomerNumber   string            `json:"customerNumber,omitempty"`
	Firstname        string            `json:"firstname,omitempty"`
	Lastname         string            `json:"lastname,omitempty"`
	Email            string            `json:"email,omitempty"`
	Address          string            `json:"address,omitempty"`
	City             string            `json:"city,omitempty"`
	State            string            `json:"state,omitempty"`
	Zip              string            `json:"zip,omitempty"`
	Country          string            `json:"country,omitempty"`
	TimeZone         int               `json:"timeZone,omitempty"`
	AdditionalFields map[string]string `json:"additionalFields,omitempty"`
}

// queryCustomer mirrors the capitalised field names of query results.
type queryCustomer struct {
	CustomerID int64  `json:"customerId"`
	Firstname  string `json:"Firstname"`
	Lastname   string `json:"Lastname"`
	Email      string `json:"Email"`
	Address    string `json:"Address"`
	City       string `json:"City"`
	State      string `json:"State"`
	Zip        string `json:"Zip"`
	Country    string `json:"Country"`
	TimeZone   int    `json:"TimeZone"`
}

// ListCustomers returns the customers of the configured entry point.
func (c *Client) ListCustomers(ctx context.Context) ([]Customer, error) {
	resp, err := c.do(ctx, call{
		op:     "list customers",
		method: http.MethodGet,
		path:   "Query/customers/" + url.PathEscape(c.entryPoint),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Records) == 0 {
		return []Customer{}, nil
	}
	var records []queryCustomer
	if err := json.Unmarshal(resp.Records, &records); err != nil {
		return nil, fmt.Errorf("%w: list customers: %v", ErrMalformedResponse, err)
	}
	out := make([]Customer, 0, len(records))
	for _, r := range records {
		out = append(out, Customer{
			CustomerID: r.CustomerID,
			Firstname:  r.Firstname,
			Lastname:   r.Lastname,
			Email:      r.Email,
			Address:    r.Address,
			City:       r.City,
			State:      r.State,
			Zip:        r.Zip,
			Country:    r.Country,
			TimeZone:   r.TimeZone,
		})
	}
	return out, nil
}

// AddCustomer creates a customer, forcing creation when a similar record
// already exists.
func (c *Client) AddCustomer(ctx context.Context, customer Customer) (json.RawMessage, error) {
	resp, err := c.do(ctx, call{
		op:     "add customer",
		method: http.MethodPost,
		path:   "Customer/single/" + url.PathEscape(c.entryPoint),
		query:  url.Values{"forceCustomerCreation": []string{"true"}},
		body:   customer,
	})
	if err != nil {
		return nil, err
	}
	return resp.ResponseData, nil
}

// DeleteCustomer removes a customer by id.
func (c *Client) DeleteCustomer(ctx context.Context, customerID int64) error {
	_, err := c.do(ctx, call{
		op:     "delete customer",
		method: http.MethodDelete,
		path:   "Customer/" + strconv.FormatInt(customerID, 10),
	})
	return err
}

// TokenRequest converts a temporary card token into a stored method.
type TokenRequest struct {
	TokenID     string
	CustomerID  int64
	Description string
}

type tokenBody struct {
	PaymentMethod struct {
		Method  string `json:"method"`
		TokenID string `json:"tokenId"`
	} `json:"paymentMethod"`
	CustomerData struct {
		CustomerID int64 `json:"customerId"`
	} `json:"customerData"`
	EntryPoint        string `json:"entryPoint"`
	Source            string `json:"source"`
	MethodDescription string `json:"methodDescription"`
}

type referencePayload struct {
	ReferenceID string `json:"referenceId"`
}

// ConvertToken stores a temporary token permanently and returns the stored
// method id.
func (c *Client) ConvertToken(ctx context.Context, req TokenRequest) (string, error) {
	if strings.TrimSpace(req.TokenID) == "" {
		return "", fmt.Errorf("gateway: convert token: missing token")
	}
	body := tokenBody{EntryPoint: c.entryPoint, Source: "web", MethodDescription: req.Description}
	body.PaymentMethod.Method = "card"
	body.PaymentMethod.TokenID = req.TokenID
	body.CustomerData.CustomerID = req.CustomerID
	if body.MethodDescription == "" {
		body.MethodDescription = "Main card"
	}

	resp, err := c.do(ctx, call{
		op:     "convert token",
		method: http.MethodPost,
		path:   "TokenStorage/add",
		query:  url.Values{"temporary": []string{"false"}},
		body:   body,
	})
	if err != nil {
		return "", err
	}
	return referenceID(resp, "convert token")
}

// Payment charges a stored method.
type Payment struct {
	StoredMethodID  string
	Amount          decimal.Decimal
	ServiceFee      decimal.Decimal
	CustomerID      int64
	CustomerNumber  string
	BillingAddress1 string
	// IdempotencyKey defaults to a random uuid when empty.
	IdempotencyKey string
}

type paymentBody struct {
	EntryPoint    string `json:"entryPoint"`
	PaymentMethod struct {
		Method         string `json:"method"`
		StoredMethodID string `json:"storedMethodId"`
	} `json:"paymentMethod"`
	PaymentDetails struct {
		TotalAmount float64 `json:"totalAmount"`
		ServiceFee  float64 `json:"serviceFee"`
	} `json:"paymentDetails"`
	CustomerData struct {
		CustomerID      int64  `json:"customerId,omitempty"`
		CustomerNumber  string `json:"customerNumber,omitempty"`
		BillingAddress1 string `json:"billingAddress1,omitempty"`
	} `json:"customerData"`
}

// GetPaid runs a sale against a stored method and returns the transaction
// reference id. Amounts are rounded to cents.
func (c *Client) GetPaid(ctx context.Context, p Payment) (string, error) {
	if strings.TrimSpace(p.StoredMethodID) == "" {
		return "", fmt.Errorf("gateway: get paid: missing stored method")
	}
	if !p.Amount.IsPositive() {
		return "", fmt.Errorf("gateway: get paid: amount must be positive, got %s", p.Amount.String())
	}
	body := paymentBody{EntryPoint: c.entryPoint}
	body.PaymentMethod.Method = "card"
	body.PaymentMethod.StoredMethodID = p.StoredMethodID
	body.PaymentDetails.TotalAmount = p.Amount.Round(2).InexactFloat64()
	body.PaymentDetails.ServiceFee = p.ServiceFee.Round(2).InexactFloat64()
	body.CustomerData.CustomerID = p.CustomerID
	body.CustomerData.CustomerNumber = p.CustomerNumber
	body.CustomerData.BillingAddress1 = p.BillingAddress1

	key := p.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	resp, err := c.do(ctx, call{
		op:          "get paid",
		method:      http.MethodPost,
		path:        "MoneyIn/getpaid",
		query:       url.Values{"forceCustomerCreation": []string{"false"}},
		body:        body,
		idempotency: key,
	})
	if err != nil {
		return "", err
	}
	return referenceID(resp, "get paid")
}

// QueryTransactions looks up transactions of the entry point by id.
func (c *Client) QueryTransactions(ctx context.Context, transactionID string) (json.RawMessage, error) {
	query := url.Values{}
	if transactionID != "" {
		query.Set("transId(eq)", transactionID)
	}
	resp, err := c.do(ctx, call{
		op:     "query transactions",
		method: http.MethodGet,
		path:   "Query/transactions/" + url.PathEscape(c.entryPoint),
		query:  query,
	})
	if err != nil {
		return nil, err
	}
	return resp.Records, nil
}

func referenceID(resp *Response, op string) (string, error) {
	var ref referencePayload
	if err := json.Unmarshal(resp.ResponseData, &ref); err != nil || ref.ReferenceID == "" {
		return "", fmt.Errorf("%w: %s: missing referenceId", ErrMalformedResponse, op)
	}
	return ref.ReferenceID, nil
}
