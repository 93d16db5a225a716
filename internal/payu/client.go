package payu

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Default PayU One API endpoints.
const (
	DefaultBaseURL  = "https://oneapi.payu.in"
	DefaultTokenURL = "https://accounts.payu.in/oauth/token"
)

// Credentials authenticate this process against PayU. Loaded once at
// startup, read-only afterwards.
type Credentials struct {
	ClientID     string
	ClientSecret string
	MerchantID   string

	// AuthToken is an optional pre-issued bearer token for the refund and
	// settlement endpoints, which sit outside the client-credentials scope.
	AuthToken string
}

// Client issues authenticated requests to the PayU One API.
//
// All operations share one request algorithm: bearer auth plus merchant
// identity headers, one re-auth retry on 401, bounded exponential backoff
// on 5xx and transport failures, and immediate surfacing of other 4xx.
type Client struct {
	httpClient *http.Client
	baseURL    string
	creds      Credentials
	tokens     *TokenSource
	retry      RetryPolicy
	logger     *logrus.Entry
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient overrides the transport, typically to tighten timeouts.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithBaseURL points the client at a different API host.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithRetryPolicy replaces the default retry schedule.
func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(c *Client) {
		c.retry = p
	}
}

// WithLogger supplies a custom log entry.
func WithLogger(l *logrus.Entry) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a PayU API client backed by the given token source.
func NewClient(tokens *TokenSource, creds Credentials, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DefaultBaseURL,
		creds:      creds,
		tokens:     tokens,
		retry:      DefaultRetryPolicy(),
		logger:     logrus.WithField("component", "payu-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreatePaymentLink creates a payment link and delivers it over the
// channels present on the customer (SMS for phone, email for email).
func (c *Client) CreatePaymentLink(ctx context.Context, req PaymentLinkRequest) (*PaymentLink, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body := paymentLinkBody{
		ViaSMS:      req.Customer.Phone != "",
		ViaEmail:    req.Customer.Email != "",
		SubAmount:   req.Amount,
		Description: req.Description,
		Source:      "payment_link_onedash",
		Customer:    req.Customer,
	}

	data, err := c.do(ctx, http.MethodPost, "/payment-links", nil, body, false)
	if err != nil {
		return nil, err
	}

	var link PaymentLink
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, NewUpstreamError(http.StatusOK, string(data))
	}
	if link.LinkURL == "" {
		return nil, NewUpstreamError(http.StatusOK, string(data))
	}
	if link.Amount == 0 {
		link.Amount = req.Amount
	}
	return &link, nil
}

// GetInvoice fetches an invoice and its associated transactions. A zero
// query uses a 30-day window with the first ten transactions, oldest first.
func (c *Client) GetInvoice(ctx context.Context, invoiceID string, q InvoiceQuery) (*Invoice, error) {
	if invoiceID == "" {
		return nil, NewValidationError("invoice_id is required")
	}
	applyInvoiceDefaults(&q)

	query := url.Values{
		"dateFrom":   {q.DateFrom},
		"dateTo":     {q.DateTo},
		"pageOffset": {strconv.Itoa(q.PageOffset)},
		"pageSize":   {strconv.Itoa(q.PageSize)},
		"order":      {q.Order},
	}

	data, err := c.do(ctx, http.MethodGet, "/payment-links/"+url.PathEscape(invoiceID)+"/txns", query, nil, false)
	if err != nil {
		return nil, err
	}

	var body invoiceBody
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, NewUpstreamError(http.StatusOK, string(data))
	}

	inv := &Invoice{
		InvoiceID:    body.InvoiceID,
		Amount:       body.Amount,
		Status:       body.Status,
		Transactions: normalizeTransactionRefs(body.Transactions),
	}
	if inv.InvoiceID == "" {
		inv.InvoiceID = invoiceID
	}
	return inv, nil
}

// GetTransaction fetches a single transaction by its PayU id.
func (c *Client) GetTransaction(ctx context.Context, transactionID string) (*Transaction, error) {
	if transactionID == "" {
		return nil, NewValidationError("transaction_id is required")
	}

	data, err := c.do(ctx, http.MethodGet, "/transactions/"+url.PathEscape(transactionID), nil, nil, false)
	if err != nil {
		return nil, err
	}

	var txn Transaction
	if err := json.Unmarshal(data, &txn); err != nil {
		return nil, NewUpstreamError(http.StatusOK, string(data))
	}
	if txn.TransactionID == "" {
		return nil, NewUpstreamError(http.StatusOK, string(data))
	}
	return &txn, nil
}

// SearchCustomers looks up saved customers by free text (name, email or
// phone fragment).
func (c *Client) SearchCustomers(ctx context.Context, searchText string) ([]Customer, error) {
	if searchText == "" {
		return nil, NewValidationError("search text is required")
	}

	query := url.Values{"searchText": {searchText}}
	data, err := c.do(ctx, http.MethodGet, "/invoice/customer/customers", query, nil, false)
	if err != nil {
		return nil, err
	}

	var body customerSearchBody
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, NewUpstreamError(http.StatusOK, string(data))
	}
	return body.Customers, nil
}

// SearchRefunds pages through refunds in a date range, optionally filtered
// by status. Uses the pre-issued direct token.
func (c *Client) SearchRefunds(ctx context.Context, q RefundQuery) (*RefundPage, error) {
	if q.DateFrom == "" || q.DateTo == "" {
		return nil, NewValidationError("date_from and date_to are required")
	}
	if q.PageSize <= 0 {
		q.PageSize = 10
	}

	query := url.Values{
		"dateFrom":   {q.DateFrom},
		"dateTo":     {q.DateTo},
		"pageOffset": {strconv.Itoa(q.PageOffset)},
		"pageSize":   {strconv.Itoa(q.PageSize)},
	}
	if q.Status != "" {
		query.Set("status", q.Status)
	}

	data, err := c.do(ctx, http.MethodGet, "/refund/v1/onepayu/search", query, nil, true)
	if err != nil {
		return nil, err
	}

	var page RefundPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, NewUpstreamError(http.StatusOK, string(data))
	}
	return &page, nil
}

// RefundsSummary aggregates refunds over a date range. Uses the direct token.
func (c *Client) RefundsSummary(ctx context.Context, dateFrom, dateTo, status string) (*RefundsSummary, error) {
	if dateFrom == "" || dateTo == "" {
		return nil, NewValidationError("date_from and date_to are required")
	}

	query := url.Values{"dateFrom": {dateFrom}, "dateTo": {dateTo}}
	if status != "" {
		query.Set("status", status)
	}

	data, err := c.do(ctx, http.MethodGet, "/refunds/summary/", query, nil, true)
	if err != nil {
		return nil, err
	}

	var summary RefundsSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, NewUpstreamError(http.StatusOK, string(data))
	}
	return &summary, nil
}

// GetSettlement fetches settlement details. Uses the direct token.
func (c *Client) GetSettlement(ctx context.Context, q SettlementQuery) (*Settlement, error) {
	if q.SettlementID == "" {
		return nil, NewValidationError("settlement_id is required")
	}
	if q.Status == "" {
		q.Status = "inprogress"
	}

	query := url.Values{
		"settlementId": {q.SettlementID},
		"utr":          {q.UTR},
		"status":       {q.Status},
		"tid":          {q.TID},
	}

	data, err := c.do(ctx, http.MethodGet, "/settlements/details", query, nil, true)
	if err != nil {
		return nil, err
	}

	var s Settlement
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, NewUpstreamError(http.StatusOK, string(data))
	}
	return &s, nil
}

// do runs the shared request algorithm and returns the raw 2xx body.
//
// direct selects the pre-issued AuthToken instead of the client-credentials
// token source; the 401 re-auth retry only applies to the latter, since a
// static token cannot be refreshed.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload interface{}, direct bool) ([]byte, error) {
	var encoded []byte
	if payload != nil {
		var err error
		if encoded, err = json.Marshal(payload); err != nil {
			return nil, NewValidationError("encoding request body: " + err.Error())
		}
	}

	requestID := uuid.NewString()
	log := c.logger.WithFields(logrus.Fields{
		"method":     method,
		"path":       path,
		"request_id": requestID,
	})

	reauthed := false
	retries := 0
	for {
		token, err := c.bearerToken(ctx, direct)
		if err != nil {
			return nil, err
		}

		status, body, err := c.attempt(ctx, method, path, query, encoded, token, requestID)
		if err != nil {
			if retries < c.retry.MaxRetries && c.retry.Retryable(0, err) {
				log.WithError(err).Warn("request failed, retrying")
				if werr := c.retry.wait(ctx, retries); werr != nil {
					return nil, NewNetworkError(werr)
				}
				retries++
				continue
			}
			return nil, NewNetworkError(err)
		}

		switch {
		case status >= 200 && status < 300:
			return body, nil

		case status == http.StatusUnauthorized:
			if !direct && !reauthed {
				// The token was revoked mid-session. Drop it and retry once
				// with a fresh grant.
				log.Warn("token rejected, re-authenticating")
				c.tokens.Invalidate(token)
				reauthed = true
				continue
			}
			return nil, &Error{
				Code:       ErrCodeAuth,
				Message:    "PayU rejected the access token",
				StatusCode: status,
			}

		case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
			return nil, &Error{
				Code:       ErrCodeValidation,
				Message:    "PayU rejected the request as invalid",
				StatusCode: status,
				Details:    map[string]interface{}{"body": string(body)},
			}

		case c.retry.Retryable(status, nil):
			if retries < c.retry.MaxRetries {
				log.WithField("status", status).Warn("upstream failure, retrying")
				if werr := c.retry.wait(ctx, retries); werr != nil {
					return nil, NewNetworkError(werr)
				}
				retries++
				continue
			}
			return nil, NewUpstreamError(status, string(body))

		default:
			return nil, NewUpstreamError(status, string(body))
		}
	}
}

// attempt performs one HTTP round trip. A non-nil error means the request
// never produced a response.
func (c *Client) attempt(ctx context.Context, method, path string, query url.Values, body []byte, token, requestID string) (int, []byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return 0, nil, err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("mid", c.creds.MerchantID)
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}

func (c *Client) bearerToken(ctx context.Context, direct bool) (string, error) {
	if direct {
		if c.creds.AuthToken == "" {
			return "", NewAuthError("no direct API token configured (set AUTH_TOKEN)")
		}
		return c.creds.AuthToken, nil
	}
	return c.tokens.Token(ctx)
}

func applyInvoiceDefaults(q *InvoiceQuery) {
	if q.DateTo == "" {
		q.DateTo = time.Now().Format("2006-01-02")
	}
	if q.DateFrom == "" {
		q.DateFrom = time.Now().AddDate(0, 0, -30).Format("2006-01-02")
	}
	if q.PageSize <= 0 {
		q.PageSize = 10
	}
	if q.Order == "" {
		q.Order = "asc"
	}
}

// normalizeTransactionRefs accepts both bare-string references and expanded
// transaction objects, preserving order.
func normalizeTransactionRefs(raw []interface{}) []TransactionRef {
	refs := make([]TransactionRef, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			refs = append(refs, TransactionRef{TransactionID: v})
		case map[string]interface{}:
			var ref TransactionRef
			if data, err := json.Marshal(v); err == nil {
				if err := json.Unmarshal(data, &ref); err == nil && ref.TransactionID != "" {
					refs = append(refs, ref)
				}
			}
		}
	}
	return refs
}
