package payu

// Customer identifies a payment-link recipient. At least one of Phone or
// Email must be set before a link request is transmitted.
type Customer struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// PaymentLinkRequest describes a payment link to be created.
type PaymentLinkRequest struct {
	Amount      float64  `json:"amount"`
	Currency    string   `json:"currency,omitempty"`
	Description string   `json:"description"`
	Customer    Customer `json:"customer"`
}

// Validate checks the request before any HTTP traffic happens.
func (r PaymentLinkRequest) Validate() error {
	if r.Amount <= 0 {
		return NewValidationError("amount must be positive")
	}
	if r.Description == "" {
		return NewValidationError("description is required")
	}
	if r.Customer.Phone == "" && r.Customer.Email == "" {
		return NewValidationError("at least one of phone or email is required")
	}
	return nil
}

// paymentLinkBody is the wire shape of the create request.
type paymentLinkBody struct {
	ViaSMS      bool     `json:"viaSms"`
	ViaEmail    bool     `json:"viaEmail"`
	SubAmount   float64  `json:"subAmount"`
	Description string   `json:"description"`
	Source      string   `json:"source"`
	Customer    Customer `json:"customer"`
}

// PaymentLink is the immutable result of a create call.
type PaymentLink struct {
	LinkURL     string  `json:"link_url"`
	LinkID      string  `json:"link_id"`
	Status      string  `json:"status"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
}

// TransactionRef is one transaction associated with an invoice, in the
// order the API returned it.
type TransactionRef struct {
	TransactionID string  `json:"transaction_id"`
	Date          string  `json:"date,omitempty"`
	Amount        float64 `json:"amount,omitempty"`
	Status        string  `json:"status,omitempty"`
	ReferenceID   string  `json:"reference_id,omitempty"`
	Mode          string  `json:"mode,omitempty"`
}

// Invoice is an immutable invoice snapshot including its associated
// transaction references.
type Invoice struct {
	InvoiceID    string           `json:"invoice_id"`
	Amount       float64          `json:"amount"`
	Status       string           `json:"status"`
	Transactions []TransactionRef `json:"transactions"`
}

// invoiceBody tolerates both the bare-reference and expanded transaction
// shapes the API emits.
type invoiceBody struct {
	InvoiceID    string        `json:"invoice_id"`
	Amount       float64       `json:"amount"`
	Status       string        `json:"status"`
	Transactions []interface{} `json:"transactions"`
}

// InvoiceQuery bounds the transaction listing attached to an invoice.
type InvoiceQuery struct {
	DateFrom   string
	DateTo     string
	PageOffset int
	PageSize   int
	Order      string
}

// Transaction is an immutable transaction snapshot.
type Transaction struct {
	TransactionID     string  `json:"transaction_id"`
	Amount            float64 `json:"amount"`
	Status            string  `json:"status"`
	Timestamp         string  `json:"timestamp"`
	PaymentMethod     string  `json:"payment_method"`
	MerchantReference string  `json:"merchant_reference,omitempty"`
	ProductInfo       string  `json:"product_info,omitempty"`
}

// customerSearchBody is the customer search response shape.
type customerSearchBody struct {
	TotalCustomers int        `json:"total_customers"`
	Customers      []Customer `json:"customers"`
}

// RefundQuery bounds a refund search.
type RefundQuery struct {
	DateFrom   string
	DateTo     string
	PageOffset int
	PageSize   int
	Status     string
}

// RefundPage is a page of refund records, kept raw-normalized: the refund
// search surface is pass-through for the agent.
type RefundPage struct {
	Total   int                      `json:"total"`
	Refunds []map[string]interface{} `json:"refunds"`
}

// RefundsSummary aggregates refunds over a date range.
type RefundsSummary struct {
	Total   int                    `json:"total"`
	Amount  float64                `json:"amount"`
	Buckets map[string]interface{} `json:"buckets,omitempty"`
}

// SettlementQuery identifies a settlement lookup.
type SettlementQuery struct {
	SettlementID string
	UTR          string
	Status       string
	TID          string
}

// Settlement is an immutable settlement snapshot.
type Settlement struct {
	SettlementID string                   `json:"settlement_id"`
	UTR          string                   `json:"utr,omitempty"`
	Status       string                   `json:"status"`
	Amount       float64                  `json:"amount,omitempty"`
	Transactions []map[string]interface{} `json:"transactions,omitempty"`
}

// tokenResponse is the OAuth token endpoint payload.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}
