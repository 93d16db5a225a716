// Package tools exposes the PayU API as MCP tools: argument validation,
// delegation to the API client, and shaping of results into the protocol's
// response format.
package tools

import (
	"context"
	"encoding/json"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/payu-labs/payu-mcp-server/internal/payu"
)

// PaymentAPI is the subset of the PayU client the tool handlers use.
type PaymentAPI interface {
	CreatePaymentLink(ctx context.Context, req payu.PaymentLinkRequest) (*payu.PaymentLink, error)
	GetInvoice(ctx context.Context, invoiceID string, q payu.InvoiceQuery) (*payu.Invoice, error)
	GetTransaction(ctx context.Context, transactionID string) (*payu.Transaction, error)
	SearchCustomers(ctx context.Context, searchText string) ([]payu.Customer, error)
	SearchRefunds(ctx context.Context, q payu.RefundQuery) (*payu.RefundPage, error)
	RefundsSummary(ctx context.Context, dateFrom, dateTo, status string) (*payu.RefundsSummary, error)
	GetSettlement(ctx context.Context, q payu.SettlementQuery) (*payu.Settlement, error)
}

// Handler is the signature for tool handlers. A returned error is mapped to
// a structured tool-result error by the registry; handlers normally encode
// failures into the Result themselves.
type Handler func(ctx context.Context, args map[string]interface{}) (Result, error)

// Registry wires the PayU tool set onto an MCP server.
type Registry struct {
	api    PaymentAPI
	logger *logrus.Entry
}

// NewRegistry creates a tool registry around the given API client.
func NewRegistry(api PaymentAPI, logger *logrus.Entry) *Registry {
	if logger == nil {
		logger = logrus.WithField("component", "tools")
	}
	return &Registry{api: api, logger: logger}
}

// Install registers every tool on the server.
func (r *Registry) Install(server *mcpsdk.Server) {
	r.add(server, "create_payment_link",
		"Create a PayU payment link and send it to a customer over SMS and/or email.",
		`{"type":"object","properties":{
			"amount":{"type":"number","description":"Payment amount, must be positive"},
			"description":{"type":"string","description":"What the payment is for"},
			"name":{"type":"string","description":"Customer name (optional)"},
			"phone":{"type":"string","description":"Customer phone in E.164 form (optional)"},
			"email":{"type":"string","description":"Customer email (optional)"}},
			"required":["amount","description"]}`,
		r.CreatePaymentLink)

	r.add(server, "invoice_details",
		"Get a PayU invoice and its associated transactions.",
		`{"type":"object","properties":{
			"invoice_id":{"type":"string","description":"Invoice ID to query"},
			"page_offset":{"type":"integer"},
			"page_size":{"type":"integer"},
			"order":{"type":"string","enum":["asc","desc"]}},
			"required":["invoice_id"]}`,
		r.InvoiceDetails)

	r.add(server, "transaction_details",
		"Get details for a single PayU transaction.",
		`{"type":"object","properties":{
			"transaction_id":{"type":"string","description":"PayU transaction ID"}},
			"required":["transaction_id"]}`,
		r.TransactionDetails)

	r.add(server, "search_refunds",
		"Search PayU refunds in a date range, optionally filtered by status.",
		`{"type":"object","properties":{
			"date_from":{"type":"string","description":"Start date, YYYY-MM-DD"},
			"date_to":{"type":"string","description":"End date, YYYY-MM-DD"},
			"page_offset":{"type":"integer"},
			"page_size":{"type":"integer"},
			"status":{"type":"string","enum":["requested","success","failure","queued","pending","user_cancelled"]}},
			"required":["date_from","date_to"]}`,
		r.SearchRefunds)

	r.add(server, "refunds_summary",
		"Get a summary of PayU refunds over a date range.",
		`{"type":"object","properties":{
			"date_from":{"type":"string","description":"Start date, YYYY-MM-DD"},
			"date_to":{"type":"string","description":"End date, YYYY-MM-DD"},
			"status":{"type":"string","enum":["requested","success","failure","queued","pending","user_cancelled"]}},
			"required":["date_from","date_to"]}`,
		r.RefundsSummary)

	r.add(server, "settlement_details",
		"Get PayU settlement details by settlement ID.",
		`{"type":"object","properties":{
			"settlement_id":{"type":"string"},
			"utr":{"type":"string","description":"UTR reference (optional)"},
			"status":{"type":"string"},
			"tid":{"type":"string","description":"Transaction ID (optional)"}},
			"required":["settlement_id"]}`,
		r.SettlementDetails)
}

// add registers one tool, adapting Handler to the SDK's handler signature.
func (r *Registry) add(server *mcpsdk.Server, name, description, schema string, handler Handler) {
	log := r.logger.WithField("tool", name)

	server.AddTool(&mcpsdk.Tool{
		Name:        name,
		Description: description,
		InputSchema: json.RawMessage(schema),
	}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		args := make(map[string]interface{})
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return toSDKResult(validationError("arguments must be a JSON object")), nil
			}
		}

		result, err := handler(ctx, args)
		if err != nil {
			log.WithError(err).Error("tool handler failed")
			result = errorResult(err)
		}
		if result.IsError {
			log.WithField("error", result.StructuredContent["code"]).Warn("tool call returned error result")
		}
		return toSDKResult(result), nil
	})
}

func toSDKResult(result Result) *mcpsdk.CallToolResult {
	content := make([]mcpsdk.Content, len(result.Content))
	for i, item := range result.Content {
		content[i] = &mcpsdk.TextContent{Text: item.Text}
	}

	out := &mcpsdk.CallToolResult{
		Content: content,
		IsError: result.IsError,
	}
	if result.StructuredContent != nil {
		out.StructuredContent = result.StructuredContent
	}
	return out
}
