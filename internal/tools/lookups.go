package tools

import (
	"context"
	"net/url"

	"github.com/payu-labs/payu-mcp-server/internal/payu"
)

// InvoiceDetails returns an invoice and its associated transactions.
func (r *Registry) InvoiceDetails(ctx context.Context, args map[string]interface{}) (Result, error) {
	invoiceID := stringArg(args, "invoice_id")
	if !validID(invoiceID) {
		return validationError("invalid invoice ID format"), nil
	}

	order := stringArg(args, "order")
	if order != "" && order != "asc" && order != "desc" {
		return validationError(`order must be "asc" or "desc"`), nil
	}

	invoice, err := r.api.GetInvoice(ctx, invoiceID, payu.InvoiceQuery{
		PageOffset: intArg(args, "page_offset", 0),
		PageSize:   intArg(args, "page_size", 10),
		Order:      order,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]interface{}{
		"invoice_id":   invoice.InvoiceID,
		"amount":       invoice.Amount,
		"status":       invoice.Status,
		"transactions": invoice.Transactions,
		"view_more_link": "https://payu.in/business/payment-links/" +
			url.PathEscape(invoice.InvoiceID),
	}), nil
}

// TransactionDetails returns a single transaction snapshot.
func (r *Registry) TransactionDetails(ctx context.Context, args map[string]interface{}) (Result, error) {
	transactionID := stringArg(args, "transaction_id")
	if !validID(transactionID) {
		return validationError("invalid transaction ID format"), nil
	}

	txn, err := r.api.GetTransaction(ctx, transactionID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(txn), nil
}
