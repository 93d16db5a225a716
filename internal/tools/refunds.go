package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/payu-labs/payu-mcp-server/internal/payu"
)

var refundStatuses = []string{"requested", "success", "failure", "queued", "pending", "user_cancelled"}

func validRefundStatus(status string) bool {
	for _, s := range refundStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// SearchRefunds pages through refunds in a date range.
func (r *Registry) SearchRefunds(ctx context.Context, args map[string]interface{}) (Result, error) {
	dateFrom := stringArg(args, "date_from")
	dateTo := stringArg(args, "date_to")
	if dateFrom == "" || dateTo == "" {
		return validationError("date_from and date_to are required"), nil
	}

	status := stringArg(args, "status")
	if status != "" && !validRefundStatus(status) {
		return validationError(fmt.Sprintf(
			"invalid status %q, valid statuses are: %s", status, strings.Join(refundStatuses, ", "))), nil
	}

	page, err := r.api.SearchRefunds(ctx, payu.RefundQuery{
		DateFrom:   dateFrom,
		DateTo:     dateTo,
		PageOffset: intArg(args, "page_offset", 0),
		PageSize:   intArg(args, "page_size", 10),
		Status:     status,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(page), nil
}

// RefundsSummary aggregates refunds over a date range.
func (r *Registry) RefundsSummary(ctx context.Context, args map[string]interface{}) (Result, error) {
	dateFrom := stringArg(args, "date_from")
	dateTo := stringArg(args, "date_to")
	if dateFrom == "" || dateTo == "" {
		return validationError("date_from and date_to are required"), nil
	}

	status := stringArg(args, "status")
	if status != "" && !validRefundStatus(status) {
		return validationError(fmt.Sprintf(
			"invalid status %q, valid statuses are: %s", status, strings.Join(refundStatuses, ", "))), nil
	}

	summary, err := r.api.RefundsSummary(ctx, dateFrom, dateTo, status)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(summary), nil
}

// SettlementDetails fetches settlement details by settlement ID.
func (r *Registry) SettlementDetails(ctx context.Context, args map[string]interface{}) (Result, error) {
	settlementID := stringArg(args, "settlement_id")
	if !validID(settlementID) {
		return validationError("invalid settlement ID format"), nil
	}

	settlement, err := r.api.GetSettlement(ctx, payu.SettlementQuery{
		SettlementID: settlementID,
		UTR:          stringArg(args, "utr"),
		Status:       stringArg(args, "status"),
		TID:          stringArg(args, "tid"),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(settlement), nil
}
