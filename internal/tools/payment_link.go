package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/payu-labs/payu-mcp-server/internal/payu"
)

// CreatePaymentLink validates the tool arguments, resolving the customer
// when only a name is supplied, and creates the payment link.
//
// Recipient resolution mirrors the dashboard behavior: a valid phone or
// email short-circuits; a bare name first runs a customer search, adopting
// a single match's channels or asking the caller to disambiguate between
// several. Requests with no recipient at all fail before any HTTP traffic.
func (r *Registry) CreatePaymentLink(ctx context.Context, args map[string]interface{}) (Result, error) {
	amount, ok := floatArg(args, "amount")
	if !ok || amount <= 0 {
		return validationError("amount must be a positive number"), nil
	}

	description := strings.TrimSpace(stringArg(args, "description"))
	if description == "" {
		return validationError("description is required"), nil
	}

	name := strings.TrimSpace(stringArg(args, "name"))
	phone := strings.TrimSpace(stringArg(args, "phone"))
	email := strings.TrimSpace(stringArg(args, "email"))

	if name != "" && !namePattern.MatchString(name) {
		return validationError("invalid name format"), nil
	}
	if phone != "" && !validPhone(phone) {
		return validationError("invalid phone format, expected E.164 digits"), nil
	}
	if email != "" && !validEmail(email) {
		return validationError("invalid email format"), nil
	}

	customer := payu.Customer{Name: name, Phone: phone, Email: email}

	if phone == "" && email == "" {
		if name == "" {
			return validationError("at least one of phone or email is required"), nil
		}

		resolved, disambiguation, err := r.resolveCustomer(ctx, name)
		if err != nil {
			return errorResult(err), nil
		}
		if disambiguation != nil {
			return *disambiguation, nil
		}
		customer.Phone = resolved.Phone
		customer.Email = resolved.Email
	}

	link, err := r.api.CreatePaymentLink(ctx, payu.PaymentLinkRequest{
		Amount:      amount,
		Description: description,
		Customer:    customer,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]interface{}{
		"link_url":    link.LinkURL,
		"link_id":     link.LinkID,
		"status":      link.Status,
		"amount":      link.Amount,
		"description": description,
		"name":        customer.Name,
		"phone":       maskPhone(customer.Phone),
		"email":       maskEmail(customer.Email),
	}), nil
}

// resolveCustomer looks up saved customers by name. Exactly one match is
// adopted; several matches produce a disambiguation result the AI client
// can relay; none is a validation failure.
func (r *Registry) resolveCustomer(ctx context.Context, name string) (payu.Customer, *Result, error) {
	customers, err := r.api.SearchCustomers(ctx, name)
	if err != nil {
		return payu.Customer{}, nil, err
	}

	switch len(customers) {
	case 0:
		return payu.Customer{}, nil, payu.NewValidationError(
			fmt.Sprintf("no saved customer matches %q; provide a phone or email", name))
	case 1:
		return customers[0], nil, nil
	default:
		masked := make([]map[string]interface{}, len(customers))
		for i, c := range customers {
			masked[i] = map[string]interface{}{
				"name":  c.Name,
				"phone": maskPhone(c.Phone),
				"email": maskEmail(c.Email),
			}
		}
		result := successResult(map[string]interface{}{
			"status":    "multiple_matches",
			"total":     len(customers),
			"customers": masked,
			"message": fmt.Sprintf(
				"%d customers match %q. Ask the user to pick one by phone or email; show the masked values so they can recognize them.",
				len(customers), name),
		})
		return payu.Customer{}, &result, nil
	}
}
