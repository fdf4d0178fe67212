package provider

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrGateway         = errors.New("payment gateway error")
	ErrInvalidArgument = errors.New("invalid argument")
)

type InvoiceInput struct {
	CustomerName   string
	CustomerEmail  string
	CustomerMobile string
	Description    string

	Amount   int64
	Currency string
	Plan     string

	// CorrelationID is round-tripped by the gateway through the return URLs.
	CorrelationID string
	RedirectURL   string
}

type InvoiceResult struct {
	ID         string
	PaymentURL string
	Raw        json.RawMessage
}

// StatusResult keeps the fields we rely on next to the raw provider payload.
// The provider vocabulary is untyped, so only ClassifySuccess interprets it.
type StatusResult struct {
	Success bool
	Message string

	ID       string
	Status   string
	Amount   int64
	Currency string

	Raw json.RawMessage
}

func (r *StatusResult) Paid() bool {
	return ClassifySuccess(r)
}

// ClassifySuccess fails closed: anything other than an explicit success flag
// with a paid/completed/success status counts as not paid.
func ClassifySuccess(r *StatusResult) bool {
	if r == nil || !r.Success {
		return false
	}
	switch strings.ToLower(r.Status) {
	case "paid", "completed", "success":
		return true
	default:
		return false
	}
}

// IsFinalFailure reports whether the gateway explicitly closed the payment
// without collecting it. Statuses such as unpaid or pending are still open.
func IsFinalFailure(r *StatusResult) bool {
	if r == nil || !r.Success {
		return false
	}
	switch strings.ToLower(r.Status) {
	case "failed", "expired", "cancelled", "canceled":
		return true
	default:
		return false
	}
}

type Gateway interface {
	Name() string
	CreateInvoice(ctx context.Context, input *InvoiceInput) (*InvoiceResult, error)
	FetchTransactionStatus(ctx context.Context, providerTransactionID string) (*StatusResult, error)
	FetchByInvoiceOrTransactionID(ctx context.Context, invoiceID, transactionID string) (*StatusResult, error)
}
