package entity

import "time"

const (
	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
	TransactionStatusRefunded  = "refunded"
)

type Transaction struct {
	ID     string
	UserID string

	// Whole currency units, as the gateway expects them.
	Amount   int64
	Currency string
	Plan     string
	Status   string

	ProviderInvoiceID     *string
	ProviderTransactionID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTerminal reports whether no further verification can change the status.
func (t *Transaction) IsTerminal() bool {
	switch t.Status {
	case TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusRefunded:
		return true
	default:
		return false
	}
}

// ProviderReference returns the identifier used to query the gateway.
// A recorded provider transaction id wins over the invoice id.
func (t *Transaction) ProviderReference() string {
	if t.ProviderTransactionID != nil && *t.ProviderTransactionID != "" {
		return *t.ProviderTransactionID
	}
	if t.ProviderInvoiceID != nil && *t.ProviderInvoiceID != "" {
		return *t.ProviderInvoiceID
	}
	return ""
}
