package service

import (
	"context"
	"strings"
)

// VerifyPaymentFromCallback resolves the transaction bound to a provider
// invoice and verifies it exactly as VerifyPayment would.
func (s *BillingService) VerifyPaymentFromCallback(ctx context.Context, providerInvoiceID string) (*VerifyResult, error) {
	invoiceID := strings.TrimSpace(providerInvoiceID)
	if invoiceID == "" {
		return nil, ErrInvalidArgument
	}

	tx, err := s.txRepo.FindByProviderInvoiceID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrTransactionNotFound
	}

	return s.VerifyPayment(ctx, tx.ID)
}
