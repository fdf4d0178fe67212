package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

// RunReconcileBatch re-verifies pending transactions that have a provider
// reference and have not been touched for ReconcileStaleAfter. Invoices the
// gateway still reports as open stay pending until InvoiceExpiry has passed.
func (s *BillingService) RunReconcileBatch(ctx context.Context) error {
	now := s.now()
	before := now.Add(-s.paymentsCfg.ReconcileStaleAfter)
	expiredBefore := now.Add(-s.invoiceExpiry())
	items, err := s.txRepo.ListPendingForReconcile(ctx, before, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, tx := range items {
		if tx == nil || tx.ProviderReference() == "" {
			continue
		}
		mode := settleFinalOnly
		if !tx.CreatedAt.After(expiredBefore) {
			mode = settleFailClosed
		}
		if _, err := s.verify(ctx, tx.ID, mode); err != nil {
			if errors.Is(err, ErrVerificationInProgress) {
				continue
			}
			firstErr = keepFirstErr(firstErr, fmt.Errorf("transaction %s: %w", tx.ID, err))
		}
	}

	return firstErr
}

// RunExpirePendingBatch fails pending transactions that never received an
// invoice id within PendingTimeout.
func (s *BillingService) RunExpirePendingBatch(ctx context.Context) error {
	now := s.now()
	cutoff := now.Add(-s.paymentsCfg.PendingTimeout)
	items, err := s.txRepo.ListStalePendingWithoutInvoice(ctx, cutoff, s.batchSize())
	if err != nil {
		return err
	}

	var firstErr error
	for _, tx := range items {
		if tx == nil || tx.Status != entity.TransactionStatusPending {
			continue
		}
		if _, err := s.txRepo.TransitionFromPending(ctx, tx.ID, entity.TransactionStatusFailed, "", now); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
