package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-billing/app/auth"
	"github.com/vibast-solutions/ms-go-billing/app/entity"
	"github.com/vibast-solutions/ms-go-billing/app/lock"
	"github.com/vibast-solutions/ms-go-billing/app/metrics"
	"github.com/vibast-solutions/ms-go-billing/app/notification"
	"github.com/vibast-solutions/ms-go-billing/app/provider"
)

const (
	messageAlreadyVerified = "Payment already verified"
	messageVerified        = "Payment verified successfully"
	messageFailed          = "Payment verification failed"
	messageStillOpen       = "Payment not completed yet"
)

// settleMode decides what a non-paid gateway status does to a pending
// transaction.
type settleMode int

const (
	// settleFailClosed fails every status that is not a definitive success.
	settleFailClosed settleMode = iota
	// settleFinalOnly leaves open invoices pending and only fails explicit
	// failed, expired or cancelled statuses.
	settleFinalOnly
)

type PurchaseResult struct {
	TransactionID string
	PaymentURL    string
}

type VerifyResult struct {
	Success bool
	Status  string
	Message string
}

// CreatePaymentTransaction records a pending transaction and opens an invoice
// for it. The transaction is stored before the gateway is called, so a
// gateway failure leaves it pending without a provider id.
func (s *BillingService) CreatePaymentTransaction(ctx context.Context, principal *auth.Principal, plan string) (*PurchaseResult, error) {
	if !principal.Valid() {
		return nil, ErrUnauthorized
	}
	plan = normalizePlan(plan)
	amount, ok := PlanPrice(plan)
	if !ok {
		return nil, ErrInvalidPlan
	}

	user, err := s.userRepo.FindByEmail(ctx, principal.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	now := s.now()
	tx := &entity.Transaction{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Amount:    amount,
		Currency:  s.paymentsCfg.Currency,
		Plan:      plan,
		Status:    entity.TransactionStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.txRepo.Create(ctx, tx); err != nil {
		return nil, err
	}

	invoice, err := s.gateway.CreateInvoice(ctx, &provider.InvoiceInput{
		CustomerName:  user.Name,
		CustomerEmail: user.Email,
		Description:   strings.ToUpper(plan),
		Amount:        amount,
		Currency:      tx.Currency,
		Plan:          plan,
		CorrelationID: tx.ID,
		RedirectURL:   s.redirectTarget(),
	})
	if err != nil {
		metrics.IncPaymentInitiated(plan, "gateway_error")
		return nil, gatewayError(err)
	}

	if err := s.txRepo.AttachInvoice(ctx, tx.ID, invoice.ID, s.now()); err != nil {
		return nil, err
	}
	metrics.IncPaymentInitiated(plan, "created")

	return &PurchaseResult{TransactionID: tx.ID, PaymentURL: invoice.PaymentURL}, nil
}

// VerifyPayment settles a pending transaction against the gateway. Terminal
// transactions return their stored outcome without a gateway call.
func (s *BillingService) VerifyPayment(ctx context.Context, transactionID string) (*VerifyResult, error) {
	return s.verify(ctx, transactionID, settleFailClosed)
}

func (s *BillingService) verify(ctx context.Context, transactionID string, mode settleMode) (*VerifyResult, error) {
	started := time.Now()
	id := strings.TrimSpace(transactionID)
	if id == "" {
		return nil, ErrInvalidArgument
	}

	tx, err := s.txRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrTransactionNotFound
	}
	if tx.IsTerminal() {
		metrics.ObservePaymentVerification("already_"+tx.Status, time.Since(started))
		return storedResult(tx), nil
	}

	user, err := s.userRepo.FindByID(ctx, tx.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	reference := tx.ProviderReference()
	if reference == "" {
		return nil, fmt.Errorf("%w: transaction has no provider reference", ErrInvalidState)
	}

	release, err := s.acquire(ctx, tx.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	status, err := s.gateway.FetchByInvoiceOrTransactionID(ctx, stringValue(tx.ProviderInvoiceID), stringValue(tx.ProviderTransactionID))
	if err != nil {
		metrics.ObservePaymentVerification("error", time.Since(started))
		return nil, gatewayError(err)
	}

	paid := provider.ClassifySuccess(status)
	if !paid && mode == settleFinalOnly && !provider.IsFinalFailure(status) {
		metrics.ObservePaymentVerification("open", time.Since(started))
		return &VerifyResult{Success: false, Status: entity.TransactionStatusPending, Message: messageStillOpen}, nil
	}
	newStatus := entity.TransactionStatusFailed
	if paid {
		newStatus = entity.TransactionStatusCompleted
	}

	now := s.now()
	applied, err := s.txRepo.TransitionFromPending(ctx, tx.ID, newStatus, reference, now)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Settled concurrently; report what the winner stored.
		current, err := s.txRepo.FindByID(ctx, tx.ID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, ErrTransactionNotFound
		}
		if !current.IsTerminal() {
			return nil, fmt.Errorf("%w: transaction status %q", ErrInvalidState, current.Status)
		}
		metrics.ObservePaymentVerification("lost_race", time.Since(started))
		return storedResult(current), nil
	}

	tx.Status = newStatus
	tx.ProviderTransactionID = &reference
	tx.UpdatedAt = now

	if paid {
		if _, err := s.subRepo.ActivatePlan(ctx, tx.UserID, tx.Plan, now, s.periodEnd(now)); err != nil {
			return nil, err
		}
		metrics.AddPaymentRevenue(tx.Currency, tx.Amount)
	}

	s.notifyOutcome(ctx, user, tx, paid)
	metrics.ObservePaymentVerification(newStatus, time.Since(started))

	if paid {
		return &VerifyResult{Success: true, Status: newStatus, Message: messageVerified}, nil
	}
	return &VerifyResult{Success: false, Status: newStatus, Message: messageFailed}, nil
}

// acquire takes the per-transaction verification lock. A lock backend error
// is logged and verification continues; the conditional status update still
// decides the winner.
func (s *BillingService) acquire(ctx context.Context, transactionID string) (func(), error) {
	key := "verify:" + transactionID
	token, err := s.locker.TryLock(ctx, key, s.lockTTL)
	if errors.Is(err, lock.ErrLockHeld) {
		return nil, ErrVerificationInProgress
	}
	if err != nil {
		s.logger.WithError(err).WithField("transaction_id", transactionID).Warn("verification lock unavailable")
		return func() {}, nil
	}

	return func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			s.logger.WithError(err).WithField("transaction_id", transactionID).Warn("verification unlock failed")
		}
	}, nil
}

func (s *BillingService) notifyOutcome(ctx context.Context, user *entity.User, tx *entity.Transaction, paid bool) {
	kind := "failure"
	if paid {
		kind = "success"
	}
	logger := s.logger.WithFields(logrus.Fields{
		"transaction_id": tx.ID,
		"kind":           kind,
	})

	subject, html, err := notification.RenderPaymentEmail(paid, notification.PaymentEmail{
		Name:          user.Name,
		Plan:          tx.Plan,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		TransactionID: tx.ID,
		GatewayID:     stringValue(tx.ProviderTransactionID),
	})
	if err != nil {
		metrics.IncNotification(kind, "error")
		logger.WithError(err).Error("payment email render failed")
		return
	}

	if err := s.sender.Send(ctx, user.Email, subject, html); err != nil {
		metrics.IncNotification(kind, "error")
		logger.WithError(err).Warn("payment email not delivered")
		return
	}
	metrics.IncNotification(kind, "sent")
}

func storedResult(tx *entity.Transaction) *VerifyResult {
	switch tx.Status {
	case entity.TransactionStatusCompleted:
		return &VerifyResult{Success: true, Status: tx.Status, Message: messageAlreadyVerified}
	default:
		return &VerifyResult{Success: false, Status: tx.Status, Message: messageFailed}
	}
}

func gatewayError(err error) error {
	if errors.Is(err, provider.ErrInvalidArgument) {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if errors.Is(err, provider.ErrGateway) {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	return err
}

func stringValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
