package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-billing/app/entity"
	"github.com/vibast-solutions/ms-go-billing/app/factory"
	"github.com/vibast-solutions/ms-go-billing/app/notification"
	"github.com/vibast-solutions/ms-go-billing/app/provider"
	"github.com/vibast-solutions/ms-go-billing/config"
)

const (
	defaultBatchSize  = int32(100)
	defaultPeriodDays = 30
	defaultLockTTL    = 30 * time.Second
	defaultInvoiceTTL = 24 * time.Hour
	billingPagePath   = "/settings/account?tab=billing"
)

type transactionRepository interface {
	Create(ctx context.Context, tx *entity.Transaction) error
	AttachInvoice(ctx context.Context, id, invoiceID string, updatedAt time.Time) error
	TransitionFromPending(ctx context.Context, id, status, providerTransactionID string, updatedAt time.Time) (bool, error)
	FindByID(ctx context.Context, id string) (*entity.Transaction, error)
	FindByProviderInvoiceID(ctx context.Context, invoiceID string) (*entity.Transaction, error)
	ListByUser(ctx context.Context, userID string) ([]*entity.Transaction, error)
	ListPendingForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.Transaction, error)
	ListStalePendingWithoutInvoice(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Transaction, error)
}

type subscriptionRepository interface {
	Create(ctx context.Context, sub *entity.Subscription) error
	ActivatePlan(ctx context.Context, userID, plan string, now, periodEnd time.Time) (*entity.Subscription, error)
	SetCancelAtPeriodEnd(ctx context.Context, userID string, cancel bool, updatedAt time.Time) error
	FindByUserID(ctx context.Context, userID string) (*entity.Subscription, error)
	ListByUserIDs(ctx context.Context, userIDs []string) ([]*entity.Subscription, error)
}

type userRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	List(ctx context.Context, limit, offset int32) ([]*entity.User, error)
}

type adminActionRepository interface {
	Create(ctx context.Context, action *entity.AdminAction) error
	ListRecent(ctx context.Context, limit int32) ([]*entity.AdminAction, error)
}

type locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, key, token string) error
}

type BillingService struct {
	txRepo      transactionRepository
	subRepo     subscriptionRepository
	userRepo    userRepository
	adminRepo   adminActionRepository
	gateway     provider.Gateway
	sender      notification.Sender
	locker      locker
	paymentsCfg config.PaymentsConfig
	publicURL   string
	lockTTL     time.Duration
	logger      logrus.FieldLogger
	now         func() time.Time
}

func NewBillingService(
	txRepo transactionRepository,
	subRepo subscriptionRepository,
	userRepo userRepository,
	adminRepo adminActionRepository,
	gateway provider.Gateway,
	sender notification.Sender,
	locker locker,
	paymentsCfg config.PaymentsConfig,
	publicURL string,
	lockTTL time.Duration,
) *BillingService {
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	if strings.TrimSpace(paymentsCfg.Currency) == "" {
		paymentsCfg.Currency = "IDR"
	}

	return &BillingService{
		txRepo:      txRepo,
		subRepo:     subRepo,
		userRepo:    userRepo,
		adminRepo:   adminRepo,
		gateway:     gateway,
		sender:      sender,
		locker:      locker,
		paymentsCfg: paymentsCfg,
		publicURL:   strings.TrimRight(strings.TrimSpace(publicURL), "/"),
		lockTTL:     lockTTL,
		logger:      factory.NewModuleLogger("billing_service"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *BillingService) batchSize() int32 {
	if s.paymentsCfg.JobBatchSize > 0 {
		return s.paymentsCfg.JobBatchSize
	}
	return defaultBatchSize
}

func (s *BillingService) invoiceExpiry() time.Duration {
	if s.paymentsCfg.InvoiceExpiry > 0 {
		return s.paymentsCfg.InvoiceExpiry
	}
	return defaultInvoiceTTL
}

func (s *BillingService) periodEnd(from time.Time) time.Time {
	days := s.paymentsCfg.SubscriptionPeriodDays
	if days <= 0 {
		days = defaultPeriodDays
	}
	return from.AddDate(0, 0, days)
}

func (s *BillingService) redirectTarget() string {
	return s.publicURL + billingPagePath
}
