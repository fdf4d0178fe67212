package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-billing/app/entity"
	"github.com/vibast-solutions/ms-go-billing/app/lock"
	"github.com/vibast-solutions/ms-go-billing/app/provider"
	"github.com/vibast-solutions/ms-go-billing/app/repository"
	"github.com/vibast-solutions/ms-go-billing/config"
)

type fakeTxRepo struct {
	mu    sync.Mutex
	items map[string]*entity.Transaction
}

func newFakeTxRepo() *fakeTxRepo {
	return &fakeTxRepo{items: map[string]*entity.Transaction{}}
}

func copyTx(tx *entity.Transaction) *entity.Transaction {
	c := *tx
	if tx.ProviderInvoiceID != nil {
		v := *tx.ProviderInvoiceID
		c.ProviderInvoiceID = &v
	}
	if tx.ProviderTransactionID != nil {
		v := *tx.ProviderTransactionID
		c.ProviderTransactionID = &v
	}
	return &c
}

func (r *fakeTxRepo) Create(_ context.Context, tx *entity.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[tx.ID]; ok {
		return repository.ErrTransactionAlreadyExists
	}
	r.items[tx.ID] = copyTx(tx)
	return nil
}

func (r *fakeTxRepo) AttachInvoice(_ context.Context, id, invoiceID string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return repository.ErrTransactionNotFound
	}
	item.ProviderInvoiceID = &invoiceID
	item.UpdatedAt = updatedAt
	return nil
}

func (r *fakeTxRepo) TransitionFromPending(_ context.Context, id, status, providerTransactionID string, updatedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok || item.Status != entity.TransactionStatusPending {
		return false, nil
	}
	item.Status = status
	if providerTransactionID != "" {
		item.ProviderTransactionID = &providerTransactionID
	}
	item.UpdatedAt = updatedAt
	return true, nil
}

func (r *fakeTxRepo) FindByID(_ context.Context, id string) (*entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return copyTx(item), nil
}

func (r *fakeTxRepo) FindByProviderInvoiceID(_ context.Context, invoiceID string) (*entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		if item.ProviderInvoiceID != nil && *item.ProviderInvoiceID == invoiceID {
			return copyTx(item), nil
		}
	}
	return nil, nil
}

func (r *fakeTxRepo) ListByUser(_ context.Context, userID string) ([]*entity.Transaction, error) {
	return r.filter(func(tx *entity.Transaction) bool { return tx.UserID == userID }, 0), nil
}

func (r *fakeTxRepo) ListPendingForReconcile(_ context.Context, before time.Time, limit int32) ([]*entity.Transaction, error) {
	return r.filter(func(tx *entity.Transaction) bool {
		return tx.Status == entity.TransactionStatusPending && tx.ProviderReference() != "" && tx.UpdatedAt.Before(before)
	}, limit), nil
}

func (r *fakeTxRepo) ListStalePendingWithoutInvoice(_ context.Context, cutoff time.Time, limit int32) ([]*entity.Transaction, error) {
	return r.filter(func(tx *entity.Transaction) bool {
		return tx.Status == entity.TransactionStatusPending && tx.ProviderInvoiceID == nil && tx.CreatedAt.Before(cutoff)
	}, limit), nil
}

func (r *fakeTxRepo) filter(keep func(*entity.Transaction) bool, limit int32) []*entity.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Transaction, 0)
	for _, item := range r.items {
		if keep(item) {
			out = append(out, copyTx(item))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && int(limit) < len(out) {
		out = out[:limit]
	}
	return out
}

func (r *fakeTxRepo) only() *entity.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, item := range r.items {
		return copyTx(item)
	}
	return nil
}

func (r *fakeTxRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

type fakeSubRepo struct {
	items       map[string]*entity.Subscription
	activateErr error
	activations int
}

func newFakeSubRepo() *fakeSubRepo {
	return &fakeSubRepo{items: map[string]*entity.Subscription{}}
}

func (r *fakeSubRepo) Create(_ context.Context, sub *entity.Subscription) error {
	if _, ok := r.items[sub.UserID]; ok {
		return repository.ErrSubscriptionAlreadyExists
	}
	c := *sub
	r.items[sub.UserID] = &c
	return nil
}

func (r *fakeSubRepo) ActivatePlan(_ context.Context, userID, plan string, now, periodEnd time.Time) (*entity.Subscription, error) {
	r.activations++
	if r.activateErr != nil {
		return nil, r.activateErr
	}
	item, ok := r.items[userID]
	if !ok {
		end := periodEnd
		item = &entity.Subscription{
			ID:               uuid.NewString(),
			UserID:           userID,
			StartedAt:        now,
			CurrentPeriodEnd: &end,
		}
		r.items[userID] = item
	}
	item.Plan = plan
	item.Status = entity.SubscriptionStatusActive
	item.UpdatedAt = now
	c := *item
	return &c, nil
}

func (r *fakeSubRepo) SetCancelAtPeriodEnd(_ context.Context, userID string, cancel bool, updatedAt time.Time) error {
	item, ok := r.items[userID]
	if !ok {
		return repository.ErrSubscriptionNotFound
	}
	item.CancelAtPeriodEnd = cancel
	item.UpdatedAt = updatedAt
	return nil
}

func (r *fakeSubRepo) FindByUserID(_ context.Context, userID string) (*entity.Subscription, error) {
	item, ok := r.items[userID]
	if !ok {
		return nil, nil
	}
	c := *item
	return &c, nil
}

func (r *fakeSubRepo) ListByUserIDs(_ context.Context, userIDs []string) ([]*entity.Subscription, error) {
	out := make([]*entity.Subscription, 0)
	for _, id := range userIDs {
		if item, ok := r.items[id]; ok {
			c := *item
			out = append(out, &c)
		}
	}
	return out, nil
}

type fakeUserRepo struct {
	items     map[string]*entity.User
	lastLimit int32
}

func newFakeUserRepo(users ...*entity.User) *fakeUserRepo {
	r := &fakeUserRepo{items: map[string]*entity.User{}}
	for _, u := range users {
		c := *u
		r.items[u.ID] = &c
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user *entity.User) error {
	for _, item := range r.items {
		if item.Email == user.Email {
			return repository.ErrUserAlreadyExists
		}
	}
	c := *user
	r.items[user.ID] = &c
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*entity.User, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	c := *item
	return &c, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, item := range r.items {
		if strings.EqualFold(item.Email, email) {
			c := *item
			return &c, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) List(_ context.Context, limit, offset int32) ([]*entity.User, error) {
	r.lastLimit = limit
	all := make([]*entity.User, 0, len(r.items))
	for _, item := range r.items {
		c := *item
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	if int(offset) >= len(all) {
		return []*entity.User{}, nil
	}
	all = all[offset:]
	if int(limit) < len(all) {
		all = all[:limit]
	}
	return all, nil
}

type fakeAdminRepo struct {
	items []*entity.AdminAction
	err   error
}

func (r *fakeAdminRepo) Create(_ context.Context, action *entity.AdminAction) error {
	if r.err != nil {
		return r.err
	}
	c := *action
	r.items = append(r.items, &c)
	return nil
}

func (r *fakeAdminRepo) ListRecent(_ context.Context, limit int32) ([]*entity.AdminAction, error) {
	out := make([]*entity.AdminAction, 0, len(r.items))
	for i := len(r.items) - 1; i >= 0 && int32(len(out)) < limit; i-- {
		c := *r.items[i]
		out = append(out, &c)
	}
	return out, nil
}

type fakeGateway struct {
	mu sync.Mutex

	invoice    *provider.InvoiceResult
	invoiceErr error
	onInvoice  func(input *provider.InvoiceInput)

	status    *provider.StatusResult
	statusErr error

	invoiceInputs []*provider.InvoiceInput
	fetchCalls    [][2]string
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) CreateInvoice(_ context.Context, input *provider.InvoiceInput) (*provider.InvoiceResult, error) {
	g.mu.Lock()
	g.invoiceInputs = append(g.invoiceInputs, input)
	g.mu.Unlock()
	if g.onInvoice != nil {
		g.onInvoice(input)
	}
	if g.invoiceErr != nil {
		return nil, g.invoiceErr
	}
	return g.invoice, nil
}

func (g *fakeGateway) FetchTransactionStatus(ctx context.Context, id string) (*provider.StatusResult, error) {
	return g.FetchByInvoiceOrTransactionID(ctx, "", id)
}

func (g *fakeGateway) FetchByInvoiceOrTransactionID(_ context.Context, invoiceID, transactionID string) (*provider.StatusResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetchCalls = append(g.fetchCalls, [2]string{invoiceID, transactionID})
	if invoiceID == "" && transactionID == "" {
		return nil, provider.ErrInvalidArgument
	}
	if g.statusErr != nil {
		return nil, g.statusErr
	}
	return g.status, nil
}

func (g *fakeGateway) fetchCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.fetchCalls)
}

type sentEmail struct {
	to      string
	subject string
	html    string
}

type fakeSender struct {
	err  error
	sent []sentEmail
}

func (s *fakeSender) Send(_ context.Context, to, subject, html string) error {
	s.sent = append(s.sent, sentEmail{to: to, subject: subject, html: html})
	return s.err
}

type fakeLocker struct {
	held   map[string]bool
	err    error
	unlock int
}

func (l *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return "", lock.ErrLockHeld
	}
	l.held[key] = true
	return "token", nil
}

func (l *fakeLocker) Unlock(_ context.Context, key, _ string) error {
	delete(l.held, key)
	l.unlock++
	return nil
}

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

var testUser = &entity.User{
	ID:    "user-1",
	Email: "alice@example.com",
	Name:  "Alice",
	Role:  entity.UserRoleUser,
}

type harness struct {
	svc     *BillingService
	txRepo  *fakeTxRepo
	subRepo *fakeSubRepo
	users   *fakeUserRepo
	admin   *fakeAdminRepo
	gateway *fakeGateway
	sender  *fakeSender
	locker  *fakeLocker
}

func newHarness() *harness {
	h := &harness{
		txRepo:  newFakeTxRepo(),
		subRepo: newFakeSubRepo(),
		users:   newFakeUserRepo(testUser),
		admin:   &fakeAdminRepo{},
		gateway: &fakeGateway{},
		sender:  &fakeSender{},
		locker:  &fakeLocker{},
	}
	h.svc = NewBillingService(
		h.txRepo,
		h.subRepo,
		h.users,
		h.admin,
		h.gateway,
		h.sender,
		h.locker,
		config.PaymentsConfig{
			Currency:               "IDR",
			SubscriptionPeriodDays: 30,
			PendingTimeout:         time.Hour,
			ReconcileStaleAfter:    15 * time.Minute,
			JobBatchSize:           10,
		},
		"https://app.example.com/",
		time.Second,
	)
	h.svc.now = func() time.Time { return testNow }
	return h
}

func (h *harness) seedTx(id, status string, invoiceID, providerTxID *string, createdAt time.Time) *entity.Transaction {
	tx := &entity.Transaction{
		ID:                    id,
		UserID:                testUser.ID,
		Amount:                50000,
		Currency:              "IDR",
		Plan:                  entity.PlanPremium,
		Status:                status,
		ProviderInvoiceID:     invoiceID,
		ProviderTransactionID: providerTxID,
		CreatedAt:             createdAt,
		UpdatedAt:             createdAt,
	}
	_ = h.txRepo.Create(context.Background(), tx)
	return tx
}

func strPtr(v string) *string {
	return &v
}

func paidStatus(id string) *provider.StatusResult {
	return &provider.StatusResult{Success: true, ID: id, Status: "paid", Amount: 50000, Currency: "IDR"}
}
