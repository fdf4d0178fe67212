package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-billing/app/auth"
	"github.com/vibast-solutions/ms-go-billing/app/entity"
	"github.com/vibast-solutions/ms-go-billing/app/repository"
)

// ProvisionUser makes sure the principal has a user record and a free
// subscription. Calling it again for the same email returns the stored user.
func (s *BillingService) ProvisionUser(ctx context.Context, principal *auth.Principal, name string) (*entity.User, error) {
	if !principal.Valid() {
		return nil, ErrUnauthorized
	}

	user, err := s.userRepo.FindByEmail(ctx, principal.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user, err = s.createUser(ctx, principal, name)
		if err != nil {
			return nil, err
		}
	}

	now := s.now()
	err = s.subRepo.Create(ctx, &entity.Subscription{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Plan:      entity.PlanFree,
		Status:    entity.SubscriptionStatusActive,
		StartedAt: now,
		UpdatedAt: now,
	})
	if err != nil && !errors.Is(err, repository.ErrSubscriptionAlreadyExists) {
		return nil, err
	}

	return user, nil
}

func (s *BillingService) createUser(ctx context.Context, principal *auth.Principal, name string) (*entity.User, error) {
	now := s.now()
	user := &entity.User{
		ID:        uuid.NewString(),
		Email:     principal.Email,
		Name:      displayName(principal, name),
		Role:      entity.UserRoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.userRepo.Create(ctx, user)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserAlreadyExists) {
		return nil, err
	}

	existing, err := s.userRepo.FindByEmail(ctx, principal.Email)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrUserNotFound
	}
	return existing, nil
}

func (s *BillingService) ListMyTransactions(ctx context.Context, principal *auth.Principal) ([]*entity.Transaction, error) {
	user, err := s.resolveUser(ctx, principal)
	if err != nil {
		return nil, err
	}
	return s.txRepo.ListByUser(ctx, user.ID)
}

func (s *BillingService) GetMySubscription(ctx context.Context, principal *auth.Principal) (*entity.Subscription, error) {
	user, err := s.resolveUser(ctx, principal)
	if err != nil {
		return nil, err
	}

	sub, err := s.subRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrSubscriptionNotFound
	}
	return sub, nil
}

// CancelMySubscription keeps the plan active until the current period ends.
func (s *BillingService) CancelMySubscription(ctx context.Context, principal *auth.Principal) (*entity.Subscription, error) {
	user, err := s.resolveUser(ctx, principal)
	if err != nil {
		return nil, err
	}

	sub, err := s.subRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrSubscriptionNotFound
	}
	if sub.Plan == entity.PlanFree {
		return nil, ErrInvalidState
	}
	if sub.CancelAtPeriodEnd {
		return sub, nil
	}

	now := s.now()
	if err := s.subRepo.SetCancelAtPeriodEnd(ctx, user.ID, true, now); err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	sub.CancelAtPeriodEnd = true
	sub.UpdatedAt = now
	return sub, nil
}

func (s *BillingService) resolveUser(ctx context.Context, principal *auth.Principal) (*entity.User, error) {
	if !principal.Valid() {
		return nil, ErrUnauthorized
	}
	user, err := s.userRepo.FindByEmail(ctx, principal.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func displayName(principal *auth.Principal, name string) string {
	if v := strings.TrimSpace(name); v != "" {
		return v
	}
	if v := strings.TrimSpace(principal.Name); v != "" {
		return v
	}
	local, _, _ := strings.Cut(principal.Email, "@")
	return local
}
