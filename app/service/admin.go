package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-billing/app/auth"
	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

const (
	defaultAdminPageSize = int32(50)
	maxAdminPageSize     = int32(200)
	maxAdminDetailsLen   = 2000
)

type UserWithSubscription struct {
	User         *entity.User
	Subscription *entity.Subscription
}

// ListUsersWithSubscriptions pages through every user with their
// subscription attached. Admin only.
func (s *BillingService) ListUsersWithSubscriptions(ctx context.Context, principal *auth.Principal, limit, offset int32) ([]*UserWithSubscription, error) {
	if _, err := s.requireAdmin(ctx, principal); err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", ErrInvalidArgument)
	}

	users, err := s.userRepo.List(ctx, adminPageSize(limit), offset)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(users))
	for _, user := range users {
		ids = append(ids, user.ID)
	}
	subs, err := s.subRepo.ListByUserIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byUser := make(map[string]*entity.Subscription, len(subs))
	for _, sub := range subs {
		byUser[sub.UserID] = sub
	}

	result := make([]*UserWithSubscription, 0, len(users))
	for _, user := range users {
		result = append(result, &UserWithSubscription{User: user, Subscription: byUser[user.ID]})
	}
	return result, nil
}

// LogAdminAction appends an audit entry on behalf of the calling admin.
func (s *BillingService) LogAdminAction(ctx context.Context, principal *auth.Principal, action, targetUserID, details string) (*entity.AdminAction, error) {
	admin, err := s.requireAdmin(ctx, principal)
	if err != nil {
		return nil, err
	}

	action = strings.ToLower(strings.TrimSpace(action))
	if !entity.IsAdminAction(action) {
		return nil, fmt.Errorf("%w: unknown admin action %q", ErrInvalidArgument, action)
	}
	details = strings.TrimSpace(details)
	if details == "" || len(details) > maxAdminDetailsLen {
		return nil, fmt.Errorf("%w: details must be between 1 and %d characters", ErrInvalidArgument, maxAdminDetailsLen)
	}

	record := &entity.AdminAction{
		ID:          uuid.NewString(),
		AdminUserID: admin.ID,
		Action:      action,
		Details:     details,
		CreatedAt:   s.now(),
	}
	if target := strings.TrimSpace(targetUserID); target != "" {
		user, err := s.userRepo.FindByID(ctx, target)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}
		record.TargetUserID = &target
	}

	if err := s.adminRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"admin_user_id":  admin.ID,
		"action":         action,
		"target_user_id": stringValue(record.TargetUserID),
	}).Info("admin action recorded")

	return record, nil
}

func (s *BillingService) ListAdminActions(ctx context.Context, principal *auth.Principal, limit int32) ([]*entity.AdminAction, error) {
	if _, err := s.requireAdmin(ctx, principal); err != nil {
		return nil, err
	}
	return s.adminRepo.ListRecent(ctx, adminPageSize(limit))
}

func (s *BillingService) requireAdmin(ctx context.Context, principal *auth.Principal) (*entity.User, error) {
	user, err := s.resolveUser(ctx, principal)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, ErrForbidden
	}
	return user, nil
}

func adminPageSize(limit int32) int32 {
	switch {
	case limit <= 0:
		return defaultAdminPageSize
	case limit > maxAdminPageSize:
		return maxAdminPageSize
	default:
		return limit
	}
}
