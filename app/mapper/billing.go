package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
	"github.com/vibast-solutions/ms-go-billing/app/service"
	"github.com/vibast-solutions/ms-go-billing/app/types"
)

func TransactionToType(item *entity.Transaction) *types.Transaction {
	if item == nil {
		return nil
	}

	return &types.Transaction{
		Id:                    item.ID,
		UserId:                item.UserID,
		Amount:                item.Amount,
		Currency:              item.Currency,
		Plan:                  item.Plan,
		Status:                item.Status,
		ProviderInvoiceId:     derefString(item.ProviderInvoiceID),
		ProviderTransactionId: derefString(item.ProviderTransactionID),
		CreatedAt:             formatTime(item.CreatedAt),
		UpdatedAt:             formatTime(item.UpdatedAt),
	}
}

func TransactionsToType(items []*entity.Transaction) []*types.Transaction {
	result := make([]*types.Transaction, 0, len(items))
	for _, item := range items {
		result = append(result, TransactionToType(item))
	}
	return result
}

func SubscriptionToType(item *entity.Subscription) *types.Subscription {
	if item == nil {
		return nil
	}

	out := &types.Subscription{
		Id:                item.ID,
		UserId:            item.UserID,
		Plan:              item.Plan,
		Status:            item.Status,
		StartedAt:         formatTime(item.StartedAt),
		CancelAtPeriodEnd: item.CancelAtPeriodEnd,
		UpdatedAt:         formatTime(item.UpdatedAt),
	}
	if item.CurrentPeriodEnd != nil {
		out.CurrentPeriodEnd = formatTime(*item.CurrentPeriodEnd)
	}
	return out
}

func UserToType(item *entity.User) *types.User {
	if item == nil {
		return nil
	}

	return &types.User{
		Id:            item.ID,
		Email:         item.Email,
		Name:          item.Name,
		Role:          item.Role,
		EmailVerified: item.EmailVerified,
		CreatedAt:     formatTime(item.CreatedAt),
		UpdatedAt:     formatTime(item.UpdatedAt),
	}
}

func VerifyResultToType(item *service.VerifyResult) *types.VerifyPaymentResponse {
	if item == nil {
		return nil
	}
	return &types.VerifyPaymentResponse{
		Success: item.Success,
		Status:  item.Status,
		Message: item.Message,
	}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func UsersWithSubscriptionsToType(items []*service.UserWithSubscription) []*types.AdminUser {
	result := make([]*types.AdminUser, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		result = append(result, &types.AdminUser{
			User:         UserToType(item.User),
			Subscription: SubscriptionToType(item.Subscription),
		})
	}
	return result
}

func AdminActionToType(item *entity.AdminAction) *types.AdminAction {
	if item == nil {
		return nil
	}
	return &types.AdminAction{
		Id:           item.ID,
		AdminUserId:  item.AdminUserID,
		Action:       item.Action,
		TargetUserId: derefString(item.TargetUserID),
		Details:      item.Details,
		CreatedAt:    formatTime(item.CreatedAt),
	}
}

func AdminActionsToType(items []*entity.AdminAction) []*types.AdminAction {
	result := make([]*types.AdminAction, 0, len(items))
	for _, item := range items {
		result = append(result, AdminActionToType(item))
	}
	return result
}
