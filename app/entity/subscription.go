package entity

import "time"

const (
	PlanFree    = "free"
	PlanPremium = "premium"
	PlanPro     = "pro"
)

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusTrialing = "trialing"
)

type Subscription struct {
	ID     string
	UserID string

	Plan   string
	Status string

	StartedAt         time.Time
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd bool

	UpdatedAt time.Time
}
