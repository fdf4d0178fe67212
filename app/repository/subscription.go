package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

var (
	ErrSubscriptionNotFound      = errors.New("subscription not found")
	ErrSubscriptionAlreadyExists = errors.New("subscription already exists")
)

const subscriptionColumns = `id, user_id, plan, status, started_at, current_period_end,
			cancel_at_period_end, updated_at`

// SubscriptionRepository stores at most one subscription per user; the
// subscriptions.user_id column carries a unique index.
type SubscriptionRepository struct {
	db DBTX
}

func NewSubscriptionRepository(db DBTX) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub *entity.Subscription) error {
	query := `
		INSERT INTO subscriptions (` + subscriptionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		sub.ID,
		sub.UserID,
		sub.Plan,
		sub.Status,
		sub.StartedAt,
		nullableTimeValue(sub.CurrentPeriodEnd),
		sub.CancelAtPeriodEnd,
		sub.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrSubscriptionAlreadyExists
		}
		return err
	}
	return nil
}

// ActivatePlan is a get-or-create keyed by owner. A new row starts now and
// runs until periodEnd; an existing row only gets plan, status and
// updated_at rewritten so started_at, current_period_end and
// cancel_at_period_end survive.
func (r *SubscriptionRepository) ActivatePlan(
	ctx context.Context,
	userID string,
	plan string,
	now time.Time,
	periodEnd time.Time,
) (*entity.Subscription, error) {
	query := `
		INSERT INTO subscriptions (` + subscriptionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			plan = VALUES(plan),
			status = VALUES(status),
			updated_at = VALUES(updated_at)
	`

	if _, err := r.db.ExecContext(ctx, query,
		uuid.NewString(),
		userID,
		plan,
		entity.SubscriptionStatusActive,
		now,
		periodEnd,
		false,
		now,
	); err != nil {
		return nil, err
	}

	sub, err := r.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, ErrSubscriptionNotFound
	}
	return sub, nil
}

func (r *SubscriptionRepository) SetCancelAtPeriodEnd(ctx context.Context, userID string, cancel bool, updatedAt time.Time) error {
	query := `
		UPDATE subscriptions SET
			cancel_at_period_end = ?,
			updated_at = ?
		WHERE user_id = ?
	`

	result, err := r.db.ExecContext(ctx, query, cancel, updatedAt, userID)
	if err != nil {
		return err
	}
	return expectAffected(result, ErrSubscriptionNotFound)
}

func (r *SubscriptionRepository) FindByUserID(ctx context.Context, userID string) (*entity.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = ?`

	sub := &entity.Subscription{}
	if err := scanSubscription(r.db.QueryRowContext(ctx, query, userID), sub); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return sub, nil
}

// ListByUserIDs loads the subscriptions of the given users in one query.
// Users without a subscription are simply absent from the result.
func (r *SubscriptionRepository) ListByUserIDs(ctx context.Context, userIDs []string) ([]*entity.Subscription, error) {
	if len(userIDs) == 0 {
		return []*entity.Subscription{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id IN (` + placeholders + `)`

	args := make([]interface{}, 0, len(userIDs))
	for _, id := range userIDs {
		args = append(args, id)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.Subscription, 0, len(userIDs))
	for rows.Next() {
		sub := &entity.Subscription{}
		if err := scanSubscription(rows, sub); err != nil {
			return nil, err
		}
		items = append(items, sub)
	}
	return items, rows.Err()
}

func scanSubscription(row rowScanner, sub *entity.Subscription) error {
	var currentPeriodEnd sql.NullTime

	if err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.Plan,
		&sub.Status,
		&sub.StartedAt,
		&currentPeriodEnd,
		&sub.CancelAtPeriodEnd,
		&sub.UpdatedAt,
	); err != nil {
		return err
	}

	sub.CurrentPeriodEnd = timePtrFromNull(currentPeriodEnd)
	return nil
}
