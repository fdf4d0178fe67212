package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-billing/app/entity"
)

const adminActionColumns = `id, admin_user_id, action, target_user_id, details, created_at`

type AdminActionRepository struct {
	db DBTX
}

func NewAdminActionRepository(db DBTX) *AdminActionRepository {
	return &AdminActionRepository{db: db}
}

func (r *AdminActionRepository) Create(ctx context.Context, action *entity.AdminAction) error {
	query := `
		INSERT INTO admin_actions (` + adminActionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		action.ID,
		action.AdminUserID,
		action.Action,
		nullableStringValue(action.TargetUserID),
		action.Details,
		action.CreatedAt,
	)
	return err
}

// ListRecent returns the newest audit entries first.
func (r *AdminActionRepository) ListRecent(ctx context.Context, limit int32) ([]*entity.AdminAction, error) {
	query := `
		SELECT ` + adminActionColumns + `
		FROM admin_actions
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.AdminAction, 0)
	for rows.Next() {
		item := &entity.AdminAction{}
		var target sql.NullString
		if err := rows.Scan(
			&item.ID,
			&item.AdminUserID,
			&item.Action,
			&target,
			&item.Details,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		item.TargetUserID = stringPtrFromNull(target)
		items = append(items, item)
	}
	return items, rows.Err()
}
