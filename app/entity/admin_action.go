package entity

import "time"

const (
	AdminActionUserUpgrade   = "user_upgrade"
	AdminActionUserDowngrade = "user_downgrade"
	AdminActionUserDelete    = "user_delete"
	AdminActionUserEdit      = "user_edit"
)

// AdminAction is an append-only audit record of something an admin did.
type AdminAction struct {
	ID           string
	AdminUserID  string
	Action       string
	TargetUserID *string
	Details      string
	CreatedAt    time.Time
}

func IsAdminAction(action string) bool {
	switch action {
	case AdminActionUserUpgrade, AdminActionUserDowngrade, AdminActionUserDelete, AdminActionUserEdit:
		return true
	default:
		return false
	}
}
