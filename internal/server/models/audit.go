package models

import "time"

// Audit action kinds.
const (
	ActionLogin             = "login"
	ActionLogout            = "logout"
	ActionUserRegister      = "user_register"
	ActionAdminCreate       = "admin_create"
	ActionPackageCreate     = "package_create"
	ActionPackageEdit       = "package_edit"
	ActionPackageDelete     = "package_delete"
	ActionReservationCreate = "reservation_create"
	ActionReservationCancel = "reservation_cancel"
	ActionClientDelete      = "client_delete"
	ActionAuditExport       = "audit_export"
)

// AuditEntry is an immutable record of a state-changing action.
// ClientID and PackageID are kept as plain historical references and may
// point at rows that no longer exist.
type AuditEntry struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	UserName    string    `json:"username,omitempty"`
	ClientID    *int64    `json:"client_id,omitempty"`
	PackageID   *int64    `json:"package_id,omitempty"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
