package domain

import "time"

// AuditLog is one security-relevant event (stored in audit_log table).
type AuditLog struct {
	ID        string
	UserID    string
	Action    string
	Resource  string
	IP        string
	Metadata  string
	CreatedAt time.Time
}

// Actions recorded by the auth flows. The confirm-failure action doubles as
// the data source for the brute-force throttle on code confirmation.
const (
	ActionRegister       = "auth.register"
	ActionLogin          = "auth.login"
	ActionLoginFailure   = "auth.login_failure"
	ActionLogout         = "auth.logout"
	ActionRefresh        = "auth.refresh"
	ActionRefreshFailure = "auth.refresh_failure"
	ActionCodeRequest    = "auth.code_request"
	ActionCodeConfirm    = "auth.code_confirm"
	ActionConfirmFailure = "auth.code_confirm_failure"
	ActionPasswordReset  = "auth.password_reset"
)
