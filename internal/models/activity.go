package models

import "time"

// Activity actions recorded in the audit trail.
const (
	ActionLoginSuccess    = "LOGIN_SUCCESS"
	ActionLoginFailed     = "LOGIN_FAILED"
	ActionPasswordChanged = "PASSWORD_CHANGED"
	ActionPasswordFailed  = "PASSWORD_CHANGE_FAILED"
	ActionProfileUpdated  = "PROFILE_UPDATED"
	ActionInvoiceCreated  = "INVOICE_CREATED"
	ActionInvoiceUpdated  = "INVOICE_UPDATED"
	ActionInvoiceDeleted  = "INVOICE_DELETED"
	ActionInvoicePaid     = "INVOICE_PAID"
	ActionInvoiceUnpaid   = "INVOICE_UNPAID"
	ActionClientDeleted   = "CLIENT_DELETED"
	ActionProductDeleted  = "PRODUCT_DELETED"
)

// ActivityLog is one audit trail entry.
type ActivityLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    *uint     `gorm:"index" json:"user_id,omitempty"`
	Action    string    `gorm:"size:64;not null;index" json:"action"`
	Details   string    `gorm:"type:text" json:"details,omitempty"` // JSON document
	IPAddress string    `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent string    `gorm:"size:255" json:"user_agent,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
