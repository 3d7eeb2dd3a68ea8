package db

import "time"

const (
	StatusPending = "pending"
	StatusPaid    = "paid"
)

// Order is one charge of the simulated gateway, keyed by the caller's
// idempotency key.
type Order struct {
	ID        string     `gorm:"primaryKey;size:64" json:"id"`
	Amount    int64      `json:"amount"` // smallest currency unit
	Method    string     `gorm:"size:16" json:"method"`
	UPIHandle string     `json:"upi_handle,omitempty"`
	Status    string     `gorm:"size:16;index" json:"status"`
	Reference string     `gorm:"size:64" json:"reference,omitempty"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}
