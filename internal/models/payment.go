package models

import "time"

// Payment statuses. State only moves forward: pending -> completed|failed.
// refunded is reserved for manual back-office use.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Payment methods.
const (
	PaymentMethodMpesa        = "mpesa"
	PaymentMethodCard         = "card"
	PaymentMethodBankTransfer = "bank_transfer"
)

// Payment maps to the `payments` table: one row per monetary outcome.
// Created with status=pending at initiation; transitioned to a terminal
// status only by the reconciliation step.
type Payment struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	BookingID     uint       `gorm:"index;not null" json:"booking_id"`
	Amount        float64    `gorm:"type:decimal(10,2);not null" json:"amount"`
	PaymentMethod string     `gorm:"size:50;not null" json:"payment_method"`
	PhoneNumber   string     `gorm:"size:15" json:"phone_number"`
	Status        string     `gorm:"size:20;default:'pending';index" json:"status"`
	TransactionID *string    `gorm:"size:100" json:"transaction_id,omitempty"`
	PaymentDate   *time.Time `json:"payment_date,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
