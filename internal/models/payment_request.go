package models

import "time"

// PaymentRequest statuses mirror the push attempt lifecycle.
const (
	RequestStatusPending   = "pending"
	RequestStatusCompleted = "completed"
	RequestStatusFailed    = "failed"
)

// PaymentRequest maps to the `payment_requests` table: one row per STK push
// attempt, correlating the provider-issued request IDs back to a booking.
// Rows are never deleted; they form the reconciliation audit trail.
//
// PendingBookingID holds the booking ID while the attempt is pending and is
// cleared (NULL) when the attempt resolves. The unique index on it enforces
// at most one pending attempt per booking at the storage layer, so two
// concurrent initiations cannot both persist.
type PaymentRequest struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	AttemptID         string    `gorm:"size:36;uniqueIndex;not null" json:"attempt_id"`
	BookingID         uint      `gorm:"index;not null" json:"booking_id"`
	MerchantRequestID string    `gorm:"size:100;index;not null" json:"merchant_request_id"`
	CheckoutRequestID string    `gorm:"size:100;index;not null" json:"checkout_request_id"`
	Status            string    `gorm:"size:20;default:'pending'" json:"status"`
	PendingBookingID  *uint     `gorm:"uniqueIndex" json:"-"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}
