package models

import "time"

// Booking lifecycle statuses.
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
)

// Booking maps to the `bookings` table. It is the aggregate root for
// payments: Payment and PaymentRequest rows reference it by ID.
type Booking struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"index;not null" json:"user_id"`
	CarID            uint      `gorm:"index;not null" json:"car_id"`
	PickupDate       time.Time `gorm:"not null" json:"pickup_date"`
	ReturnDate       time.Time `gorm:"not null" json:"return_date"`
	PickupLocation   string    `gorm:"size:100;not null" json:"pickup_location"`
	TotalAmount      float64   `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	Status           string    `gorm:"size:20;default:'pending';index" json:"status"`
	BookingReference string    `gorm:"size:50;uniqueIndex;not null" json:"booking_reference"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
