package repository

import (
	"time"

	"gorm.io/gorm"

	"quickride/internal/models"
)

// PaymentRepository handles payment database operations. All status
// transitions are guarded compare-and-swap updates: a payment only moves
// out of pending once, no matter how often a callback is replayed.
type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// FindAll returns payments with pagination.
func (r *PaymentRepository) FindAll(limit, page int) ([]models.Payment, int64, error) {
	var payments []models.Payment
	var total int64

	db := r.db.Model(&models.Payment{})

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit, page = normalizePage(limit, page)
	offset := (page - 1) * limit

	if err := db.Limit(limit).Offset(offset).Order("created_at DESC").Find(&payments).Error; err != nil {
		return nil, 0, err
	}
	return payments, total, nil
}

// FindByBookingID returns all payment attempts for a booking, newest first.
func (r *PaymentRepository) FindByBookingID(bookingID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Where("booking_id = ?", bookingID).Order("created_at DESC").Find(&payments).Error
	return payments, err
}

// FindByUserID returns payments across all of a user's bookings.
func (r *PaymentRepository) FindByUserID(userID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.
		Joins("JOIN bookings ON bookings.id = payments.booking_id").
		Where("bookings.user_id = ?", userID).
		Order("payments.created_at DESC").
		Find(&payments).Error
	return payments, err
}

// FindPendingByBooking returns the booking's current pending payment, if any.
func (r *PaymentRepository) FindPendingByBooking(bookingID uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.
		Where("booking_id = ? AND status = ?", bookingID, models.PaymentStatusPending).
		Order("created_at DESC").
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// HasCompleted reports whether the booking already holds a completed payment.
func (r *PaymentRepository) HasCompleted(bookingID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Payment{}).
		Where("booking_id = ? AND status = ?", bookingID, models.PaymentStatusCompleted).
		Count(&count).Error
	return count > 0, err
}

// Create creates a new payment row.
func (r *PaymentRepository) Create(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

// MarkCompleted transitions the booking's pending payment to completed,
// recording the provider transaction ID and payment timestamp. Returns the
// number of rows changed; zero means there was no pending payment to move.
func (r *PaymentRepository) MarkCompleted(bookingID uint, transactionID string, paidAt time.Time) (int64, error) {
	res := r.db.Model(&models.Payment{}).
		Where("booking_id = ? AND status = ?", bookingID, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":         models.PaymentStatusCompleted,
			"transaction_id": transactionID,
			"payment_date":   paidAt,
		})
	return res.RowsAffected, res.Error
}

// CompletedSummarySince returns the count and summed amount of payments
// completed on or after the cutoff, keyed on payment_date.
func (r *PaymentRepository) CompletedSummarySince(since time.Time) (int64, float64, error) {
	var count int64
	err := r.db.Model(&models.Payment{}).
		Where("status = ? AND payment_date >= ?", models.PaymentStatusCompleted, since).
		Count(&count).Error
	if err != nil {
		return 0, 0, err
	}

	var revenue float64
	err = r.db.Model(&models.Payment{}).
		Where("status = ? AND payment_date >= ?", models.PaymentStatusCompleted, since).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&revenue).Error
	if err != nil {
		return 0, 0, err
	}
	return count, revenue, nil
}

// FailedCountSince returns the number of payments that moved to failed on
// or after the cutoff. Failure has no provider timestamp, so updated_at
// stands in for it.
func (r *PaymentRepository) FailedCountSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Payment{}).
		Where("status = ? AND updated_at >= ?", models.PaymentStatusFailed, since).
		Count(&count).Error
	return count, err
}

// FailPendingByBooking transitions any pending payments for the booking to
// failed. Used both by reconciliation and by retry's stale-attempt cleanup.
func (r *PaymentRepository) FailPendingByBooking(bookingID uint) (int64, error) {
	res := r.db.Model(&models.Payment{}).
		Where("booking_id = ? AND status = ?", bookingID, models.PaymentStatusPending).
		Update("status", models.PaymentStatusFailed)
	return res.RowsAffected, res.Error
}
