package repository

import (
	"time"

	"gorm.io/gorm"

	"quickride/internal/models"
)

// PaymentRequestRepository handles the STK push correlation records. Rows
// are never deleted; they are the audit trail mapping provider request IDs
// back to bookings.
type PaymentRequestRepository struct {
	db *gorm.DB
}

func NewPaymentRequestRepository(db *gorm.DB) *PaymentRequestRepository {
	return &PaymentRequestRepository{db: db}
}

// Create inserts a new pending correlation record. The unique index on
// pending_booking_id makes a second concurrent insert for the same booking
// fail with gorm.ErrDuplicatedKey.
func (r *PaymentRequestRepository) Create(req *models.PaymentRequest) error {
	if req.Status == models.RequestStatusPending && req.PendingBookingID == nil {
		req.PendingBookingID = &req.BookingID
	}
	return r.db.Create(req).Error
}

// FindByMerchantRequestID looks up the correlation record for a callback.
func (r *PaymentRequestRepository) FindByMerchantRequestID(merchantRequestID string) (*models.PaymentRequest, error) {
	var req models.PaymentRequest
	if err := r.db.Where("merchant_request_id = ?", merchantRequestID).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// FindByBookingID returns all push attempts for a booking, newest first.
func (r *PaymentRequestRepository) FindByBookingID(bookingID uint) ([]models.PaymentRequest, error) {
	var reqs []models.PaymentRequest
	err := r.db.Where("booking_id = ?", bookingID).Order("created_at DESC").Find(&reqs).Error
	return reqs, err
}

// Resolve moves a pending request to a terminal status and releases the
// pending slot. Returns rows changed; zero means the request was absent or
// already terminal, which reconciliation treats as an idempotent no-op.
func (r *PaymentRequestRepository) Resolve(merchantRequestID, status string) (int64, error) {
	res := r.db.Model(&models.PaymentRequest{}).
		Where("merchant_request_id = ? AND status = ?", merchantRequestID, models.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":             status,
			"pending_booking_id": nil,
		})
	return res.RowsAffected, res.Error
}

// FailPendingByBooking demotes any pending request for the booking to
// failed, releasing the pending slot for a fresh attempt.
func (r *PaymentRequestRepository) FailPendingByBooking(bookingID uint) (int64, error) {
	res := r.db.Model(&models.PaymentRequest{}).
		Where("booking_id = ? AND status = ?", bookingID, models.RequestStatusPending).
		Updates(map[string]interface{}{
			"status":             models.RequestStatusFailed,
			"pending_booking_id": nil,
		})
	return res.RowsAffected, res.Error
}

// FindStalePending returns pending requests created before the cutoff.
// The expiry sweeper fails these so abandoned pushes do not hold the
// booking's pending slot forever.
func (r *PaymentRequestRepository) FindStalePending(cutoff time.Time) ([]models.PaymentRequest, error) {
	var reqs []models.PaymentRequest
	err := r.db.
		Where("status = ? AND created_at < ?", models.RequestStatusPending, cutoff).
		Find(&reqs).Error
	return reqs, err
}
