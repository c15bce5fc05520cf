package repository

import (
	"time"

	"gorm.io/gorm"

	"quickride/internal/models"
)

// BookingRepository handles booking database operations.
type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// FindAll returns bookings with pagination and optional status filter.
func (r *BookingRepository) FindAll(limit, page int, status string) ([]models.Booking, int64, error) {
	var bookings []models.Booking
	var total int64

	db := r.db.Model(&models.Booking{})

	if status != "" {
		db = db.Where("status = ?", status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit, page = normalizePage(limit, page)
	offset := (page - 1) * limit

	if err := db.Limit(limit).Offset(offset).Order("created_at DESC").Find(&bookings).Error; err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// FindByID finds a booking by ID.
func (r *BookingRepository) FindByID(id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindByReference finds a booking by its human-readable reference.
func (r *BookingRepository) FindByReference(ref string) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.Where("booking_reference = ?", ref).First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindByUserID returns bookings for a specific user.
func (r *BookingRepository) FindByUserID(userID uint) ([]models.Booking, error) {
	var bookings []models.Booking
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&bookings).Error
	return bookings, err
}

// Create creates a new booking.
func (r *BookingRepository) Create(booking *models.Booking) error {
	return r.db.Create(booking).Error
}

// Update updates a booking.
func (r *BookingRepository) Update(id uint, updates map[string]interface{}) error {
	return r.db.Model(&models.Booking{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateStatusIf advances a booking's status only when it currently holds
// the expected status. Returns the number of rows changed, so callers can
// tell a no-op from a transition.
func (r *BookingRepository) UpdateStatusIf(id uint, from, to string) (int64, error) {
	res := r.db.Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected, res.Error
}

// CountByStatusSince returns how many bookings reached the given status on
// or after the cutoff, keyed on updated_at.
func (r *BookingRepository) CountByStatusSince(status string, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.Booking{}).
		Where("status = ? AND updated_at >= ?", status, since).
		Count(&count).Error
	return count, err
}

// Delete removes a booking.
func (r *BookingRepository) Delete(id uint) error {
	return r.db.Delete(&models.Booking{}, id).Error
}
