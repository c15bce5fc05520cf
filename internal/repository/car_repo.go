package repository

import (
	"gorm.io/gorm"

	"quickride/internal/models"
)

// CarRepository handles car database operations.
type CarRepository struct {
	db *gorm.DB
}

func NewCarRepository(db *gorm.DB) *CarRepository {
	return &CarRepository{db: db}
}

// FindAll returns cars with pagination and optional category/location filters.
func (r *CarRepository) FindAll(limit, page int, category, location string) ([]models.Car, int64, error) {
	var cars []models.Car
	var total int64

	db := r.db.Model(&models.Car{})

	if category != "" {
		db = db.Where("category = ?", category)
	}
	if location != "" {
		db = db.Where("location = ?", location)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit, page = normalizePage(limit, page)
	offset := (page - 1) * limit

	if err := db.Limit(limit).Offset(offset).Order("created_at DESC").Find(&cars).Error; err != nil {
		return nil, 0, err
	}
	return cars, total, nil
}

// FindByID finds a car by ID.
func (r *CarRepository) FindByID(id uint) (*models.Car, error) {
	var car models.Car
	if err := r.db.First(&car, id).Error; err != nil {
		return nil, err
	}
	return &car, nil
}

// Create creates a new car.
func (r *CarRepository) Create(car *models.Car) error {
	return r.db.Create(car).Error
}

// Update updates a car.
func (r *CarRepository) Update(id uint, updates map[string]interface{}) error {
	return r.db.Model(&models.Car{}).Where("id = ?", id).Updates(updates).Error
}

// Delete removes a car.
func (r *CarRepository) Delete(id uint) error {
	return r.db.Delete(&models.Car{}, id).Error
}
