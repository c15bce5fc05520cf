package models

import "time"

// Car maps to the `cars` table.
type Car struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Category     string    `gorm:"size:50;not null" json:"category"`
	PricePerDay  float64   `gorm:"type:decimal(8,2);not null" json:"price_per_day"`
	Seats        int       `gorm:"not null" json:"seats"`
	FuelType     string    `gorm:"size:20;not null" json:"fuel_type"`
	Transmission string    `gorm:"size:20;not null" json:"transmission"`
	Description  string    `gorm:"type:text" json:"description"`
	ImageURL     string    `gorm:"size:500" json:"image_url"`
	Location     string    `gorm:"size:100;not null" json:"location"`
	IsAvailable  bool      `gorm:"default:true" json:"is_available"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
