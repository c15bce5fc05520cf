package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"quickride/internal/models"
	"quickride/internal/repository"
)

// CarHandler exposes the car catalogue endpoints.
type CarHandler struct {
	cars   *repository.CarRepository
	logger *zap.Logger
}

func NewCarHandler(cars *repository.CarRepository, logger *zap.Logger) *CarHandler {
	return &CarHandler{cars: cars, logger: logger}
}

type carRequest struct {
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	PricePerDay  float64 `json:"price_per_day"`
	Seats        int     `json:"seats"`
	FuelType     string  `json:"fuel_type"`
	Transmission string  `json:"transmission"`
	Description  string  `json:"description"`
	ImageURL     string  `json:"image_url"`
	Location     string  `json:"location"`
	IsAvailable  *bool   `json:"is_available"`
}

func (r *carRequest) validate() string {
	if r.Name == "" || r.Category == "" || r.Location == "" {
		return "name, category and location are required"
	}
	if r.PricePerDay <= 0 {
		return "price_per_day must be positive"
	}
	if r.Seats <= 0 {
		return "seats must be positive"
	}
	return ""
}

// List returns cars with pagination and optional category/location filters.
func (h *CarHandler) List(c echo.Context) error {
	page, limit := pageParams(c)
	cars, total, err := h.cars.FindAll(limit, page, c.QueryParam("category"), c.QueryParam("location"))
	if err != nil {
		h.logger.Error("list cars", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to list cars")
	}
	return successResponse(c, "cars retrieved", paginatedResponse(cars, total, page, limit))
}

// Get returns a single car by ID.
func (h *CarHandler) Get(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return errorResponse(c, http.StatusBadRequest, "invalid car id")
	}
	car, err := h.cars.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, http.StatusNotFound, "car not found")
		}
		h.logger.Error("get car", zap.Uint("id", id), zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to get car")
	}
	return successResponse(c, "car retrieved", car)
}

// Create adds a car to the catalogue.
func (h *CarHandler) Create(c echo.Context) error {
	var req carRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid request body")
	}
	if msg := req.validate(); msg != "" {
		return errorResponse(c, http.StatusBadRequest, msg)
	}

	car := &models.Car{
		Name:         req.Name,
		Category:     req.Category,
		PricePerDay:  req.PricePerDay,
		Seats:        req.Seats,
		FuelType:     req.FuelType,
		Transmission: req.Transmission,
		Description:  req.Description,
		ImageURL:     req.ImageURL,
		Location:     req.Location,
		IsAvailable:  true,
	}
	if req.IsAvailable != nil {
		car.IsAvailable = *req.IsAvailable
	}

	if err := h.cars.Create(car); err != nil {
		h.logger.Error("create car", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to create car")
	}
	return successResponse(c, "car created", car)
}

// Update modifies a car.
func (h *CarHandler) Update(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return errorResponse(c, http.StatusBadRequest, "invalid car id")
	}

	var updates map[string]interface{}
	if err := c.Bind(&updates); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid request body")
	}
	// Only allow known columns through.
	allowed := map[string]bool{
		"name": true, "category": true, "price_per_day": true, "seats": true,
		"fuel_type": true, "transmission": true, "description": true,
		"image_url": true, "location": true, "is_available": true,
	}
	for k := range updates {
		if !allowed[k] {
			delete(updates, k)
		}
	}
	if len(updates) == 0 {
		return errorResponse(c, http.StatusBadRequest, "no updatable fields provided")
	}

	if err := h.cars.Update(id, updates); err != nil {
		h.logger.Error("update car", zap.Uint("id", id), zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to update car")
	}
	return successResponse(c, "car updated", nil)
}

// Delete removes a car from the catalogue.
func (h *CarHandler) Delete(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return errorResponse(c, http.StatusBadRequest, "invalid car id")
	}
	if err := h.cars.Delete(id); err != nil {
		h.logger.Error("delete car", zap.Uint("id", id), zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to delete car")
	}
	return successResponse(c, "car deleted", nil)
}
