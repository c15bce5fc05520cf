package api

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"quickride/internal/models"
	"quickride/internal/pkg/utils"
	"quickride/internal/repository"
)

// BookingHandler exposes booking lifecycle endpoints.
type BookingHandler struct {
	bookings *repository.BookingRepository
	cars     *repository.CarRepository
	logger   *zap.Logger
}

func NewBookingHandler(bookings *repository.BookingRepository, cars *repository.CarRepository, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{bookings: bookings, cars: cars, logger: logger}
}

type createBookingRequest struct {
	CarID          uint   `json:"car_id"`
	PickupDate     string `json:"pickup_date"`
	ReturnDate     string `json:"return_date"`
	PickupLocation string `json:"pickup_location"`
}

// Create books a car for the authenticated user. The total amount is
// derived from the car's daily price and the rental duration, never
// taken from the client.
func (h *BookingHandler) Create(c echo.Context) error {
	userID, ok := c.Get("userId").(uint)
	if !ok || userID == 0 {
		return errorResponse(c, http.StatusUnauthorized, "authentication required")
	}

	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid request body")
	}
	if req.CarID == 0 || req.PickupLocation == "" {
		return errorResponse(c, http.StatusBadRequest, "car_id and pickup_location are required")
	}

	pickup, err := time.Parse(time.RFC3339, req.PickupDate)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "pickup_date must be RFC3339")
	}
	ret, err := time.Parse(time.RFC3339, req.ReturnDate)
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, "return_date must be RFC3339")
	}
	if !ret.After(pickup) {
		return errorResponse(c, http.StatusBadRequest, "return_date must be after pickup_date")
	}

	car, err := h.cars.FindByID(req.CarID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, http.StatusNotFound, "car not found")
		}
		h.logger.Error("find car", zap.Uint("carId", req.CarID), zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to create booking")
	}
	if !car.IsAvailable {
		return errorResponse(c, http.StatusConflict, "car is not available")
	}

	days := int(math.Ceil(ret.Sub(pickup).Hours() / 24))
	if days < 1 {
		days = 1
	}

	booking := &models.Booking{
		UserID:           userID,
		CarID:            car.ID,
		PickupDate:       pickup,
		ReturnDate:       ret,
		PickupLocation:   req.PickupLocation,
		TotalAmount:      car.PricePerDay * float64(days),
		Status:           models.BookingStatusPending,
		BookingReference: utils.GenerateBookingReference(),
	}
	if err := h.bookings.Create(booking); err != nil {
		h.logger.Error("create booking", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to create booking")
	}

	h.logger.Info("booking created",
		zap.Uint("bookingId", booking.ID),
		zap.String("reference", booking.BookingReference),
		zap.Float64("totalAmount", booking.TotalAmount))
	return successResponse(c, "booking created", booking)
}

// List returns bookings with pagination and optional ?status= filter.
func (h *BookingHandler) List(c echo.Context) error {
	page, limit := pageParams(c)
	bookings, total, err := h.bookings.FindAll(limit, page, c.QueryParam("status"))
	if err != nil {
		h.logger.Error("list bookings", zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to list bookings")
	}
	return successResponse(c, "bookings retrieved", paginatedResponse(bookings, total, page, limit))
}

// Get returns a single booking by ID.
func (h *BookingHandler) Get(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return errorResponse(c, http.StatusBadRequest, "invalid booking id")
	}
	booking, err := h.bookings.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorResponse(c, http.StatusNotFound, "booking not found")
		}
		h.logger.Error("get booking", zap.Uint("id", id), zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to get booking")
	}
	return successResponse(c, "booking retrieved", booking)
}

// ByUser returns all bookings for a user, newest first.
func (h *BookingHandler) ByUser(c echo.Context) error {
	userID, ok := idParam(c, "userId")
	if !ok {
		return errorResponse(c, http.StatusBadRequest, "invalid user id")
	}
	bookings, err := h.bookings.FindByUserID(userID)
	if err != nil {
		h.logger.Error("bookings by user", zap.Uint("userId", userID), zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to list bookings")
	}
	return successResponse(c, "bookings retrieved", bookings)
}

// Update modifies a booking's mutable fields.
func (h *BookingHandler) Update(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return errorResponse(c, http.StatusBadRequest, "invalid booking id")
	}

	var updates map[string]interface{}
	if err := c.Bind(&updates); err != nil {
		return errorResponse(c, http.StatusBadRequest, "invalid request body")
	}
	allowed := map[string]bool{
		"pickup_location": true, "pickup_date": true, "return_date": true,
		"status": true,
	}
	for k := range updates {
		if !allowed[k] {
			delete(updates, k)
		}
	}
	if status, ok := updates["status"].(string); ok {
		switch status {
		case models.BookingStatusPending, models.BookingStatusConfirmed, models.BookingStatusCancelled:
		default:
			return errorResponse(c, http.StatusBadRequest, "unknown booking status")
		}
	}
	if len(updates) == 0 {
		return errorResponse(c, http.StatusBadRequest, "no updatable fields provided")
	}

	if err := h.bookings.Update(id, updates); err != nil {
		h.logger.Error("update booking", zap.Uint("id", id), zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to update booking")
	}
	return successResponse(c, "booking updated", nil)
}

// Cancel moves a pending booking to cancelled. Confirmed bookings
// cannot be cancelled through this endpoint.
func (h *BookingHandler) Cancel(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return errorResponse(c, http.StatusBadRequest, "invalid booking id")
	}

	rows, err := h.bookings.UpdateStatusIf(id, models.BookingStatusPending, models.BookingStatusCancelled)
	if err != nil {
		h.logger.Error("cancel booking", zap.Uint("id", id), zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to cancel booking")
	}
	if rows == 0 {
		return errorResponse(c, http.StatusConflict, "booking is not pending")
	}
	return successResponse(c, "booking cancelled", nil)
}

// Delete removes a booking.
func (h *BookingHandler) Delete(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return errorResponse(c, http.StatusBadRequest, "invalid booking id")
	}
	if err := h.bookings.Delete(id); err != nil {
		h.logger.Error("delete booking", zap.Uint("id", id), zap.Error(err))
		return errorResponse(c, http.StatusInternalServerError, "failed to delete booking")
	}
	return successResponse(c, "booking deleted", nil)
}
