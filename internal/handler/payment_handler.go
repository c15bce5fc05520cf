package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"quickride/internal/models"
	"quickride/internal/mpesa"
	"quickride/internal/payment"
	"quickride/internal/repository"
)

// PaymentHandler exposes the M-Pesa payment endpoints. All state machine
// logic lives in the orchestrator; this layer only binds, maps errors and
// shapes responses.
type PaymentHandler struct {
	orchestrator *payment.Orchestrator
	payments     *repository.PaymentRepository
	logger       *zap.Logger
}

func NewPaymentHandler(orchestrator *payment.Orchestrator, payments *repository.PaymentRepository, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		orchestrator: orchestrator,
		payments:     payments,
		logger:       logger,
	}
}

type initiateRequest struct {
	PhoneNumber string  `json:"phoneNumber"`
	Amount      float64 `json:"amount"`
}

// Initiate submits an STK push for the booking in the path.
// POST /payments/mpesa/initiate/:bookingId
func (h *PaymentHandler) Initiate(c echo.Context) error {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid booking id")
	}

	var req initiateRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	result, err := h.orchestrator.Initiate(c.Request().Context(), bookingID, req.PhoneNumber, req.Amount)
	if err != nil {
		return h.mapInitiationError(c, bookingID, err)
	}
	return successJSON(c, "STK push sent, awaiting customer confirmation", result)
}

// Retry supersedes any pending attempt and starts a fresh push.
// POST /payments/mpesa/retry/:bookingId
func (h *PaymentHandler) Retry(c echo.Context) error {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid booking id")
	}

	var req initiateRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request body")
	}

	result, err := h.orchestrator.Retry(c.Request().Context(), bookingID, req.PhoneNumber, req.Amount)
	if err != nil {
		return h.mapInitiationError(c, bookingID, err)
	}
	return successJSON(c, "STK push re-sent, awaiting customer confirmation", result)
}

// Status polls the provider for an in-flight push.
// GET /payments/mpesa/status/:checkoutRequestId
func (h *PaymentHandler) Status(c echo.Context) error {
	checkoutRequestID := c.Param("checkoutRequestId")
	if checkoutRequestID == "" {
		return errorJSON(c, http.StatusBadRequest, "checkout request id is required")
	}

	status, err := h.orchestrator.QueryStatus(c.Request().Context(), checkoutRequestID)
	if err != nil {
		h.logger.Error("query payment status",
			zap.String("checkoutRequestId", checkoutRequestID),
			zap.Error(err))
		return errorJSON(c, http.StatusBadGateway, "payment provider unavailable")
	}
	return successJSON(c, "payment status retrieved", status)
}

// History returns all payment attempts and push requests for a booking.
// GET /payments/history/:bookingId
func (h *PaymentHandler) History(c echo.Context) error {
	bookingID, ok := bookingIDParam(c)
	if !ok {
		return errorJSON(c, http.StatusBadRequest, "invalid booking id")
	}

	history, err := h.orchestrator.GetHistory(bookingID)
	if err != nil {
		h.logger.Error("payment history", zap.Uint("bookingId", bookingID), zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "failed to load payment history")
	}
	return successJSON(c, "payment history retrieved", history)
}

// List returns payments with pagination, admin only.
// GET /payments?page=&limit=
func (h *PaymentHandler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}

	payments, total, err := h.payments.FindAll(limit, page)
	if err != nil {
		h.logger.Error("list payments", zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "failed to list payments")
	}
	return successJSON(c, "payments retrieved", models.PaginatedResponse{
		Data:  payments,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// ByUser returns all payments across a user's bookings.
// GET /payments/user/:userId
func (h *PaymentHandler) ByUser(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 32)
	if err != nil || userID == 0 {
		return errorJSON(c, http.StatusBadRequest, "invalid user id")
	}

	payments, err := h.payments.FindByUserID(uint(userID))
	if err != nil {
		h.logger.Error("payments by user", zap.Uint64("userId", userID), zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "failed to list payments")
	}
	return successJSON(c, "payments retrieved", payments)
}

func (h *PaymentHandler) mapInitiationError(c echo.Context, bookingID uint, err error) error {
	var validationErr *mpesa.ValidationError
	var initErr *payment.InitiationError

	switch {
	case errors.Is(err, payment.ErrBookingNotFound):
		return errorJSON(c, http.StatusNotFound, "booking not found")
	case errors.Is(err, payment.ErrAlreadyPaid):
		return errorJSON(c, http.StatusBadRequest, "booking is already paid")
	case errors.Is(err, payment.ErrConcurrentInitiation):
		return errorJSON(c, http.StatusBadRequest, "a payment for this booking is already in progress")
	case errors.As(err, &validationErr):
		return errorJSON(c, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &initErr):
		h.logger.Error("payment initiation rejected by provider",
			zap.Uint("bookingId", bookingID),
			zap.Error(err))
		return errorJSON(c, http.StatusBadGateway, "payment provider rejected the request")
	default:
		h.logger.Error("payment initiation failed",
			zap.Uint("bookingId", bookingID),
			zap.Error(err))
		return errorJSON(c, http.StatusInternalServerError, "failed to initiate payment")
	}
}

func bookingIDParam(c echo.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("bookingId"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func successJSON(c echo.Context, msg string, data interface{}) error {
	return c.JSON(http.StatusOK, models.APIResponse{Success: true, Message: msg, Data: data})
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, models.APIResponse{Success: false, Message: msg})
}
