package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"quickride/internal/models"
	"quickride/internal/mpesa"
	"quickride/internal/pkg/utils"
)

// BookingStore is the subset of booking persistence the orchestrator needs.
type BookingStore interface {
	FindByID(id uint) (*models.Booking, error)
	UpdateStatusIf(id uint, from, to string) (int64, error)
}

// PaymentStore persists monetary outcomes. Transition methods are guarded:
// they only move rows out of pending and report how many rows changed.
type PaymentStore interface {
	Create(p *models.Payment) error
	FindByBookingID(bookingID uint) ([]models.Payment, error)
	FindPendingByBooking(bookingID uint) (*models.Payment, error)
	HasCompleted(bookingID uint) (bool, error)
	MarkCompleted(bookingID uint, transactionID string, paidAt time.Time) (int64, error)
	FailPendingByBooking(bookingID uint) (int64, error)
}

// RequestStore persists the push-request correlation records.
type RequestStore interface {
	Create(r *models.PaymentRequest) error
	FindByMerchantRequestID(merchantRequestID string) (*models.PaymentRequest, error)
	FindByBookingID(bookingID uint) ([]models.PaymentRequest, error)
	Resolve(merchantRequestID, status string) (int64, error)
	FailPendingByBooking(bookingID uint) (int64, error)
}

// Gateway is the outbound Daraja surface.
type Gateway interface {
	GetAccessToken(ctx context.Context) (string, error)
	SubmitPushPayment(ctx context.Context, token string, req mpesa.StkPushRequest) (*mpesa.StkPushResponse, error)
	QueryStatus(ctx context.Context, token, checkoutRequestID string) (*mpesa.StkQueryResponse, error)
}

// Orchestrator owns the payment state machine. All Payment/PaymentRequest
// mutations flow through it; handlers never write those rows directly.
type Orchestrator struct {
	bookings BookingStore
	payments PaymentStore
	requests RequestStore
	gateway  Gateway
	logger   *zap.Logger
}

func NewOrchestrator(bookings BookingStore, payments PaymentStore, requests RequestStore, gateway Gateway, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		bookings: bookings,
		payments: payments,
		requests: requests,
		gateway:  gateway,
		logger:   logger,
	}
}

// InitiateResult carries the provider identifiers back to the caller for
// optional client-side polling.
type InitiateResult struct {
	MerchantRequestID string `json:"merchantRequestId"`
	CheckoutRequestID string `json:"checkoutRequestId"`
	CustomerMessage   string `json:"customerMessage,omitempty"`
}

// Initiate submits an STK push for the booking and records a pending
// PaymentRequest/Payment pair. The acknowledgment returned by the provider
// is not the payment outcome; Reconcile handles that when the callback
// arrives.
func (o *Orchestrator) Initiate(ctx context.Context, bookingID uint, phone string, amount float64) (*InitiateResult, error) {
	booking, err := o.bookings.FindByID(bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("load booking %d: %w", bookingID, err)
	}

	paid, err := o.payments.HasCompleted(bookingID)
	if err != nil {
		return nil, fmt.Errorf("check completed payments for booking %d: %w", bookingID, err)
	}
	if paid {
		return nil, ErrAlreadyPaid
	}

	if amount <= 0 {
		return nil, &mpesa.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	normalized, err := mpesa.NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	token, err := o.gateway.GetAccessToken(ctx)
	if err != nil {
		return nil, &InitiationError{Err: err}
	}

	ack, err := o.gateway.SubmitPushPayment(ctx, token, mpesa.StkPushRequest{
		BookingID:        bookingID,
		Phone:            normalized,
		Amount:           amount,
		AccountReference: FormatAccountReference(bookingID),
		Description:      "Payment for car rental " + booking.BookingReference,
	})
	if err != nil {
		return nil, &InitiationError{Err: err}
	}

	// The provider has accepted the push. From here on, any persistence
	// failure leaves an externally-initiated charge untracked and must be
	// logged loudly enough for manual reconciliation.
	req := &models.PaymentRequest{
		AttemptID:         utils.GenerateUUID(),
		BookingID:         bookingID,
		MerchantRequestID: ack.MerchantRequestID,
		CheckoutRequestID: ack.CheckoutRequestID,
		Status:            models.RequestStatusPending,
	}
	if err := o.requests.Create(req); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			o.logger.Error("Concurrent initiation lost the race after gateway accepted push",
				zap.Uint("booking_id", bookingID),
				zap.String("attempt_id", req.AttemptID),
				zap.String("merchant_request_id", ack.MerchantRequestID),
				zap.Float64("amount", amount))
			return nil, ErrConcurrentInitiation
		}
		o.logger.Error("Failed to persist payment request after gateway accepted push",
			zap.Uint("booking_id", bookingID),
			zap.String("attempt_id", req.AttemptID),
			zap.String("merchant_request_id", ack.MerchantRequestID),
			zap.Float64("amount", amount),
			zap.Error(err))
		return nil, fmt.Errorf("persist payment request: %w", err)
	}

	if err := o.payments.Create(&models.Payment{
		BookingID:     bookingID,
		Amount:        amount,
		PaymentMethod: models.PaymentMethodMpesa,
		PhoneNumber:   normalized,
		Status:        models.PaymentStatusPending,
	}); err != nil {
		o.logger.Error("Failed to persist payment after gateway accepted push",
			zap.Uint("booking_id", bookingID),
			zap.String("attempt_id", req.AttemptID),
			zap.String("merchant_request_id", ack.MerchantRequestID),
			zap.Float64("amount", amount),
			zap.Error(err))
		return nil, fmt.Errorf("persist payment: %w", err)
	}

	o.logger.Info("STK push initiated",
		zap.Uint("booking_id", bookingID),
		zap.String("attempt_id", req.AttemptID),
		zap.String("merchant_request_id", ack.MerchantRequestID),
		zap.String("checkout_request_id", ack.CheckoutRequestID))

	return &InitiateResult{
		MerchantRequestID: ack.MerchantRequestID,
		CheckoutRequestID: ack.CheckoutRequestID,
		CustomerMessage:   ack.CustomerMessage,
	}, nil
}

// Retry abandons any still-pending attempt for the booking and starts a
// fresh one. The provider cannot cancel an in-flight push, so a late
// callback for the superseded attempt may still arrive; Reconcile treats
// it as a no-op.
func (o *Orchestrator) Retry(ctx context.Context, bookingID uint, phone string, amount float64) (*InitiateResult, error) {
	failedReqs, err := o.requests.FailPendingByBooking(bookingID)
	if err != nil {
		return nil, fmt.Errorf("supersede pending requests for booking %d: %w", bookingID, err)
	}
	failedPays, err := o.payments.FailPendingByBooking(bookingID)
	if err != nil {
		return nil, fmt.Errorf("supersede pending payments for booking %d: %w", bookingID, err)
	}
	if failedReqs > 0 || failedPays > 0 {
		o.logger.Info("Superseded stale pending payment attempt",
			zap.Uint("booking_id", bookingID),
			zap.Int64("requests_failed", failedReqs),
			zap.Int64("payments_failed", failedPays))
	}

	return o.Initiate(ctx, bookingID, phone, amount)
}

// Reconcile applies an asynchronous provider callback. Delivery is
// at-least-once and unauthenticated; unknown, duplicate and superseded
// callbacks are logged no-ops. Any error returned here is for the caller's
// log only; the HTTP boundary still acknowledges the provider.
func (o *Orchestrator) Reconcile(cb *mpesa.StkCallback) error {
	md := cb.Metadata()

	// Booking resolution: composite parse of the merchant-request ID,
	// falling back to the AccountReference metadata item.
	parsedID, parsedOK := ParseBookingID(cb.MerchantRequestID)
	if !parsedOK {
		parsedID, parsedOK = ParseBookingID(md.String(mpesa.MetaAccountReference))
	}

	req, err := o.requests.FindByMerchantRequestID(cb.MerchantRequestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			o.logger.Warn("Callback references unknown payment request",
				zap.String("merchant_request_id", cb.MerchantRequestID),
				zap.String("checkout_request_id", cb.CheckoutRequestID),
				zap.Int("result_code", cb.ResultCode),
				zap.Uint("parsed_booking_id", parsedID))
			return nil
		}
		return fmt.Errorf("lookup payment request %q: %w", cb.MerchantRequestID, err)
	}

	bookingID := req.BookingID
	if parsedOK && parsedID != bookingID {
		o.logger.Warn("Callback booking reference disagrees with correlation record",
			zap.String("merchant_request_id", cb.MerchantRequestID),
			zap.Uint("parsed_booking_id", parsedID),
			zap.Uint("recorded_booking_id", bookingID))
	}

	if cb.ResultCode == 0 {
		return o.reconcileSuccess(cb, md, bookingID)
	}
	return o.reconcileFailure(cb, bookingID)
}

func (o *Orchestrator) reconcileSuccess(cb *mpesa.StkCallback, md mpesa.Metadata, bookingID uint) error {
	moved, err := o.requests.Resolve(cb.MerchantRequestID, models.RequestStatusCompleted)
	if err != nil {
		return fmt.Errorf("resolve payment request %q: %w", cb.MerchantRequestID, err)
	}
	if moved == 0 {
		// Duplicate or superseded callback; the request already left pending.
		o.logger.Info("Callback for already-resolved payment request, ignoring",
			zap.String("merchant_request_id", cb.MerchantRequestID),
			zap.Uint("booking_id", bookingID))
		return nil
	}

	if paidAmount, ok := md.Float(mpesa.MetaAmount); ok {
		if pending, err := o.payments.FindPendingByBooking(bookingID); err == nil {
			if math.Abs(pending.Amount-paidAmount) >= 0.01 {
				o.logger.Warn("Callback amount differs from initiated amount",
					zap.Uint("booking_id", bookingID),
					zap.Float64("initiated_amount", pending.Amount),
					zap.Float64("callback_amount", paidAmount))
			}
		}
	}

	receipt := md.String(mpesa.MetaMpesaReceipt)
	updated, err := o.payments.MarkCompleted(bookingID, receipt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("complete payment for booking %d: %w", bookingID, err)
	}
	if updated == 0 {
		o.logger.Error("Completed payment request had no pending payment row",
			zap.Uint("booking_id", bookingID),
			zap.String("merchant_request_id", cb.MerchantRequestID),
			zap.String("receipt", receipt))
	}

	if _, err := o.bookings.UpdateStatusIf(bookingID, models.BookingStatusPending, models.BookingStatusConfirmed); err != nil {
		return fmt.Errorf("confirm booking %d: %w", bookingID, err)
	}

	o.logger.Info("Payment completed",
		zap.Uint("booking_id", bookingID),
		zap.String("merchant_request_id", cb.MerchantRequestID),
		zap.String("receipt", receipt))
	return nil
}

func (o *Orchestrator) reconcileFailure(cb *mpesa.StkCallback, bookingID uint) error {
	moved, err := o.requests.Resolve(cb.MerchantRequestID, models.RequestStatusFailed)
	if err != nil {
		return fmt.Errorf("resolve payment request %q: %w", cb.MerchantRequestID, err)
	}
	if moved == 0 {
		o.logger.Info("Failure callback for already-resolved payment request, ignoring",
			zap.String("merchant_request_id", cb.MerchantRequestID),
			zap.Uint("booking_id", bookingID))
		return nil
	}

	if _, err := o.payments.FailPendingByBooking(bookingID); err != nil {
		return fmt.Errorf("fail pending payment for booking %d: %w", bookingID, err)
	}

	o.logger.Info("Payment failed",
		zap.Uint("booking_id", bookingID),
		zap.String("merchant_request_id", cb.MerchantRequestID),
		zap.Int("result_code", cb.ResultCode),
		zap.String("result_desc", cb.ResultDesc))
	return nil
}

// QueryStatus proxies a synchronous status poll for client convenience.
func (o *Orchestrator) QueryStatus(ctx context.Context, checkoutRequestID string) (*mpesa.StkQueryResponse, error) {
	token, err := o.gateway.GetAccessToken(ctx)
	if err != nil {
		return nil, err
	}
	return o.gateway.QueryStatus(ctx, token, checkoutRequestID)
}

// History is the read-only projection of a booking's payment activity.
type History struct {
	Payments []models.Payment        `json:"payments"`
	Requests []models.PaymentRequest `json:"mpesaRequests"`
}

// GetHistory returns all payment attempts and push requests for a booking.
func (o *Orchestrator) GetHistory(bookingID uint) (*History, error) {
	payments, err := o.payments.FindByBookingID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("load payments for booking %d: %w", bookingID, err)
	}
	requests, err := o.requests.FindByBookingID(bookingID)
	if err != nil {
		return nil, fmt.Errorf("load payment requests for booking %d: %w", bookingID, err)
	}
	return &History{Payments: payments, Requests: requests}, nil
}
