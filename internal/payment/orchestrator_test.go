package payment

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"quickride/internal/models"
	"quickride/internal/mpesa"
)

// ── Fakes ─────────────────────────────────────────────────────────────

type fakeBookingStore struct {
	bookings map[uint]*models.Booking
}

func (f *fakeBookingStore) FindByID(id uint) (*models.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *b
	return &copied, nil
}

func (f *fakeBookingStore) UpdateStatusIf(id uint, from, to string) (int64, error) {
	b, ok := f.bookings[id]
	if !ok || b.Status != from {
		return 0, nil
	}
	b.Status = to
	return 1, nil
}

type fakePaymentStore struct {
	payments []*models.Payment
}

func (f *fakePaymentStore) Create(p *models.Payment) error {
	p.ID = uint(len(f.payments) + 1)
	f.payments = append(f.payments, p)
	return nil
}

func (f *fakePaymentStore) FindByBookingID(bookingID uint) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range f.payments {
		if p.BookingID == bookingID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePaymentStore) FindPendingByBooking(bookingID uint) (*models.Payment, error) {
	for _, p := range f.payments {
		if p.BookingID == bookingID && p.Status == models.PaymentStatusPending {
			copied := *p
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePaymentStore) HasCompleted(bookingID uint) (bool, error) {
	for _, p := range f.payments {
		if p.BookingID == bookingID && p.Status == models.PaymentStatusCompleted {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePaymentStore) MarkCompleted(bookingID uint, transactionID string, paidAt time.Time) (int64, error) {
	var n int64
	for _, p := range f.payments {
		if p.BookingID == bookingID && p.Status == models.PaymentStatusPending {
			p.Status = models.PaymentStatusCompleted
			txID := transactionID
			p.TransactionID = &txID
			at := paidAt
			p.PaymentDate = &at
			n++
		}
	}
	return n, nil
}

func (f *fakePaymentStore) FailPendingByBooking(bookingID uint) (int64, error) {
	var n int64
	for _, p := range f.payments {
		if p.BookingID == bookingID && p.Status == models.PaymentStatusPending {
			p.Status = models.PaymentStatusFailed
			n++
		}
	}
	return n, nil
}

type fakeRequestStore struct {
	requests []*models.PaymentRequest
}

func (f *fakeRequestStore) Create(r *models.PaymentRequest) error {
	// Mirrors the unique index on pending_booking_id: at most one pending
	// attempt per booking.
	for _, existing := range f.requests {
		if existing.BookingID == r.BookingID && existing.Status == models.RequestStatusPending {
			return gorm.ErrDuplicatedKey
		}
	}
	r.ID = uint(len(f.requests) + 1)
	r.CreatedAt = time.Now()
	f.requests = append(f.requests, r)
	return nil
}

func (f *fakeRequestStore) FindByMerchantRequestID(merchantRequestID string) (*models.PaymentRequest, error) {
	for _, r := range f.requests {
		if r.MerchantRequestID == merchantRequestID {
			copied := *r
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRequestStore) FindByBookingID(bookingID uint) ([]models.PaymentRequest, error) {
	var out []models.PaymentRequest
	for _, r := range f.requests {
		if r.BookingID == bookingID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRequestStore) Resolve(merchantRequestID, status string) (int64, error) {
	for _, r := range f.requests {
		if r.MerchantRequestID == merchantRequestID && r.Status == models.RequestStatusPending {
			r.Status = status
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeRequestStore) FailPendingByBooking(bookingID uint) (int64, error) {
	var n int64
	for _, r := range f.requests {
		if r.BookingID == bookingID && r.Status == models.RequestStatusPending {
			r.Status = models.RequestStatusFailed
			n++
		}
	}
	return n, nil
}

type fakeGateway struct {
	tokenCalls  int
	submitCalls int
	lastSubmit  mpesa.StkPushRequest

	tokenErr  error
	submitErr error
}

func (f *fakeGateway) GetAccessToken(ctx context.Context) (string, error) {
	f.tokenCalls++
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	return "token", nil
}

func (f *fakeGateway) SubmitPushPayment(ctx context.Context, token string, req mpesa.StkPushRequest) (*mpesa.StkPushResponse, error) {
	f.submitCalls++
	f.lastSubmit = req
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &mpesa.StkPushResponse{
		MerchantRequestID: fmt.Sprintf("merchant-%d", f.submitCalls),
		CheckoutRequestID: fmt.Sprintf("checkout-%d", f.submitCalls),
		ResponseCode:      "0",
		CustomerMessage:   "Success. Request accepted for processing",
	}, nil
}

func (f *fakeGateway) QueryStatus(ctx context.Context, token, checkoutRequestID string) (*mpesa.StkQueryResponse, error) {
	return &mpesa.StkQueryResponse{CheckoutRequestID: checkoutRequestID, ResultCode: "0"}, nil
}

// ── Fixture ───────────────────────────────────────────────────────────

type fixture struct {
	bookings *fakeBookingStore
	payments *fakePaymentStore
	requests *fakeRequestStore
	gateway  *fakeGateway
	orch     *Orchestrator
}

func newFixture() *fixture {
	f := &fixture{
		bookings: &fakeBookingStore{bookings: map[uint]*models.Booking{
			42: {
				ID:               42,
				UserID:           7,
				CarID:            3,
				TotalAmount:      1500,
				Status:           models.BookingStatusPending,
				BookingReference: "QR-1717171717-A3F9",
			},
		}},
		payments: &fakePaymentStore{},
		requests: &fakeRequestStore{},
		gateway:  &fakeGateway{},
	}
	f.orch = NewOrchestrator(f.bookings, f.payments, f.requests, f.gateway, zap.NewNop())
	return f
}

func successCallback(merchantRequestID, checkoutRequestID, receipt string, amount float64) *mpesa.StkCallback {
	return &mpesa.StkCallback{
		MerchantRequestID: merchantRequestID,
		CheckoutRequestID: checkoutRequestID,
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
		CallbackMetadata: &mpesa.CallbackMetadata{Item: []mpesa.MetadataItem{
			{Name: mpesa.MetaAmount, Value: amount},
			{Name: mpesa.MetaMpesaReceipt, Value: receipt},
		}},
	}
}

// ── Initiate ──────────────────────────────────────────────────────────

func TestInitiate(t *testing.T) {
	f := newFixture()

	result, err := f.orch.Initiate(context.Background(), 42, "0712345678", 1500)
	require.NoError(t, err)
	assert.Equal(t, "merchant-1", result.MerchantRequestID)
	assert.Equal(t, "checkout-1", result.CheckoutRequestID)

	// Phone normalized before it reaches the gateway.
	assert.Equal(t, "254712345678", f.gateway.lastSubmit.Phone)
	assert.Equal(t, "QuickRide-42", f.gateway.lastSubmit.AccountReference)

	require.Len(t, f.requests.requests, 1)
	assert.Equal(t, models.RequestStatusPending, f.requests.requests[0].Status)
	assert.NotEmpty(t, f.requests.requests[0].AttemptID)
	require.Len(t, f.payments.payments, 1)
	assert.Equal(t, models.PaymentStatusPending, f.payments.payments[0].Status)
	assert.Equal(t, models.PaymentMethodMpesa, f.payments.payments[0].PaymentMethod)
}

func TestInitiateBookingNotFound(t *testing.T) {
	f := newFixture()

	_, err := f.orch.Initiate(context.Background(), 999, "0712345678", 1500)
	assert.ErrorIs(t, err, ErrBookingNotFound)
	assert.Zero(t, f.gateway.tokenCalls)
}

func TestInitiateAlreadyPaid(t *testing.T) {
	f := newFixture()
	f.payments.payments = append(f.payments.payments, &models.Payment{
		BookingID: 42,
		Status:    models.PaymentStatusCompleted,
	})

	_, err := f.orch.Initiate(context.Background(), 42, "0712345678", 1500)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	assert.Zero(t, f.gateway.tokenCalls)
}

func TestInitiateRejectsBadInput(t *testing.T) {
	f := newFixture()

	_, err := f.orch.Initiate(context.Background(), 42, "0712345678", 0)
	var verr *mpesa.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.orch.Initiate(context.Background(), 42, "not-a-phone", 1500)
	assert.ErrorAs(t, err, &verr)

	assert.Zero(t, f.gateway.tokenCalls)
	assert.Empty(t, f.requests.requests)
}

func TestInitiateGatewayFailureLeavesNoState(t *testing.T) {
	f := newFixture()
	f.gateway.submitErr = &mpesa.SubmitError{StatusCode: 503}

	_, err := f.orch.Initiate(context.Background(), 42, "0712345678", 1500)
	var initErr *InitiationError
	require.ErrorAs(t, err, &initErr)

	assert.Empty(t, f.requests.requests)
	assert.Empty(t, f.payments.payments)
}

func TestInitiateConcurrentLosesRace(t *testing.T) {
	f := newFixture()

	_, err := f.orch.Initiate(context.Background(), 42, "0712345678", 1500)
	require.NoError(t, err)

	_, err = f.orch.Initiate(context.Background(), 42, "0712345678", 1500)
	assert.ErrorIs(t, err, ErrConcurrentInitiation)

	// Only the winner's rows exist.
	assert.Len(t, f.requests.requests, 1)
	assert.Len(t, f.payments.payments, 1)
}

// ── Reconcile ─────────────────────────────────────────────────────────

func TestReconcileSuccess(t *testing.T) {
	f := newFixture()

	result, err := f.orch.Initiate(context.Background(), 42, "0712345678", 1500)
	require.NoError(t, err)

	cb := successCallback(result.MerchantRequestID, result.CheckoutRequestID, "NLJ7RT61SV", 1500)
	require.NoError(t, f.orch.Reconcile(cb))

	req := f.requests.requests[0]
	assert.Equal(t, models.RequestStatusCompleted, req.Status)

	pay := f.payments.payments[0]
	assert.Equal(t, models.PaymentStatusCompleted, pay.Status)
	require.NotNil(t, pay.TransactionID)
	assert.Equal(t, "NLJ7RT61SV", *pay.TransactionID)
	assert.NotNil(t, pay.PaymentDate)

	assert.Equal(t, models.BookingStatusConfirmed, f.bookings.bookings[42].Status)
}

func TestReconcileDuplicateIsNoOp(t *testing.T) {
	f := newFixture()

	result, err := f.orch.Initiate(context.Background(), 42, "0712345678", 1500)
	require.NoError(t, err)

	cb := successCallback(result.MerchantRequestID, result.CheckoutRequestID, "NLJ7RT61SV", 1500)
	require.NoError(t, f.orch.Reconcile(cb))

	// Redelivery with a different receipt must not reapply.
	dup := successCallback(result.MerchantRequestID, result.CheckoutRequestID, "DIFFERENT", 1500)
	require.NoError(t, f.orch.Reconcile(dup))

	pay := f.payments.payments[0]
	assert.Equal(t, models.PaymentStatusCompleted, pay.Status)
	assert.Equal(t, "NLJ7RT61SV", *pay.TransactionID)
}

func TestReconcileFailure(t *testing.T) {
	f := newFixture()

	result, err := f.orch.Initiate(context.Background(), 42, "0712345678", 1500)
	require.NoError(t, err)

	require.NoError(t, f.orch.Reconcile(&mpesa.StkCallback{
		MerchantRequestID: result.MerchantRequestID,
		CheckoutRequestID: result.CheckoutRequestID,
		ResultCode:        1032,
		ResultDesc:        "Request cancelled by user.",
	}))

	assert.Equal(t, models.RequestStatusFailed, f.requests.requests[0].Status)
	assert.Equal(t, models.PaymentStatusFailed, f.payments.payments[0].Status)
	assert.Equal(t, models.BookingStatusPending, f.bookings.bookings[42].Status)
}

func TestReconcileUnknownMerchantID(t *testing.T) {
	f := newFixture()

	err := f.orch.Reconcile(successCallback("unknown-merchant", "unknown-checkout", "RCPT", 100))
	assert.NoError(t, err)
	assert.Empty(t, f.payments.payments)
}

func TestReconcileAfterFailureDoesNotResurrect(t *testing.T) {
	f := newFixture()

	result, err := f.orch.Initiate(context.Background(), 42, "0712345678", 1500)
	require.NoError(t, err)

	require.NoError(t, f.orch.Reconcile(&mpesa.StkCallback{
		MerchantRequestID: result.MerchantRequestID,
		ResultCode:        1037,
		ResultDesc:        "DS timeout.",
	}))

	// A late success for the same attempt must not flip it back.
	require.NoError(t, f.orch.Reconcile(successCallback(result.MerchantRequestID, result.CheckoutRequestID, "RCPT", 1500)))

	assert.Equal(t, models.RequestStatusFailed, f.requests.requests[0].Status)
	assert.Equal(t, models.PaymentStatusFailed, f.payments.payments[0].Status)
	assert.Equal(t, models.BookingStatusPending, f.bookings.bookings[42].Status)
}

// ── Retry ─────────────────────────────────────────────────────────────

func TestRetrySupersedesPendingAttempt(t *testing.T) {
	f := newFixture()

	first, err := f.orch.Initiate(context.Background(), 42, "0712345678", 1500)
	require.NoError(t, err)

	second, err := f.orch.Retry(context.Background(), 42, "0712345678", 1500)
	require.NoError(t, err)
	assert.NotEqual(t, first.MerchantRequestID, second.MerchantRequestID)

	// Old attempt failed, new one pending, each with its own attempt ID.
	assert.Equal(t, models.RequestStatusFailed, f.requests.requests[0].Status)
	assert.Equal(t, models.RequestStatusPending, f.requests.requests[1].Status)
	assert.NotEmpty(t, f.requests.requests[1].AttemptID)
	assert.NotEqual(t, f.requests.requests[0].AttemptID, f.requests.requests[1].AttemptID)
	assert.Equal(t, models.PaymentStatusFailed, f.payments.payments[0].Status)
	assert.Equal(t, models.PaymentStatusPending, f.payments.payments[1].Status)
}

func TestRetryThenStaleCallbackIsNoOp(t *testing.T) {
	f := newFixture()

	first, err := f.orch.Initiate(context.Background(), 42, "0712345678", 1500)
	require.NoError(t, err)
	second, err := f.orch.Retry(context.Background(), 42, "0712345678", 1500)
	require.NoError(t, err)

	// The superseded attempt's callback arrives late; nothing changes.
	require.NoError(t, f.orch.Reconcile(successCallback(first.MerchantRequestID, first.CheckoutRequestID, "STALE", 1500)))
	assert.Equal(t, models.RequestStatusFailed, f.requests.requests[0].Status)
	assert.Equal(t, models.PaymentStatusPending, f.payments.payments[1].Status)
	assert.Equal(t, models.BookingStatusPending, f.bookings.bookings[42].Status)

	// The new attempt's callback still completes normally.
	require.NoError(t, f.orch.Reconcile(successCallback(second.MerchantRequestID, second.CheckoutRequestID, "FRESH", 1500)))
	assert.Equal(t, models.RequestStatusCompleted, f.requests.requests[1].Status)
	assert.Equal(t, models.PaymentStatusCompleted, f.payments.payments[1].Status)
	assert.Equal(t, models.BookingStatusConfirmed, f.bookings.bookings[42].Status)
}

// ── History ───────────────────────────────────────────────────────────

func TestGetHistory(t *testing.T) {
	f := newFixture()

	_, err := f.orch.Initiate(context.Background(), 42, "0712345678", 1500)
	require.NoError(t, err)
	_, err = f.orch.Retry(context.Background(), 42, "0712345678", 1500)
	require.NoError(t, err)

	history, err := f.orch.GetHistory(42)
	require.NoError(t, err)
	assert.Len(t, history.Payments, 2)
	assert.Len(t, history.Requests, 2)
}

func TestInitiateAuthFailure(t *testing.T) {
	f := newFixture()
	f.gateway.tokenErr = &mpesa.AuthError{StatusCode: 401}

	_, err := f.orch.Initiate(context.Background(), 42, "0712345678", 1500)
	var initErr *InitiationError
	require.ErrorAs(t, err, &initErr)

	var authErr *mpesa.AuthError
	assert.True(t, errors.As(err, &authErr))
	assert.Zero(t, f.gateway.submitCalls)
}
