package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"quickride/internal/models"
	"quickride/internal/mpesa"
	"quickride/internal/payment"
)

// Minimal stores: enough for the unknown-request reconciliation path.

type stubBookingStore struct{}

func (stubBookingStore) FindByID(uint) (*models.Booking, error) { return nil, gorm.ErrRecordNotFound }
func (stubBookingStore) UpdateStatusIf(uint, string, string) (int64, error) {
	return 0, nil
}

type stubPaymentStore struct{}

func (stubPaymentStore) Create(*models.Payment) error                   { return nil }
func (stubPaymentStore) FindByBookingID(uint) ([]models.Payment, error) { return nil, nil }
func (stubPaymentStore) FindPendingByBooking(uint) (*models.Payment, error) {
	return nil, gorm.ErrRecordNotFound
}
func (stubPaymentStore) HasCompleted(uint) (bool, error) { return false, nil }
func (stubPaymentStore) MarkCompleted(uint, string, time.Time) (int64, error) {
	return 0, nil
}
func (stubPaymentStore) FailPendingByBooking(uint) (int64, error) { return 0, nil }

type stubRequestStore struct{}

func (stubRequestStore) Create(*models.PaymentRequest) error { return nil }
func (stubRequestStore) FindByMerchantRequestID(string) (*models.PaymentRequest, error) {
	return nil, gorm.ErrRecordNotFound
}
func (stubRequestStore) FindByBookingID(uint) ([]models.PaymentRequest, error) { return nil, nil }
func (stubRequestStore) Resolve(string, string) (int64, error)                 { return 0, nil }
func (stubRequestStore) FailPendingByBooking(uint) (int64, error)              { return 0, nil }

type stubGateway struct{}

func (stubGateway) GetAccessToken(context.Context) (string, error) { return "", nil }
func (stubGateway) SubmitPushPayment(context.Context, string, mpesa.StkPushRequest) (*mpesa.StkPushResponse, error) {
	return nil, nil
}
func (stubGateway) QueryStatus(context.Context, string, string) (*mpesa.StkQueryResponse, error) {
	return nil, nil
}

func newCallbackHandler() *CallbackHandler {
	orch := payment.NewOrchestrator(stubBookingStore{}, stubPaymentStore{}, stubRequestStore{}, stubGateway{}, zap.NewNop())
	return NewCallbackHandler(orch, zap.NewNop())
}

func postCallback(t *testing.T, h *CallbackHandler, body string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/mpesa/callback", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	require.NoError(t, h.StkCallback(e.NewContext(req, rec)))
	return rec
}

func assertAck(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(0), body["ResultCode"])
	assert.Equal(t, "Success", body["ResultDesc"])
}

func TestStkCallbackAcksUnknownRequest(t *testing.T) {
	rec := postCallback(t, newCallbackHandler(), `{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "ws_CO_191220191020363925",
				"ResultCode": 0,
				"ResultDesc": "The service request is processed successfully."
			}
		}
	}`)
	assertAck(t, rec)
}

func TestStkCallbackAcksGarbageBody(t *testing.T) {
	rec := postCallback(t, newCallbackHandler(), `this is not json`)
	assertAck(t, rec)
}

func TestStkCallbackAcksEmptyEnvelope(t *testing.T) {
	rec := postCallback(t, newCallbackHandler(), `{"Body":{"stkCallback":{}}}`)
	assertAck(t, rec)
}

func TestStkCallbackAcksFailureResult(t *testing.T) {
	rec := postCallback(t, newCallbackHandler(), `{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "ws_CO_191220191020363925",
				"ResultCode": 1032,
				"ResultDesc": "Request cancelled by user."
			}
		}
	}`)
	assertAck(t, rec)
}
