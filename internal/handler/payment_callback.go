package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"quickride/internal/mpesa"
	"quickride/internal/payment"
)

// CallbackHandler receives asynchronous Daraja result callbacks.
type CallbackHandler struct {
	orchestrator *payment.Orchestrator
	logger       *zap.Logger
}

func NewCallbackHandler(orchestrator *payment.Orchestrator, logger *zap.Logger) *CallbackHandler {
	return &CallbackHandler{orchestrator: orchestrator, logger: logger}
}

// callbackAck is the acknowledgment Daraja expects. Anything other than a
// 200 makes the provider redeliver, so every path through StkCallback
// returns this body.
var callbackAck = map[string]interface{}{
	"ResultCode": 0,
	"ResultDesc": "Success",
}

// StkCallback handles POST /payments/mpesa/callback. Reconciliation errors
// are logged, never surfaced: redelivery of a malformed or unprocessable
// payload would not fix it.
func (h *CallbackHandler) StkCallback(c echo.Context) error {
	var envelope mpesa.CallbackEnvelope
	if err := c.Bind(&envelope); err != nil {
		h.logger.Warn("Unparseable M-Pesa callback payload", zap.Error(err))
		return c.JSON(http.StatusOK, callbackAck)
	}

	cb := &envelope.Body.StkCallback
	if cb.MerchantRequestID == "" && cb.CheckoutRequestID == "" {
		h.logger.Warn("M-Pesa callback missing request identifiers")
		return c.JSON(http.StatusOK, callbackAck)
	}

	if err := h.orchestrator.Reconcile(cb); err != nil {
		h.logger.Error("M-Pesa callback reconciliation failed",
			zap.String("merchantRequestId", cb.MerchantRequestID),
			zap.String("checkoutRequestId", cb.CheckoutRequestID),
			zap.Int("resultCode", cb.ResultCode),
			zap.Error(err))
	}

	return c.JSON(http.StatusOK, callbackAck)
}
