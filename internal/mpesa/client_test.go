package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(baseURL string) *Client {
	c := NewClient(Config{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "174379",
		Passkey:        "passkey123",
		CallbackURL:    "https://example.com/api/payments/mpesa/callback",
		Environment:    "sandbox",
		BaseURL:        baseURL,
	})
	c.now = func() time.Time {
		return time.Date(2024, 6, 1, 12, 30, 45, 0, time.UTC)
	}
	return c
}

func TestGetAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/v1/generate", r.URL.Path)
		assert.Equal(t, "client_credentials", r.URL.Query().Get("grant_type"))

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"access_token":"token-abc","expires_in":"3599"}`)
	}))
	defer srv.Close()

	token, err := testClient(srv.URL).GetAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-abc", token)
}

func TestGetAccessTokenRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).GetAccessToken(context.Background())
	require.Error(t, err)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
}

func TestSubmitPushPayment(t *testing.T) {
	var captured map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mpesa/stkpush/v1/processrequest", r.URL.Path)
		assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"MerchantRequestID": "29115-34620561-1",
			"CheckoutRequestID": "ws_CO_191220191020363925",
			"ResponseCode": "0",
			"ResponseDescription": "Success. Request accepted for processing",
			"CustomerMessage": "Success. Request accepted for processing"
		}`)
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).SubmitPushPayment(context.Background(), "token-abc", StkPushRequest{
		BookingID:        42,
		Phone:            "254712345678",
		Amount:           1500.75,
		AccountReference: "QuickRide-42",
		Description:      "Payment for car rental QR-1-AB",
	})
	require.NoError(t, err)
	assert.Equal(t, "29115-34620561-1", resp.MerchantRequestID)
	assert.Equal(t, "ws_CO_191220191020363925", resp.CheckoutRequestID)

	assert.Equal(t, "174379", captured["BusinessShortCode"])
	assert.Equal(t, "CustomerPayBillOnline", captured["TransactionType"])
	assert.Equal(t, float64(1500), captured["Amount"]) // fractions floored
	assert.Equal(t, "254712345678", captured["PartyA"])
	assert.Equal(t, "174379", captured["PartyB"])
	assert.Equal(t, "254712345678", captured["PhoneNumber"])
	assert.Equal(t, "QuickRide-42", captured["AccountReference"])
	assert.Equal(t, "https://example.com/api/payments/mpesa/callback", captured["CallBackURL"])

	// Password is base64(shortcode + passkey + timestamp) with the frozen clock.
	assert.Equal(t, "20240601123045", captured["Timestamp"])
	decoded, err := base64.StdEncoding.DecodeString(captured["Password"].(string))
	require.NoError(t, err)
	assert.Equal(t, "174379passkey12320240601123045", string(decoded))
}

func TestSubmitPushPaymentNonZeroResponseCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"ResponseCode":"1","ResponseDescription":"Insufficient funds"}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).SubmitPushPayment(context.Background(), "token-abc", StkPushRequest{
		Phone:  "254712345678",
		Amount: 100,
	})
	require.Error(t, err)

	var submitErr *SubmitError
	require.ErrorAs(t, err, &submitErr)
	assert.Equal(t, "1", submitErr.Code)
	assert.Equal(t, "Insufficient funds", submitErr.Description)
}

func TestSubmitPushPaymentHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"errorCode":"500.001.1001","errorMessage":"Unable to lock subscriber"}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).SubmitPushPayment(context.Background(), "token-abc", StkPushRequest{
		Phone:  "254712345678",
		Amount: 100,
	})
	require.Error(t, err)

	var submitErr *SubmitError
	require.ErrorAs(t, err, &submitErr)
	assert.Equal(t, http.StatusServiceUnavailable, submitErr.StatusCode)
	assert.Equal(t, "500.001.1001", submitErr.Code)
}

func TestQueryStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/mpesa/stkpushquery/v1/query", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ws_CO_191220191020363925", body["CheckoutRequestID"])

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"ResponseCode":"0","ResultCode":"0","ResultDesc":"The service request is processed successfully."}`)
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).QueryStatus(context.Background(), "token-abc", "ws_CO_191220191020363925")
	require.NoError(t, err)
	assert.Equal(t, "0", resp.ResultCode)
}
