package mpesa

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"quickride/internal/pkg/httpclient"
)

// Daraja endpoints.
const (
	sandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	productionBaseURL = "https://api.safaricom.co.ke"

	transactionType = "CustomerPayBillOnline"
)

// Config holds the Daraja credentials and environment selection. BaseURL
// overrides the environment-derived URL when set; tests point it at a fake
// server.
type Config struct {
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string
	Environment    string // "sandbox" or "production"
	BaseURL        string
}

func (c Config) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	if c.Environment == "production" {
		return productionBaseURL
	}
	return sandboxBaseURL
}

// Client talks to the Daraja STK push API. It owns all network interaction
// with the provider; callers compose it with persistence.
type Client struct {
	cfg  Config
	http *httpclient.Client

	// now is swappable for deterministic password/timestamp tests.
	now func() time.Time
}

// NewClient creates a Daraja client from explicit configuration.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:  cfg,
		http: httpclient.New().WithTimeout(30 * time.Second).WithoutRetries(),
		now:  time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// GetAccessToken exchanges the configured consumer credentials for a
// short-lived bearer token. The token is not cached here; callers needing
// reuse must cache externally with a TTL below the provider's stated
// lifetime.
func (c *Client) GetAccessToken(ctx context.Context) (string, error) {
	resp, err := c.http.Request().
		SetContext(ctx).
		SetBasicAuth(c.cfg.ConsumerKey, c.cfg.ConsumerSecret).
		Get(c.baseURL() + "/oauth/v1/generate?grant_type=client_credentials")
	if err != nil {
		return "", &AuthError{Err: err}
	}
	if !resp.IsSuccess() {
		return "", &AuthError{StatusCode: resp.StatusCode()}
	}

	var body tokenResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", &AuthError{Err: fmt.Errorf("malformed token response: %w", err)}
	}
	if body.AccessToken == "" {
		return "", &AuthError{Err: fmt.Errorf("empty access token in response")}
	}
	return body.AccessToken, nil
}

// StkPushRequest describes one push-payment attempt.
type StkPushRequest struct {
	BookingID        uint
	Phone            string // already normalized by NormalizePhone
	Amount           float64
	AccountReference string
	Description      string
}

// StkPushResponse is the provider's immediate acknowledgment. It is proof
// the request was accepted for processing, not the payment outcome; the
// outcome arrives later via callback.
type StkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`

	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// SubmitPushPayment posts an STK push request with bearer auth. Fractional
// amounts are floored: Daraja only accepts whole currency units.
func (c *Client) SubmitPushPayment(ctx context.Context, token string, req StkPushRequest) (*StkPushResponse, error) {
	timestamp := c.timestamp()
	payload := map[string]interface{}{
		"BusinessShortCode": c.cfg.ShortCode,
		"Password":          c.password(timestamp),
		"Timestamp":         timestamp,
		"TransactionType":   transactionType,
		"Amount":            int64(math.Floor(req.Amount)),
		"PartyA":            req.Phone,
		"PartyB":            c.cfg.ShortCode,
		"PhoneNumber":       req.Phone,
		"CallBackURL":       c.cfg.CallbackURL,
		"AccountReference":  req.AccountReference,
		"TransactionDesc":   req.Description,
	}

	resp, err := c.http.Request().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(c.baseURL() + "/mpesa/stkpush/v1/processrequest")
	if err != nil {
		return nil, &SubmitError{Err: err}
	}

	var body StkPushResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, &SubmitError{StatusCode: resp.StatusCode(), Err: fmt.Errorf("malformed response: %w", err)}
	}
	if !resp.IsSuccess() {
		return nil, &SubmitError{StatusCode: resp.StatusCode(), Code: body.ErrorCode, Description: body.ErrorMessage}
	}
	if body.ResponseCode != "0" {
		return nil, &SubmitError{StatusCode: resp.StatusCode(), Code: body.ResponseCode, Description: body.ResponseDescription}
	}

	return &body, nil
}

// StkQueryResponse is the provider's synchronous status report.
type StkQueryResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	ResultCode          string `json:"ResultCode"`
	ResultDesc          string `json:"ResultDesc"`

	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// QueryStatus polls the provider for the current state of a push request.
func (c *Client) QueryStatus(ctx context.Context, token, checkoutRequestID string) (*StkQueryResponse, error) {
	timestamp := c.timestamp()
	payload := map[string]interface{}{
		"BusinessShortCode": c.cfg.ShortCode,
		"Password":          c.password(timestamp),
		"Timestamp":         timestamp,
		"CheckoutRequestID": checkoutRequestID,
	}

	resp, err := c.http.Request().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(c.baseURL() + "/mpesa/stkpushquery/v1/query")
	if err != nil {
		return nil, &QueryError{Err: err}
	}

	var body StkQueryResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, &QueryError{StatusCode: resp.StatusCode(), Err: fmt.Errorf("malformed response: %w", err)}
	}
	if !resp.IsSuccess() {
		return nil, &QueryError{StatusCode: resp.StatusCode(), Description: body.ErrorMessage}
	}

	return &body, nil
}

func (c *Client) baseURL() string {
	return c.cfg.baseURL()
}

// timestamp is UTC formatted as the 14-digit YYYYMMDDHHmmss form Daraja
// expects in the password scheme.
func (c *Client) timestamp() string {
	return c.now().UTC().Format("20060102150405")
}

func (c *Client) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(c.cfg.ShortCode + c.cfg.Passkey + timestamp))
}
