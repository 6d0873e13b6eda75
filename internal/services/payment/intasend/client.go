package intasend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/majipay/backend/internal/utils"
)

const (
	sandboxBaseURL = "https://sandbox.intasend.com"
	prodBaseURL    = "https://payment.intasend.com"

	stkPushEndpoint = "/api/v1/payment/mpesa-stk-push/"

	defaultTimeout = 15 * time.Second
)

// ErrorKind classifies a push failure
type ErrorKind string

const (
	ErrorKindNetwork           ErrorKind = "network"
	ErrorKindMalformedResponse ErrorKind = "malformed_response"
	ErrorKindDeclined          ErrorKind = "declined"
)

// GatewayError is a failed payment initiation. Callers on the USSD path
// must map it to a generic subscriber-facing message; the wrapped detail is
// for logs only.
type GatewayError struct {
	Kind ErrorKind
	Err  error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway error (%s): %v", e.Kind, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Client calls the IntaSend collection API
type Client struct {
	BaseURL    string
	PublicKey  string
	PrivateKey string
	TestMode   bool
	WebhookURL string
	HTTPClient *http.Client
}

// NewClient creates an IntaSend API client. TestMode selects the sandbox
// environment.
func NewClient(publicKey, privateKey, webhookURL string, testMode bool) *Client {
	baseURL := prodBaseURL
	if testMode {
		baseURL = sandboxBaseURL
	}

	return &Client{
		BaseURL:    baseURL,
		PublicKey:  publicKey,
		PrivateKey: privateKey,
		TestMode:   testMode,
		WebhookURL: webhookURL,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type stkPushRequest struct {
	PublicKey   string  `json:"public_key"`
	PrivateKey  string  `json:"private_key"`
	TestMode    bool    `json:"test_mode"`
	Amount      float64 `json:"amount"`
	PhoneNumber string  `json:"phone_number"`
	APIRef      string  `json:"api_ref"`
	WebhookURL  string  `json:"webhook_url"`
}

// Invoice is the acceptance object the aggregator returns when it has
// queued a push to the subscriber's phone.
type Invoice struct {
	InvoiceID string `json:"invoice_id"`
	State     string `json:"state"`
	APIRef    string `json:"api_ref"`
	Value     string `json:"value"`
}

type stkPushResponse struct {
	Invoice *Invoice `json:"invoice"`
}

// STKPush asks the aggregator to prompt the subscriber's phone for payment.
// The call is detached from the caller's cancellation: once the aggregator
// may have been contacted, a dropped USSD connection must not abort it.
// Success means the push was accepted, not that the payment settled;
// settlement arrives later on the webhook.
func (c *Client) STKPush(ctx context.Context, phone string, amount float64, accountRef string) (*Invoice, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultTimeout)
	defer cancel()

	payload := stkPushRequest{
		PublicKey:   c.PublicKey,
		PrivateKey:  c.PrivateKey,
		TestMode:    c.TestMode,
		Amount:      amount,
		PhoneNumber: utils.NormalizePhone(phone),
		APIRef:      utils.PaymentReference(accountRef),
		WebhookURL:  c.WebhookURL,
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, &GatewayError{Kind: ErrorKindMalformedResponse, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+stkPushEndpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, &GatewayError{Kind: ErrorKindNetwork, Err: err}
	}

	req.Header.Set("Authorization", "Bearer "+c.PrivateKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &GatewayError{Kind: ErrorKindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, &GatewayError{
			Kind: ErrorKindDeclined,
			Err:  fmt.Errorf("push rejected: %s, status: %d", string(body), resp.StatusCode),
		}
	}

	var pushResp stkPushResponse
	if err := json.NewDecoder(resp.Body).Decode(&pushResp); err != nil {
		return nil, &GatewayError{Kind: ErrorKindMalformedResponse, Err: err}
	}
	if pushResp.Invoice == nil {
		return nil, &GatewayError{
			Kind: ErrorKindMalformedResponse,
			Err:  fmt.Errorf("response carries no invoice object"),
		}
	}

	return pushResp.Invoice, nil
}
