package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/majipay/backend/internal/utils"
)

const (
	sandboxBaseURL = "https://api.sandbox.africastalking.com"
	prodBaseURL    = "https://api.africastalking.com"

	messagingEndpoint = "/version1/messaging"

	defaultTimeout = 10 * time.Second
)

// Client sends text messages through the Africa's Talking messaging API.
// Delivery is best effort: callers log failures and carry on with the
// response they already computed.
type Client struct {
	BaseURL    string
	Username   string
	APIKey     string
	SenderID   string
	HTTPClient *http.Client
}

// NewClient creates an SMS client. The sandbox username routes traffic to
// the provider's test environment.
func NewClient(username, apiKey, senderID string) *Client {
	baseURL := prodBaseURL
	if username == "sandbox" {
		baseURL = sandboxBaseURL
	}

	return &Client{
		BaseURL:    baseURL,
		Username:   username,
		APIKey:     apiKey,
		SenderID:   senderID,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type messagingResponse struct {
	SMSMessageData struct {
		Recipients []struct {
			Status    string `json:"status"`
			MessageID string `json:"messageId"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

// Send delivers one message and returns the provider's message ID.
func (c *Client) Send(ctx context.Context, to, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	form := url.Values{}
	form.Set("username", c.Username)
	form.Set("to", "+"+utils.NormalizePhone(to))
	form.Set("message", message)
	if c.SenderID != "" {
		form.Set("from", c.SenderID)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+messagingEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}

	req.Header.Set("apiKey", c.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed to send SMS: %s, status: %d", string(body), resp.StatusCode)
	}

	var msgResp messagingResponse
	if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
		return "", err
	}

	recipients := msgResp.SMSMessageData.Recipients
	if len(recipients) == 0 {
		return "", fmt.Errorf("provider accepted no recipients")
	}
	if recipients[0].Status != "Success" {
		return "", fmt.Errorf("provider rejected recipient: %s", recipients[0].Status)
	}

	return recipients[0].MessageID, nil
}
