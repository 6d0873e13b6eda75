package sms

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	c := NewClient("sandbox", "test-api-key", "MAJIPAY")
	c.BaseURL = baseURL
	return c
}

func TestSendSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, messagingEndpoint, r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("apiKey"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "sandbox", r.PostForm.Get("username"))
		assert.Equal(t, "+254712345678", r.PostForm.Get("to"))
		assert.Equal(t, "Hello there", r.PostForm.Get("message"))
		assert.Equal(t, "MAJIPAY", r.PostForm.Get("from"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"SMSMessageData": {"Recipients": [{"status": "Success", "messageId": "ATXid_123"}]}}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	messageID, err := client.Send(context.Background(), "0712345678", "Hello there")
	require.NoError(t, err)
	assert.Equal(t, "ATXid_123", messageID)
}

func TestSendRecipientRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"SMSMessageData": {"Recipients": [{"status": "InvalidPhoneNumber"}]}}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.Send(context.Background(), "0712345678", "Hello")
	assert.Error(t, err)
}

func TestSendProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	_, err := client.Send(context.Background(), "0712345678", "Hello")
	assert.Error(t, err)
}
