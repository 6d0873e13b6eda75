package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/majipay/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockLedger is a mock implementation of the LedgerStore interface
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) InsertIfAbsent(ctx context.Context, tx *models.Transaction) (bool, error) {
	args := m.Called(ctx, tx)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedger) Recent(ctx context.Context, limit int) ([]models.Transaction, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func setupCallbackRouter(ledger *MockLedger, sender *stubSender) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	handler := NewTransactionHandler(ledger, sender)
	router.POST("/daraja-callback", handler.DarajaCallback)
	router.GET("/transactions", handler.ListTransactions)

	return router
}

func postCallback(router *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/daraja-callback", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

const aggregatorCallback = `{
	"invoice": {
		"invoice_id": "INV-001",
		"state": "COMPLETE",
		"value": "500",
		"mpesa_reference": "SFR9K2L1XQ"
	},
	"intasend_tracking_id": "track-abc-123",
	"customer_phone_number": "0712345678"
}`

func TestDarajaCallbackPersistsTransaction(t *testing.T) {
	ledger := new(MockLedger)
	sender := &stubSender{}
	router := setupCallbackRouter(ledger, sender)

	ledger.On("InsertIfAbsent", mock.Anything, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.CheckoutRequestID == "track-abc-123" &&
			tx.ResultCode == models.TransactionResultSuccess &&
			tx.Amount == 500.0
	})).Return(true, nil)

	w := postCallback(router, aggregatorCallback)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "success"}`, w.Body.String())
	ledger.AssertExpectations(t)

	// A settled payment triggers a best-effort confirmation message.
	require.Len(t, sender.messages, 1)
	assert.Equal(t, "254712345678", sender.messages[0].to)
	assert.Contains(t, sender.messages[0].body, "500.00")
}

func TestDarajaCallbackDuplicateStillAcknowledged(t *testing.T) {
	ledger := new(MockLedger)
	sender := &stubSender{}
	router := setupCallbackRouter(ledger, sender)

	ledger.On("InsertIfAbsent", mock.Anything, mock.Anything).Return(false, nil)

	w := postCallback(router, aggregatorCallback)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "success"}`, w.Body.String())
	// No second confirmation for a retried callback.
	assert.Empty(t, sender.messages)
}

func TestDarajaCallbackUnrecognizedPayloadIgnored(t *testing.T) {
	ledger := new(MockLedger)
	sender := &stubSender{}
	router := setupCallbackRouter(ledger, sender)

	w := postCallback(router, `{"unexpected": "shape"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ignored"}`, w.Body.String())
	ledger.AssertNotCalled(t, "InsertIfAbsent", mock.Anything, mock.Anything)
}

func TestDarajaCallbackPersistenceFailureStillAcknowledged(t *testing.T) {
	ledger := new(MockLedger)
	sender := &stubSender{}
	router := setupCallbackRouter(ledger, sender)

	ledger.On("InsertIfAbsent", mock.Anything, mock.Anything).Return(false, assert.AnError)

	w := postCallback(router, aggregatorCallback)

	// Never a non-2xx: the provider would retry forever.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "error"}`, w.Body.String())
}

func TestListTransactions(t *testing.T) {
	ledger := new(MockLedger)
	sender := &stubSender{}
	router := setupCallbackRouter(ledger, sender)

	ledger.On("Recent", mock.Anything, 50).Return([]models.Transaction{
		{Provider: models.TransactionProviderIntaSend, CheckoutRequestID: "track-2"},
		{Provider: models.TransactionProviderDaraja, CheckoutRequestID: "ws_CO_1"},
	}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/transactions", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var txs []models.Transaction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &txs))
	require.Len(t, txs, 2)
	assert.Equal(t, "track-2", txs[0].CheckoutRequestID)
}

func TestListTransactionsFailure(t *testing.T) {
	ledger := new(MockLedger)
	sender := &stubSender{}
	router := setupCallbackRouter(ledger, sender)

	ledger.On("Recent", mock.Anything, 50).Return(nil, assert.AnError)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/transactions", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
