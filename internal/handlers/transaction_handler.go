package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/majipay/backend/internal/models"
	"github.com/majipay/backend/internal/webhooks"
)

// LedgerStore is the idempotent transaction store
type LedgerStore interface {
	InsertIfAbsent(ctx context.Context, tx *models.Transaction) (bool, error)
	Recent(ctx context.Context, limit int) ([]models.Transaction, error)
}

// TransactionHandler receives payment provider callbacks and serves the
// recent-transactions listing.
type TransactionHandler struct {
	ledger LedgerStore
	sms    SMSSender
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(ledger LedgerStore, sms SMSSender) *TransactionHandler {
	return &TransactionHandler{ledger: ledger, sms: sms}
}

const recentTransactionsLimit = 50

// DarajaCallback handles payment result webhooks. The route name is kept
// for compatibility with webhook URLs already registered upstream; it
// accepts either provider's payload. It always answers 200 — a non-2xx
// would trigger a provider retry storm.
func (h *TransactionHandler) DarajaCallback(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		log.Printf("Failed to read callback body: %v", err)
		c.JSON(http.StatusOK, gin.H{"status": "error"})
		return
	}

	tx, err := webhooks.Normalize(raw)
	if err != nil {
		log.Printf("Ignoring callback: %v", err)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	inserted, err := h.ledger.InsertIfAbsent(c.Request.Context(), tx)
	if err != nil {
		// Acknowledged anyway: losing one audit row beats an endless
		// redelivery loop. Pair with alerting in production.
		log.Printf("Failed to persist %s callback %s: %v", tx.Provider, tx.CheckoutRequestID, err)
		c.JSON(http.StatusOK, gin.H{"status": "error"})
		return
	}
	if !inserted {
		log.Printf("Duplicate %s callback %s, already recorded", tx.Provider, tx.CheckoutRequestID)
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})

	if inserted && tx.ResultCode == models.TransactionResultSuccess && tx.PhoneNumber != nil {
		body := fmt.Sprintf("Payment of KES %.2f received. Thank you!", tx.Amount)
		if tx.ReceiptNumber != nil {
			body = fmt.Sprintf("Payment of KES %.2f received. Ref: %s. Thank you!", tx.Amount, *tx.ReceiptNumber)
		}
		if _, err := h.sms.Send(context.Background(), *tx.PhoneNumber, body); err != nil {
			log.Printf("Failed to send payment confirmation to %s: %v", *tx.PhoneNumber, err)
		}
	}
}

// ListTransactions returns the most recent canonical transactions, newest
// first.
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	txs, err := h.ledger.Recent(c.Request.Context(), recentTransactionsLimit)
	if err != nil {
		log.Printf("Failed to load transactions: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "Failed to load transactions",
		})
		return
	}

	c.JSON(http.StatusOK, txs)
}
