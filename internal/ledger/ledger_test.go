package ledger

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/majipay/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestLedger connects to the database named by TEST_DATABASE_URL; the
// idempotence guarantee rides on Postgres's ON CONFLICT handling, so these
// tests are skipped when no database is available.
func setupTestLedger(t *testing.T) *Ledger {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Transaction{}))

	return New(db)
}

func testTransaction(checkoutRequestID string) *models.Transaction {
	return &models.Transaction{
		Provider:          models.TransactionProviderIntaSend,
		MerchantRequestID: "INV-" + checkoutRequestID,
		CheckoutRequestID: checkoutRequestID,
		ResultCode:        models.TransactionResultSuccess,
		ResultDesc:        "Success",
		Amount:            100,
	}
}

func TestInsertIfAbsentDeduplicates(t *testing.T) {
	l := setupTestLedger(t)
	key := uuid.NewString()

	inserted, err := l.InsertIfAbsent(context.Background(), testTransaction(key))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = l.InsertIfAbsent(context.Background(), testTransaction(key))
	require.NoError(t, err)
	assert.False(t, inserted)

	var count int64
	require.NoError(t, l.db.Model(&models.Transaction{}).
		Where("checkout_request_id = ?", key).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestInsertIfAbsentConcurrentRetries(t *testing.T) {
	l := setupTestLedger(t)
	key := uuid.NewString()

	const attempts = 10
	var wg sync.WaitGroup
	results := make(chan bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inserted, err := l.InsertIfAbsent(context.Background(), testTransaction(key))
			if err == nil {
				results <- inserted
			}
		}()
	}
	wg.Wait()
	close(results)

	insertedCount := 0
	for inserted := range results {
		if inserted {
			insertedCount++
		}
	}
	assert.Equal(t, 1, insertedCount)
}

func TestRecentOrdering(t *testing.T) {
	l := setupTestLedger(t)

	first := testTransaction(uuid.NewString())
	second := testTransaction(uuid.NewString())

	_, err := l.InsertIfAbsent(context.Background(), first)
	require.NoError(t, err)
	_, err = l.InsertIfAbsent(context.Background(), second)
	require.NoError(t, err)

	txs, err := l.Recent(context.Background(), 50)
	require.NoError(t, err)
	require.NotEmpty(t, txs)

	for i := 1; i < len(txs); i++ {
		assert.False(t, txs[i-1].CreatedAt.Before(txs[i].CreatedAt))
	}
}
