package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func createTransactionsTableMigration() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_transactions_table",
		Migrate: func(tx *gorm.DB) error {
			// The unique index on checkout_request_id is what makes
			// callback inserts idempotent under concurrent retries.
			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS transactions (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
					provider VARCHAR(20) NOT NULL,
					merchant_request_id VARCHAR(100),
					checkout_request_id VARCHAR(100) NOT NULL,
					result_code VARCHAR(20) NOT NULL DEFAULT 'pending',
					result_desc VARCHAR(255),
					amount DECIMAL(20,2) NOT NULL DEFAULT 0,
					receipt_number VARCHAR(100),
					phone_number VARCHAR(20),
					transaction_date VARCHAR(50),
					raw_callback JSONB,
					CONSTRAINT idx_transactions_checkout_request_id UNIQUE (checkout_request_id)
				)
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec("DROP TABLE IF EXISTS transactions").Error
		},
	}
}
