package ledger

import (
	"context"

	"github.com/majipay/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger is the append-only store of canonical transactions. It is the only
// shared mutable state in the service; inserts are deduplicated atomically
// on the natural key so concurrent provider retries cannot create two rows.
type Ledger struct {
	db *gorm.DB
}

// New creates a ledger backed by the given database
func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// InsertIfAbsent writes a transaction unless a row with the same
// checkout_request_id already exists. The uniqueness check rides on the
// database's unique index (ON CONFLICT DO NOTHING), so it holds under
// concurrent submissions. Returns whether a new row was written.
func (l *Ledger) InsertIfAbsent(ctx context.Context, tx *models.Transaction) (bool, error) {
	result := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "checkout_request_id"}},
			DoNothing: true,
		}).
		Create(tx)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Recent returns up to limit transactions, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]models.Transaction, error) {
	txs := make([]models.Transaction, 0, limit)
	err := l.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}
