package models

// TransactionProvider identifies which payment provider reported a transaction
type TransactionProvider string

const (
	TransactionProviderDaraja   TransactionProvider = "daraja"   // Safaricom carrier-billing STK callback
	TransactionProviderIntaSend TransactionProvider = "intasend" // IntaSend aggregator callback
)

// TransactionResult is the canonical outcome of a payment, folded from
// provider-specific codes and states
type TransactionResult string

const (
	TransactionResultPending TransactionResult = "pending"
	TransactionResultSuccess TransactionResult = "success"
	TransactionResultFailed  TransactionResult = "failed"
)

// Transaction is the canonical record written to the ledger for every
// recognized payment callback. Rows are append-only: provider retries are
// deduplicated on CheckoutRequestID and corrections arrive as new callbacks
// with new identifiers, never as updates.
type Transaction struct {
	Base
	Provider          TransactionProvider `gorm:"type:varchar(20);not null" json:"provider"`
	MerchantRequestID string              `gorm:"type:varchar(100)" json:"merchant_request_id"`
	CheckoutRequestID string              `gorm:"type:varchar(100);not null;uniqueIndex" json:"checkout_request_id"`
	ResultCode        TransactionResult   `gorm:"type:varchar(20);not null;default:'pending'" json:"result_code"`
	ResultDesc        string              `gorm:"type:varchar(255)" json:"result_desc"`
	Amount            float64             `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`
	ReceiptNumber     *string             `gorm:"type:varchar(100)" json:"receipt_number"`
	PhoneNumber       *string             `gorm:"type:varchar(20)" json:"phone_number"`
	// TransactionDate is stored verbatim as supplied by the provider; the
	// two providers use different formats and the value is never reparsed.
	TransactionDate *string `gorm:"type:varchar(50)" json:"transaction_date"`
	RawCallback     JSON    `gorm:"type:jsonb" json:"raw_callback"`
}
