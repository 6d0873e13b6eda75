package utils

import (
	"fmt"
	"time"
)

// PaymentReference builds the external reference sent with a payment push.
// The timestamp suffix keeps retried pushes for the same account distinct
// on the aggregator side.
func PaymentReference(accountRef string) string {
	return fmt.Sprintf("%s-%d", accountRef, time.Now().Unix())
}
