package webhooks

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/majipay/backend/internal/models"
	"github.com/majipay/backend/internal/utils"
)

// ErrUnrecognizedPayload is returned when a webhook body matches neither
// known provider shape. Callers acknowledge these with a 2xx anyway to keep
// the sender from retrying.
var ErrUnrecognizedPayload = errors.New("webhook payload matches no known provider shape")

// flexNumber decodes an amount that providers send either as a JSON number
// or as a quoted decimal string.
type flexNumber float64

func (f *flexNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", s, err)
	}
	*f = flexNumber(v)
	return nil
}

// aggregatorInvoice is the invoice object inside an IntaSend callback.
type aggregatorInvoice struct {
	InvoiceID      string     `json:"invoice_id"`
	State          string     `json:"state"`
	Value          flexNumber `json:"value"`
	FailedReason   string     `json:"failed_reason"`
	MpesaReference string     `json:"mpesa_reference"`
	UpdatedAt      string     `json:"updated_at"`
	TrackingID     string     `json:"intasend_tracking_id"`
	CustomerPhone  string     `json:"customer_phone_number"`
}

type aggregatorPayload struct {
	Invoice       *aggregatorInvoice `json:"invoice"`
	TrackingID    string             `json:"intasend_tracking_id"`
	CustomerPhone string             `json:"customer_phone_number"`
}

// darajaPayload is the Safaricom STK push result callback.
type darajaPayload struct {
	Body struct {
		StkCallback *struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []struct {
					Name  string      `json:"Name"`
					Value interface{} `json:"Value"`
				} `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// Normalize classifies a raw webhook body by structure and maps it to the
// canonical transaction record. Shapes are tried in fixed priority order:
// aggregator first (discriminated by the invoice object), then the carrier
// STK callback (discriminated by the nested stkCallback body). The untouched
// payload is always kept on the record for audit.
func Normalize(raw []byte) (*models.Transaction, error) {
	var rawCallback models.JSON
	if err := json.Unmarshal(raw, &rawCallback); err != nil {
		return nil, ErrUnrecognizedPayload
	}

	var agg aggregatorPayload
	if err := json.Unmarshal(raw, &agg); err == nil && agg.Invoice != nil {
		return normalizeAggregator(&agg, rawCallback), nil
	}

	var daraja darajaPayload
	if err := json.Unmarshal(raw, &daraja); err == nil && daraja.Body.StkCallback != nil {
		return normalizeDaraja(&daraja, rawCallback), nil
	}

	return nil, ErrUnrecognizedPayload
}

func normalizeAggregator(p *aggregatorPayload, rawCallback models.JSON) *models.Transaction {
	inv := p.Invoice

	result := models.TransactionResultPending
	switch inv.State {
	case "COMPLETE":
		result = models.TransactionResultSuccess
	case "FAILED":
		result = models.TransactionResultFailed
	}

	desc := inv.FailedReason
	if desc == "" {
		desc = "Success"
	}

	trackingID := p.TrackingID
	if trackingID == "" {
		trackingID = inv.TrackingID
	}
	phone := p.CustomerPhone
	if phone == "" {
		phone = inv.CustomerPhone
	}

	tx := &models.Transaction{
		Provider:          models.TransactionProviderIntaSend,
		MerchantRequestID: inv.InvoiceID,
		CheckoutRequestID: trackingID,
		ResultCode:        result,
		ResultDesc:        desc,
		Amount:            float64(inv.Value),
		RawCallback:       rawCallback,
	}
	if inv.MpesaReference != "" {
		tx.ReceiptNumber = &inv.MpesaReference
	}
	if phone != "" {
		normalized := utils.NormalizePhone(phone)
		tx.PhoneNumber = &normalized
	}
	if inv.UpdatedAt != "" {
		tx.TransactionDate = &inv.UpdatedAt
	}
	return tx
}

func normalizeDaraja(p *darajaPayload, rawCallback models.JSON) *models.Transaction {
	cb := p.Body.StkCallback

	result := models.TransactionResultFailed
	if cb.ResultCode == 0 {
		result = models.TransactionResultSuccess
	}

	meta := make(map[string]interface{}, len(cb.CallbackMetadata.Item))
	for _, item := range cb.CallbackMetadata.Item {
		meta[item.Name] = item.Value
	}

	tx := &models.Transaction{
		Provider:          models.TransactionProviderDaraja,
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        result,
		ResultDesc:        cb.ResultDesc,
		Amount:            metaFloat(meta, "Amount"),
		RawCallback:       rawCallback,
	}
	if receipt := metaString(meta, "MpesaReceiptNumber"); receipt != "" {
		tx.ReceiptNumber = &receipt
	}
	if phone := metaString(meta, "PhoneNumber"); phone != "" {
		normalized := utils.NormalizePhone(phone)
		tx.PhoneNumber = &normalized
	}
	if date := metaString(meta, "TransactionDate"); date != "" {
		tx.TransactionDate = &date
	}
	return tx
}

// metaFloat reads a numeric metadata value, defaulting to 0 when the item
// is absent or not a number.
func metaFloat(meta map[string]interface{}, name string) float64 {
	switch v := meta[name].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// metaString reads a metadata value as a string. Daraja sends receipt
// numbers as strings but phone numbers and dates as bare numbers, so both
// are handled.
func metaString(meta map[string]interface{}, name string) string {
	switch v := meta[name].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
