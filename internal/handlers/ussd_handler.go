package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/majipay/backend/internal/services/payment/intasend"
	"github.com/majipay/backend/internal/ussd"
)

// PaymentInitiator starts a payment push to a subscriber's phone
type PaymentInitiator interface {
	STKPush(ctx context.Context, phone string, amount float64, accountRef string) (*intasend.Invoice, error)
}

// USSDHandler serves the carrier gateway's USSD callbacks. The interpreter
// computes the response and the pending side effects; this boundary executes
// the effects and renders the CON/END reply.
type USSDHandler struct {
	interpreter *ussd.Interpreter
	payments    PaymentInitiator
	sms         SMSSender
}

// NewUSSDHandler creates a new USSD handler
func NewUSSDHandler(interpreter *ussd.Interpreter, payments PaymentInitiator, sms SMSSender) *USSDHandler {
	return &USSDHandler{
		interpreter: interpreter,
		payments:    payments,
		sms:         sms,
	}
}

type ussdRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	SessionID   string `json:"sessionId"`
	ServiceCode string `json:"serviceCode"`
	Text        string `json:"text"`
}

// Handle answers one USSD step. The carrier expects a plain-text body
// prefixed CON (keep prompting) or END (session over) and always a 200.
func (h *USSDHandler) Handle(c *gin.Context) {
	var req ussdRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PhoneNumber == "" {
		c.String(http.StatusOK, renderResponse(ussd.Terminate("Invalid request.")))
		return
	}

	resp, effects := h.interpreter.Interpret(req.PhoneNumber, req.Text)

	var pending []ussd.SendSMS
	for _, effect := range effects {
		switch e := effect.(type) {
		case ussd.InitiatePayment:
			if _, err := h.payments.STKPush(c.Request.Context(), e.Phone, e.Amount, e.AccountRef); err != nil {
				log.Printf("Payment initiation failed for %s: %v", e.Phone, err)
				// Subscribers never see raw provider errors.
				resp = ussd.Terminate("Sorry, we could not initiate your payment. Please try again later.")
			}
		case ussd.SendSMS:
			pending = append(pending, e)
		}
	}

	// The dial session disconnects on END and the final screen is often
	// missed, so every terminal message is also delivered by SMS.
	if resp.Terminal() {
		pending = append(pending, ussd.SendSMS{To: req.PhoneNumber, Body: resp.Text})
	}

	c.String(http.StatusOK, renderResponse(resp))

	for _, msg := range pending {
		if _, err := h.sms.Send(context.Background(), msg.To, msg.Body); err != nil {
			log.Printf("Failed to send SMS to %s: %v", msg.To, err)
		}
	}
}

func renderResponse(resp ussd.MenuResponse) string {
	if resp.Terminal() {
		return "END " + resp.Text
	}
	return "CON " + resp.Text
}
