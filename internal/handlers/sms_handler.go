package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/majipay/backend/internal/utils"
)

// SMSSender delivers a text message and returns the provider's message ID
type SMSSender interface {
	Send(ctx context.Context, to, message string) (string, error)
}

// SMSHandler exposes direct SMS sending
type SMSHandler struct {
	sms SMSSender
}

// NewSMSHandler creates a new SMS handler
func NewSMSHandler(sms SMSSender) *SMSHandler {
	return &SMSHandler{sms: sms}
}

const defaultSMSMessage = "Hello from MajiPay!"

type sendSMSRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
}

// SendSMS sends a one-off message to a subscriber
func (h *SMSHandler) SendSMS(c *gin.Context) {
	var req sendSMSRequest
	if err := c.ShouldBindJSON(&req); err != nil || !utils.IsValidPhone(req.PhoneNumber) {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "A valid phoneNumber is required",
		})
		return
	}

	message := req.Message
	if message == "" {
		message = defaultSMSMessage
	}

	messageID, err := h.sms.Send(c.Request.Context(), req.PhoneNumber, message)
	if err != nil {
		log.Printf("Failed to send SMS to %s: %v", req.PhoneNumber, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "Failed to send SMS",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"messageId":   messageID,
			"phoneNumber": utils.NormalizePhone(req.PhoneNumber),
		},
	})
}
