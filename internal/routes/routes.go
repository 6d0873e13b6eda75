package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/majipay/backend/internal/handlers"
)

// SetupRoutes configures all HTTP endpoints
func SetupRoutes(router *gin.Engine, ussdHandler *handlers.USSDHandler, smsHandler *handlers.SMSHandler, txHandler *handlers.TransactionHandler) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/send-sms", smsHandler.SendSMS)
	router.POST("/ussd", ussdHandler.Handle)
	router.POST("/daraja-callback", txHandler.DarajaCallback)
	router.GET("/transactions", txHandler.ListTransactions)
}
