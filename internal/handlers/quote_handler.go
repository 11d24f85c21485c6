package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ruralretreats/tourism-backend/internal/services"
	"github.com/ruralretreats/tourism-backend/pkg/pricing"
	"github.com/sirupsen/logrus"
)

// QuoteHandler prices bookings before checkout
type QuoteHandler struct {
	quotes *services.QuoteService
	logger *logrus.Logger
}

// NewQuoteHandler creates a new quote handler
func NewQuoteHandler(quotes *services.QuoteService, logger *logrus.Logger) *QuoteHandler {
	return &QuoteHandler{quotes: quotes, logger: logger}
}

// Bus handles POST /api/quotes/bus
func (h *QuoteHandler) Bus(c *gin.Context) {
	var in pricing.BusInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body", "INVALID_REQUEST")
		return
	}
	h.respond(c, "quote_bus", func() (*pricing.Quote, error) { return h.quotes.QuoteBus(in) })
}

// Homestay handles POST /api/quotes/homestay
func (h *QuoteHandler) Homestay(c *gin.Context) {
	var req services.HomestayQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body", "INVALID_REQUEST")
		return
	}
	h.respond(c, "quote_homestay", func() (*pricing.Quote, error) { return h.quotes.QuoteHomestay(req) })
}

// Package handles POST /api/quotes/package
func (h *QuoteHandler) Package(c *gin.Context) {
	var in pricing.PackageInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body", "INVALID_REQUEST")
		return
	}
	h.respond(c, "quote_package", func() (*pricing.Quote, error) { return h.quotes.QuotePackage(in) })
}

func (h *QuoteHandler) respond(c *gin.Context, operation string, quote func() (*pricing.Quote, error)) {
	q, err := quote()
	if err != nil {
		respondError(c, h.logger, operation, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "quote": q})
}
