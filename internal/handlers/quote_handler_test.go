package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ruralretreats/tourism-backend/internal/services"
	"github.com/ruralretreats/tourism-backend/pkg/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quoteRouter() *gin.Engine {
	now := time.Date(2026, 10, 15, 10, 0, 0, 0, pricing.JourneyLocation)
	engine := pricing.NewEngine(false).WithClock(func() time.Time { return now })
	h := NewQuoteHandler(services.NewQuoteService(engine), testLogger())

	router := setupTestRouter()
	quotes := router.Group("/api/quotes")
	quotes.POST("/bus", h.Bus)
	quotes.POST("/homestay", h.Homestay)
	quotes.POST("/package", h.Package)
	return router
}

func TestQuoteBus(t *testing.T) {
	w := doJSON(quoteRouter(), http.MethodPost, "/api/quotes/bus", map[string]interface{}{
		"from":      "Kerala",
		"to":        "Tamil Nadu",
		"date":      "2026-10-20",
		"time":      "09:30",
		"busType":   "standard",
		"adults":    2,
		"children":  1,
		"amenities": []string{"wifi"},
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	quote := body["quote"].(map[string]interface{})
	assert.Equal(t, 2000.0, quote["baseFare"])
	assert.Equal(t, 2258.0, quote["totalAmount"])
}

func TestQuoteHomestay(t *testing.T) {
	w := doJSON(quoteRouter(), http.MethodPost, "/api/quotes/homestay", map[string]interface{}{
		"homestayId": "coorg-cottage",
		"checkIn":    "2026-10-20",
		"checkOut":   "2026-10-22",
		"adults":     2,
		"children":   1,
		"amenities":  []string{"wifi"},
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	quote := decode(t, w)["quote"].(map[string]interface{})
	assert.Equal(t, float64(2), quote["nights"])
	assert.Equal(t, 9676.0, quote["totalAmount"])
}

func TestQuotePackage(t *testing.T) {
	w := doJSON(quoteRouter(), http.MethodPost, "/api/quotes/package", map[string]interface{}{
		"packageId": "rural-experience",
		"adults":    2,
	}, nil)

	require.Equal(t, http.StatusOK, w.Code)
	quote := decode(t, w)["quote"].(map[string]interface{})
	assert.Equal(t, 15998.0, quote["baseFare"])
}

func TestQuote_Rejects(t *testing.T) {
	tests := []struct {
		name string
		path string
		body interface{}
	}{
		{"same origin", "/api/quotes/bus", map[string]interface{}{"from": "Kerala", "to": "kerala", "date": "2026-10-20", "time": "09:30", "busType": "AC", "adults": 1}},
		{"checkout before checkin", "/api/quotes/homestay", map[string]interface{}{"homestayId": "coorg-cottage", "checkIn": "2026-10-22", "checkOut": "2026-10-20", "adults": 1}},
		{"unknown package", "/api/quotes/package", map[string]interface{}{"packageId": "moon-trip", "adults": 1}},
		{"malformed", "/api/quotes/bus", `{"from":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(quoteRouter(), http.MethodPost, tt.path, tt.body, nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["message"])
		})
	}
}
