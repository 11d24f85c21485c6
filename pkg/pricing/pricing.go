// Package pricing computes price breakdowns for bus, homestay and holiday
// package bookings. All amounts are in the major currency unit (rupees).
package pricing

import (
	"errors"
	"math"
	"time"
)

// Tax rates by booking domain
const (
	TransportTaxRate = 0.05
	LodgingTaxRate   = 0.18
)

// Booking types
const (
	BookingTypeBus      = "bus"
	BookingTypeHomestay = "homestay"
	BookingTypePackage  = "package"
)

var (
	ErrUnknownBusClass  = errors.New("unknown bus class")
	ErrUnknownAmenity   = errors.New("unknown amenity")
	ErrUnknownHomestay  = errors.New("unknown homestay")
	ErrUnknownPackage   = errors.New("unknown holiday package")
	ErrInvalidTravelers = errors.New("at least one adult is required and counts cannot be negative")
	ErrInvalidGuests    = errors.New("at least one guest is required")
	ErrInvalidPrice     = errors.New("base price must be positive")
)

// LineItem is one priced component of a quote
type LineItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Unit     float64 `json:"unitPrice"`
	Amount   float64 `json:"amount"`
}

// Quote is a computed, unpersisted price breakdown.
// Subtotal = BaseFare + AmenitiesCost, Tax = round(Subtotal * TaxRate),
// TotalAmount = Subtotal + Tax.
type Quote struct {
	BookingType   string     `json:"bookingType"`
	BaseFare      float64    `json:"baseFare"`
	AmenitiesCost float64    `json:"amenitiesCost"`
	Subtotal      float64    `json:"subtotal"`
	TaxRate       float64    `json:"taxRate"`
	Tax           float64    `json:"tax"`
	TotalAmount   float64    `json:"totalAmount"`
	Nights        int        `json:"nights,omitempty"`
	Travelers     int        `json:"travelers,omitempty"`
	Items         []LineItem `json:"items,omitempty"`
}

// Engine is the single pricing entry point for every booking type.
type Engine struct {
	// RouteSurcharge adds the origin/destination table fare to each seat
	RouteSurcharge bool

	now func() time.Time
}

// NewEngine creates a pricing engine
func NewEngine(routeSurcharge bool) *Engine {
	return &Engine{RouteSurcharge: routeSurcharge, now: time.Now}
}

// WithClock overrides the engine clock used by date validation
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func (e *Engine) clock() time.Time {
	if e.now == nil {
		return time.Now()
	}
	return e.now()
}

// RoundTax rounds the tax on subtotal to the nearest whole unit
func RoundTax(subtotal, rate float64) float64 {
	return math.Round(subtotal * rate)
}

// ToMinorUnits converts a major-unit amount to paise
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func finalize(q *Quote, rate float64) *Quote {
	q.Subtotal = q.BaseFare + q.AmenitiesCost
	q.TaxRate = rate
	q.Tax = RoundTax(q.Subtotal, rate)
	q.TotalAmount = q.Subtotal + q.Tax
	return q
}
