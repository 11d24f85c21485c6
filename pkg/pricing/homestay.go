package pricing

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// IncludedGuests are covered by the nightly base price
	IncludedGuests = 2
	// ExtraGuestNightly is charged per guest beyond IncludedGuests, per night
	ExtraGuestNightly = 500
)

// Homestay is a bookable property and its nightly rate
type Homestay struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	BasePrice float64 `json:"basePrice"`
}

var homestays = map[string]Homestay{
	"coorg-cottage":     {ID: "coorg-cottage", Name: "Coorg Coffee Cottage", BasePrice: 3500},
	"kerala-backwaters": {ID: "kerala-backwaters", Name: "Kerala Backwaters Homestay", BasePrice: 4200},
	"himalayan-retreat": {ID: "himalayan-retreat", Name: "Himalayan Retreat", BasePrice: 5500},
}

// per night
var homestayAmenityPrices = map[string]float64{
	"wifi":          100,
	"food":          800,
	"entertainment": 200,
	"charging":      50,
	"restrooms":     300,
}

// LookupHomestay returns the catalog entry for id
func LookupHomestay(id string) (Homestay, bool) {
	h, ok := homestays[strings.ToLower(strings.TrimSpace(id))]
	return h, ok
}

// HomestayInput describes a stay to price. BasePrice, when set, overrides
// the catalog rate for HomestayID.
type HomestayInput struct {
	HomestayID string    `json:"homestayId"`
	BasePrice  float64   `json:"basePrice"`
	CheckIn    time.Time `json:"checkIn"`
	CheckOut   time.Time `json:"checkOut"`
	Adults     int       `json:"adults"`
	Children   int       `json:"children"`
	Amenities  []string  `json:"amenities"`
}

// Guests returns the total head count
func (in HomestayInput) Guests() int {
	return in.Adults + in.Children
}

// Nights counts started 24h periods between check-in and check-out
func Nights(checkIn, checkOut time.Time) int {
	d := checkOut.Sub(checkIn)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Hours() / 24))
}

// QuoteHomestay prices a stay. base = rate*nights + extra guests*500*nights,
// amenities are charged per night.
func (e *Engine) QuoteHomestay(in HomestayInput) (*Quote, error) {
	if in.Adults < 0 || in.Children < 0 || in.Guests() < 1 {
		return nil, ErrInvalidGuests
	}

	rate := in.BasePrice
	if rate == 0 {
		h, ok := LookupHomestay(in.HomestayID)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownHomestay, in.HomestayID)
		}
		rate = h.BasePrice
	}
	if rate < 0 {
		return nil, ErrInvalidPrice
	}

	nights := Nights(in.CheckIn, in.CheckOut)
	if nights < 1 {
		return nil, ErrCheckOutBeforeCheckIn
	}

	q := &Quote{
		BookingType: BookingTypeHomestay,
		Nights:      nights,
		Travelers:   in.Guests(),
	}

	stay := rate * float64(nights)
	q.Items = append(q.Items, LineItem{Name: "nightly rate", Quantity: nights, Unit: rate, Amount: stay})
	q.BaseFare = stay

	if extra := in.Guests() - IncludedGuests; extra > 0 {
		surcharge := float64(extra*ExtraGuestNightly) * float64(nights)
		q.BaseFare += surcharge
		q.Items = append(q.Items, LineItem{Name: "extra guests", Quantity: extra * nights, Unit: ExtraGuestNightly, Amount: surcharge})
	}

	for _, name := range dedupe(in.Amenities) {
		price, ok := homestayAmenityPrices[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAmenity, name)
		}
		amount := price * float64(nights)
		q.AmenitiesCost += amount
		q.Items = append(q.Items, LineItem{Name: name, Quantity: nights, Unit: price, Amount: amount})
	}

	return finalize(q, LodgingTaxRate), nil
}
