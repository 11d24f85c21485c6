package pricing

import (
	"fmt"
	"strings"
)

// Bus classes
const (
	BusClassAC      = "AC"
	BusClassNonAC   = "Non-AC"
	BusClassSleeper = "Sleeper"
)

var busClassFares = map[string]float64{
	BusClassAC:      800,
	BusClassNonAC:   600,
	BusClassSleeper: 1200,
}

var busClassAliases = map[string]string{
	"ac":                  BusClassAC,
	"standard":            BusClassAC,
	"non-ac":              BusClassNonAC,
	"non_ac":              BusClassNonAC,
	"nonac":               BusClassNonAC,
	"non-air-conditioned": BusClassNonAC,
	"sleeper":             BusClassSleeper,
}

// per passenger
var busAmenityPrices = map[string]float64{
	"wifi":          50,
	"food":          100,
	"seats":         80,
	"entertainment": 70,
	"charging":      30,
	"restrooms":     60,
}

// BusInput describes a bus booking to price
type BusInput struct {
	From      string   `json:"from"`
	To        string   `json:"to"`
	Date      string   `json:"date"`
	Time      string   `json:"time"`
	Class     string   `json:"busType"`
	Adults    int      `json:"adults"`
	Children  int      `json:"children"`
	Amenities []string `json:"amenities"`
}

// NormalizeBusClass resolves aliases to a canonical class name
func NormalizeBusClass(class string) (string, error) {
	canonical, ok := busClassAliases[strings.ToLower(strings.TrimSpace(class))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownBusClass, class)
	}
	return canonical, nil
}

// QuoteBus prices a bus journey.
// fare = seat*adults + seat*children*0.5, amenities are charged per passenger.
func (e *Engine) QuoteBus(in BusInput) (*Quote, error) {
	if in.Adults < 1 || in.Children < 0 {
		return nil, ErrInvalidTravelers
	}

	class, err := NormalizeBusClass(in.Class)
	if err != nil {
		return nil, err
	}

	seat := busClassFares[class]
	if e.RouteSurcharge {
		seat += RouteFare(in.From, in.To)
	}

	passengers := in.Adults + in.Children
	q := &Quote{
		BookingType: BookingTypeBus,
		Travelers:   passengers,
	}

	adultFare := seat * float64(in.Adults)
	childFare := seat * float64(in.Children) * 0.5
	q.BaseFare = adultFare + childFare
	q.Items = append(q.Items, LineItem{Name: class + " adult fare", Quantity: in.Adults, Unit: seat, Amount: adultFare})
	if in.Children > 0 {
		q.Items = append(q.Items, LineItem{Name: class + " child fare", Quantity: in.Children, Unit: seat * 0.5, Amount: childFare})
	}

	for _, name := range dedupe(in.Amenities) {
		price, ok := busAmenityPrices[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownAmenity, name)
		}
		amount := price * float64(passengers)
		q.AmenitiesCost += amount
		q.Items = append(q.Items, LineItem{Name: name, Quantity: passengers, Unit: price, Amount: amount})
	}

	return finalize(q, TransportTaxRate), nil
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		key := strings.ToLower(strings.TrimSpace(n))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(n))
	}
	return out
}
