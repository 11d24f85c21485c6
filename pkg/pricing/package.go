package pricing

import (
	"fmt"
	"strings"
)

// HolidayPackage is a fixed-itinerary tour priced per person
type HolidayPackage struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Duration       string  `json:"duration"`
	PricePerPerson float64 `json:"pricePerPerson"`
}

var holidayPackages = map[string]HolidayPackage{
	"rural-experience":   {ID: "rural-experience", Name: "Rural Experience", Duration: "3 Days / 2 Nights", PricePerPerson: 7999},
	"kerala-village":     {ID: "kerala-village", Name: "Kerala Village Trail", Duration: "5 Days / 4 Nights", PricePerPerson: 14999},
	"himalayan-hamlets":  {ID: "himalayan-hamlets", Name: "Himalayan Hamlets", Duration: "6 Days / 5 Nights", PricePerPerson: 18999},
	"rajasthan-heritage": {ID: "rajasthan-heritage", Name: "Rajasthan Heritage Villages", Duration: "4 Days / 3 Nights", PricePerPerson: 11999},
}

// LookupPackage returns the catalog entry for id
func LookupPackage(id string) (HolidayPackage, bool) {
	p, ok := holidayPackages[strings.ToLower(strings.TrimSpace(id))]
	return p, ok
}

// PackageInput describes a holiday package booking
type PackageInput struct {
	PackageID string `json:"packageId"`
	Adults    int    `json:"adults"`
	Children  int    `json:"children"`
}

// QuotePackage prices a package; children travel at half price.
func (e *Engine) QuotePackage(in PackageInput) (*Quote, error) {
	if in.Adults < 1 || in.Children < 0 {
		return nil, ErrInvalidTravelers
	}

	pkg, ok := LookupPackage(in.PackageID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPackage, in.PackageID)
	}

	adult := pkg.PricePerPerson * float64(in.Adults)
	child := pkg.PricePerPerson * float64(in.Children) * 0.5

	q := &Quote{
		BookingType: BookingTypePackage,
		BaseFare:    adult + child,
		Travelers:   in.Adults + in.Children,
		Items: []LineItem{
			{Name: pkg.Name + " adult", Quantity: in.Adults, Unit: pkg.PricePerPerson, Amount: adult},
		},
	}
	if in.Children > 0 {
		q.Items = append(q.Items, LineItem{Name: pkg.Name + " child", Quantity: in.Children, Unit: pkg.PricePerPerson * 0.5, Amount: child})
	}

	return finalize(q, TransportTaxRate), nil
}
