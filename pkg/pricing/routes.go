package pricing

import "strings"

// DefaultRouteFare applies to any origin/destination pair not in the table
const DefaultRouteFare = 200

type routeKey struct{ a, b string }

// Inter-state surcharges, identical in both directions.
var routeFares = map[routeKey]float64{
	{"himachal pradesh", "kerala"}:         5600,
	{"himachal pradesh", "madhya pradesh"}: 2000,
	{"himachal pradesh", "rajasthan"}:      1600,
	{"himachal pradesh", "tamil nadu"}:     5000,
	{"himachal pradesh", "uttarakhand"}:    600,
	{"kerala", "madhya pradesh"}:           4000,
	{"kerala", "rajasthan"}:                4400,
	{"kerala", "tamil nadu"}:               1200,
	{"kerala", "uttarakhand"}:              4800,
	{"madhya pradesh", "rajasthan"}:        1000,
	{"madhya pradesh", "tamil nadu"}:       3600,
	{"madhya pradesh", "uttarakhand"}:      1600,
	{"rajasthan", "tamil nadu"}:            3800,
	{"rajasthan", "uttarakhand"}:           1200,
	{"tamil nadu", "uttarakhand"}:          4400,
}

// RouteFare returns the surcharge between two states
func RouteFare(from, to string) float64 {
	a := strings.ToLower(strings.TrimSpace(from))
	b := strings.ToLower(strings.TrimSpace(to))
	if a > b {
		a, b = b, a
	}
	if fare, ok := routeFares[routeKey{a, b}]; ok {
		return fare
	}
	return DefaultRouteFare
}
