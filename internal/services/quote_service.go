package services

import (
	"time"

	"github.com/ruralretreats/tourism-backend/pkg/pricing"
)

const stayDateLayout = "2006-01-02"

// HomestayQuoteRequest is the homestay quote payload; dates are YYYY-MM-DD
type HomestayQuoteRequest struct {
	HomestayID string   `json:"homestayId"`
	BasePrice  float64  `json:"basePrice"`
	CheckIn    string   `json:"checkIn"`
	CheckOut   string   `json:"checkOut"`
	Adults     int      `json:"adults"`
	Children   int      `json:"children"`
	Amenities  []string `json:"amenities"`
}

// QuoteService validates booking inputs and prices them
type QuoteService struct {
	engine *pricing.Engine
}

// NewQuoteService creates a new QuoteService
func NewQuoteService(engine *pricing.Engine) *QuoteService {
	return &QuoteService{engine: engine}
}

// QuoteBus prices a bus journey after checking route and departure time
func (s *QuoteService) QuoteBus(in pricing.BusInput) (*pricing.Quote, error) {
	if err := s.engine.ValidateJourney(in); err != nil {
		return nil, invalid("journey", err.Error())
	}
	q, err := s.engine.QuoteBus(in)
	if err != nil {
		return nil, invalid("", err.Error())
	}
	return q, nil
}

// QuoteHomestay prices a stay after checking the dates
func (s *QuoteService) QuoteHomestay(req HomestayQuoteRequest) (*pricing.Quote, error) {
	checkIn, err := time.ParseInLocation(stayDateLayout, req.CheckIn, pricing.JourneyLocation)
	if err != nil {
		return nil, invalid("checkIn", "Check-in must be a YYYY-MM-DD date")
	}
	checkOut, err := time.ParseInLocation(stayDateLayout, req.CheckOut, pricing.JourneyLocation)
	if err != nil {
		return nil, invalid("checkOut", "Check-out must be a YYYY-MM-DD date")
	}

	in := pricing.HomestayInput{
		HomestayID: req.HomestayID,
		BasePrice:  req.BasePrice,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Adults:     req.Adults,
		Children:   req.Children,
		Amenities:  req.Amenities,
	}
	if err := s.engine.ValidateStay(in); err != nil {
		return nil, invalid("dates", err.Error())
	}
	q, err := s.engine.QuoteHomestay(in)
	if err != nil {
		return nil, invalid("", err.Error())
	}
	return q, nil
}

// QuotePackage prices a holiday package
func (s *QuoteService) QuotePackage(in pricing.PackageInput) (*pricing.Quote, error) {
	q, err := s.engine.QuotePackage(in)
	if err != nil {
		return nil, invalid("", err.Error())
	}
	return q, nil
}
