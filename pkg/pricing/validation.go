package pricing

import (
	"errors"
	"strings"
	"time"

	"github.com/ruralretreats/tourism-backend/pkg/validator"
)

var (
	ErrMissingRoute          = errors.New("departure and destination are required")
	ErrSameOriginDestination = errors.New("departure and destination cannot be the same")
	ErrInvalidJourneyDate    = errors.New("journey date must be YYYY-MM-DD and time HH:MM")
	ErrJourneyInPast         = errors.New("journey date and time must be in the future")
	ErrCheckInInPast         = errors.New("check-in date cannot be in the past")
	ErrCheckOutBeforeCheckIn = errors.New("check-out date must be after check-in date")
	ErrMissingName           = errors.New("name is required")
)

// JourneyLocation is the timezone journey dates and times are entered in
var JourneyLocation = time.FixedZone("IST", 5*60*60+30*60)

// ValidateJourney checks route and departure time for a bus booking
func (e *Engine) ValidateJourney(in BusInput) error {
	from := strings.TrimSpace(in.From)
	to := strings.TrimSpace(in.To)
	if from == "" || to == "" {
		return ErrMissingRoute
	}
	if strings.EqualFold(from, to) {
		return ErrSameOriginDestination
	}

	clock := in.Time
	if clock == "" {
		clock = "00:00"
	}
	departure, err := time.ParseInLocation("2006-01-02 15:04", in.Date+" "+clock, JourneyLocation)
	if err != nil {
		return ErrInvalidJourneyDate
	}
	if !departure.After(e.clock()) {
		return ErrJourneyInPast
	}
	return nil
}

// ValidateStay checks check-in/check-out ordering for a homestay booking.
// Check-in today is allowed.
func (e *Engine) ValidateStay(in HomestayInput) error {
	now := e.clock().In(JourneyLocation)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, JourneyLocation)
	if in.CheckIn.Before(today) {
		return ErrCheckInInPast
	}
	if !in.CheckOut.After(in.CheckIn) {
		return ErrCheckOutBeforeCheckIn
	}
	return nil
}

// Contact is the customer snapshot collected with every booking
type Contact struct {
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
	Phone string `json:"phone" db:"phone"`
}

// ValidateContact normalizes and validates customer contact details
func ValidateContact(c Contact) (Contact, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return c, ErrMissingName
	}

	email, err := validator.ValidateEmail(c.Email)
	if err != nil {
		return c, err
	}
	c.Email = email

	phone, err := validator.NewPhoneValidator().Validate(c.Phone)
	if err != nil {
		return c, err
	}
	c.Phone = phone

	return c, nil
}
