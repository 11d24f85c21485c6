package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

// Reference prefixes
const (
	BookingReferencePrefix = "RR"
	BusPNRPrefix           = "PNR"
)

// Booking is a confirmed homestay or holiday package reservation
type Booking struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	ReferenceNumber string          `json:"reference_number" db:"reference_number"`
	BookingType     BookingType     `json:"booking_type" db:"booking_type"`
	UserID          *uuid.UUID      `json:"user_id,omitempty" db:"user_id"`
	HomestayID      *string         `json:"homestay_id,omitempty" db:"homestay_id"`
	PackageID       *string         `json:"package_id,omitempty" db:"package_id"`
	Details         JSONB           `json:"details" db:"details"`
	Pricing         JSONB           `json:"pricing" db:"pricing"`
	SpecialRequests *string         `json:"special_requests,omitempty" db:"special_requests"`
	Customer        CustomerDetails `json:"customer" db:"customer"`
	Status          BookingStatus   `json:"status" db:"status"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// BusBooking is a confirmed bus journey reservation
type BusBooking struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	PNR        string          `json:"pnr" db:"pnr"`
	UserID     *uuid.UUID      `json:"user_id,omitempty" db:"user_id"`
	Journey    JSONB           `json:"journey" db:"journey"`
	BusDetails JSONB           `json:"bus_details" db:"bus_details"`
	Passengers JSONB           `json:"passengers" db:"passengers"`
	Pricing    JSONB           `json:"pricing" db:"pricing"`
	Customer   CustomerDetails `json:"customer" db:"customer"`
	Status     BookingStatus   `json:"status" db:"status"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// ConfirmedBooking is what the verification flow returns to the caller
type ConfirmedBooking struct {
	ID        uuid.UUID `json:"bookingId"`
	Reference string    `json:"bookingReference"`
}

// Journey describes a bus trip
type Journey struct {
	From string `json:"from"`
	To   string `json:"to"`
	Date string `json:"date"`
	Time string `json:"time"`
}

// BusDetails describes the selected bus class and on-board extras
type BusDetails struct {
	Type      string   `json:"type"`
	Amenities []string `json:"amenities"`
}

// Passengers is a head count
type Passengers struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
}

// StayDetails describes a homestay reservation
type StayDetails struct {
	CheckIn  string     `json:"checkIn"`
	CheckOut string     `json:"checkOut"`
	Guests   Passengers `json:"guests"`
	RoomType string     `json:"roomType,omitempty"`
}

// BookingDetails is the client-side booking payload submitted with the
// order and again on verification. Only one group of fields applies,
// depending on the payment's booking type.
type BookingDetails struct {
	UserID          string `json:"userId,omitempty"`
	SpecialRequests string `json:"specialRequests,omitempty"`
	Pricing         JSONB  `json:"pricing,omitempty"`

	// homestay
	HomestayID string       `json:"homestayId,omitempty"`
	Details    *StayDetails `json:"details,omitempty"`

	// bus
	Journey    *Journey    `json:"journey,omitempty"`
	BusDetails *BusDetails `json:"busDetails,omitempty"`
	Passengers *Passengers `json:"passengers,omitempty"`

	// package
	PackageID    string `json:"packageId,omitempty"`
	PackageName  string `json:"packageName,omitempty"`
	Duration     string `json:"duration,omitempty"`
	TravelDate   string `json:"travelDate,omitempty"`
	CustomerName string `json:"customerName,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

// PricingTotal returns pricing.totalAmount when the client supplied it
func (d *BookingDetails) PricingTotal() (float64, bool) {
	if d == nil || d.Pricing == nil {
		return 0, false
	}
	return d.Pricing.Float("totalAmount")
}

// NewReference generates a human-facing reference.
// Format: PREFIX-YYYYMMDD-XXXXXX (6 hex chars)
// Example: RR-20260410-A1B2C3
func NewReference(prefix string, now time.Time) (string, error) {
	randomBytes := make([]byte, 3)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102"), strings.ToUpper(hex.EncodeToString(randomBytes))), nil
}
