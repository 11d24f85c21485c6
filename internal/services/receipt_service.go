package services

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phpdave11/gofpdf"
	"github.com/ruralretreats/tourism-backend/internal/models"
)

// pricing snapshot keys printed on receipts, in order
var receiptPricingLines = []struct{ key, label string }{
	{"baseFare", "Base fare"},
	{"amenitiesCost", "Amenities"},
	{"subtotal", "Subtotal"},
	{"tax", "Tax"},
}

// ReceiptService renders payment receipts as PDF
type ReceiptService struct {
	payments PaymentStore
	bookings BookingStore
}

// NewReceiptService creates a new ReceiptService
func NewReceiptService(payments PaymentStore, bookings BookingStore) *ReceiptService {
	return &ReceiptService{payments: payments, bookings: bookings}
}

type receiptData struct {
	Payment   *models.Payment
	Reference string
	Customer  models.CustomerDetails
	Pricing   models.JSONB
	Lines     []string
	IssuedAt  time.Time
}

// ReceiptRequester identifies who is asking for a receipt. A signed-in owner
// needs nothing else; anyone else must present the booking reference.
type ReceiptRequester struct {
	UserID    *uuid.UUID
	Reference string
}

func (r ReceiptRequester) allowed(reference string, owners ...*uuid.UUID) bool {
	if r.UserID != nil {
		for _, owner := range owners {
			if owner != nil && *owner == *r.UserID {
				return true
			}
		}
	}
	return r.Reference != "" && strings.EqualFold(strings.TrimSpace(r.Reference), reference)
}

// GenerateReceipt returns the PDF bytes and a file name for a confirmed payment
func (s *ReceiptService) GenerateReceipt(ctx context.Context, orderID string, requester ReceiptRequester) ([]byte, string, error) {
	p, err := s.payments.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if p == nil {
		return nil, "", ErrPaymentNotFound
	}
	if !p.HasBooking() {
		return nil, "", ErrBookingNotFound
	}

	d := receiptData{Payment: p, IssuedAt: time.Now()}
	if p.BookingType == models.BookingTypeBus {
		b, err := s.bookings.GetBusBooking(ctx, *p.BookingID)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if b == nil {
			return nil, "", ErrBookingNotFound
		}
		if !requester.allowed(b.PNR, p.UserID, b.UserID) {
			return nil, "", ErrReceiptForbidden
		}
		d.Reference, d.Customer, d.Pricing = b.PNR, b.Customer, b.Pricing
		d.Lines = []string{
			fmt.Sprintf("Route        : %v -> %v", b.Journey["from"], b.Journey["to"]),
			fmt.Sprintf("Departure    : %v %v", b.Journey["date"], b.Journey["time"]),
			fmt.Sprintf("Bus class    : %v", b.BusDetails["type"]),
			fmt.Sprintf("Passengers   : %v adult(s), %v child(ren)", b.Passengers["adults"], b.Passengers["children"]),
		}
	} else {
		b, err := s.bookings.GetBooking(ctx, *p.BookingID)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if b == nil {
			return nil, "", ErrBookingNotFound
		}
		if !requester.allowed(b.ReferenceNumber, p.UserID, b.UserID) {
			return nil, "", ErrReceiptForbidden
		}
		d.Reference, d.Customer, d.Pricing = b.ReferenceNumber, b.Customer, b.Pricing
		d.Lines = detailLines(b)
	}

	out, err := buildReceiptPDF(d)
	if err != nil {
		return nil, "", err
	}
	return out, fmt.Sprintf("receipt-%s.pdf", d.Reference), nil
}

func detailLines(b *models.Booking) []string {
	var lines []string
	if b.HomestayID != nil {
		lines = append(lines, "Homestay     : "+*b.HomestayID)
	}
	if b.PackageID != nil {
		lines = append(lines, "Package      : "+*b.PackageID)
	}
	keys := make([]string, 0, len(b.Details))
	for k := range b.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := b.Details[k]; v != nil && v != "" {
			lines = append(lines, fmt.Sprintf("%-13s: %v", k, v))
		}
	}
	return lines
}

func buildReceiptPDF(d receiptData) ([]byte, error) {
	p := d.Payment

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Payment Receipt", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "PAYMENT RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	header := []string{
		"Booking ref  : " + d.Reference,
		"Booking type : " + capitalize(string(p.BookingType)),
		"Issued       : " + d.IssuedAt.Format("2006-01-02 15:04"),
		"Order id     : " + p.RazorpayOrderID,
	}
	if p.RazorpayPaymentID != nil {
		header = append(header, "Payment id   : "+*p.RazorpayPaymentID)
	}
	if p.PaymentMethod != nil {
		header = append(header, "Method       : "+*p.PaymentMethod)
	}
	for _, line := range header {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Billed to:")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 12)
	for _, line := range []string{
		"Name   : " + safe(d.Customer.Name),
		"Email  : " + safe(d.Customer.Email),
		"Phone  : " + safe(d.Customer.Phone),
	} {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}
	pdf.Ln(4)

	if len(d.Lines) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 7, "Details:")
		pdf.Ln(7)
		pdf.SetFont("Helvetica", "", 11)
		for _, line := range d.Lines {
			pdf.MultiCell(0, 6, line, "", "", false)
		}
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Charges:")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	for _, l := range receiptPricingLines {
		if v, ok := d.Pricing.Float(l.key); ok {
			pdf.Cell(0, 6, fmt.Sprintf("%-12s %s", l.label+":", formatAmount(p.Currency, v)))
			pdf.Ln(6)
		}
	}
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Amount paid: "+formatAmount(p.Currency, p.Amount))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "This receipt confirms payment for the booking above. Please quote the booking reference in any correspondence.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func safe(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

// formatAmount renders 2258 as "INR 2,258.00"
func formatAmount(currency string, v float64) string {
	whole := int64(v)
	paise := int64((v-float64(whole))*100 + 0.5)
	if paise == 100 {
		whole++
		paise = 0
	}
	digits := fmt.Sprintf("%d", whole)
	var grouped []byte
	for i := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped = append(grouped, ',')
		}
		grouped = append(grouped, digits[i])
	}
	return fmt.Sprintf("%s %s.%02d", currency, grouped, paise)
}
