package validation

import (
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/iliyamo/balloon-tour-booking/internal/model"
)

// ReservationInput is the JSON body of POST /reservations.
type ReservationInput struct {
	Date           string `json:"date"`
	Travelers      Number `json:"travelers"`
	Total          Number `json:"total"`
	FullName       string `json:"fullName"`
	Email          string `json:"email"`
	PhoneNumber    string `json:"phoneNumber"`
	PickUpLocation string `json:"pickUpLocation"`
	Flight         string `json:"flight"`
}

const (
	MinTravelers = 1
	MaxTravelers = 20
)

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

// ParseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates, the
// latter at UTC midnight.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ValidateReservation checks a reservation request against now.
func ValidateReservation(in ReservationInput, now time.Time) Errors {
	var errs Errors
	if d, ok := ParseDate(in.Date); !ok {
		errs = append(errs, "Valid date is required")
	} else {
		errs.check(!d.Before(now), "Reservation date cannot be in the past")
	}
	t := in.Travelers
	errs.check(t.Valid && t.Value == math.Trunc(t.Value) && t.Value >= MinTravelers && t.Value <= MaxTravelers,
		"Number of travelers must be between 1 and 20")
	errs.check(in.Total.Valid && positive(in.Total.Value), "Valid total price is required and must be greater than 0")
	errs.check(minLen(in.FullName, 2), "Full name is required and must be at least 2 characters")
	errs.check(IsEmail(in.Email), "Valid email is required")
	errs.check(minLen(in.PickUpLocation, 3), "Pickup location is required and must be at least 3 characters")
	errs.check(IsObjectID(in.Flight), "Valid flight reference is required")
	return errs
}

// Reservation builds the document for a validated input.
func (in ReservationInput) Reservation() model.Reservation {
	d, _ := ParseDate(in.Date)
	flight, _ := primitive.ObjectIDFromHex(in.Flight)
	return model.Reservation{
		Date:           d,
		Travelers:      int(in.Travelers.Value),
		Total:          in.Total.Value,
		FullName:       strings.TrimSpace(in.FullName),
		Email:          strings.ToLower(strings.TrimSpace(in.Email)),
		PhoneNumber:    strings.TrimSpace(in.PhoneNumber),
		PickUpLocation: strings.TrimSpace(in.PickUpLocation),
		Flight:         flight,
	}
}
