package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Reservation records a customer's booking for a flight.  It is created
// by the public and only read or deleted by admins; there is no update
// path.  Flight is checked for existence at creation time only, so a
// later flight deletion leaves the reference dangling.
//
// Fields:
//
//	ID             – document identifier.
//	Date           – the day of the flight, never in the past when created.
//	Travelers      – party size, 1 to 20.
//	Total          – quoted total price, greater than zero.
//	FullName       – customer name.
//	Email          – lower-cased contact address.
//	PhoneNumber    – optional contact number.
//	PickUpLocation – where the shuttle collects the party.
//	Flight         – reference to flights._id.
//	CreatedAt      – creation timestamp.
//	UpdatedAt      – last update timestamp.
type Reservation struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Date           time.Time          `bson:"date"`
	Travelers      int                `bson:"travelers"`
	Total          float64            `bson:"total"`
	FullName       string             `bson:"fullName"`
	Email          string             `bson:"email"`
	PhoneNumber    string             `bson:"phoneNumber,omitempty"`
	PickUpLocation string             `bson:"pickUpLocation"`
	Flight         primitive.ObjectID `bson:"flight"`
	CreatedAt      time.Time          `bson:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt"`
}
