package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Flight categories accepted by the catalogue.
const (
	CategoryVIP          = "vip"
	CategoryRomantic     = "romantic offer"
	CategoryMostReserved = "most reserved"
)

// Categories lists every valid Flight.Category value.
var Categories = []string{CategoryVIP, CategoryRomantic, CategoryMostReserved}

// MaxSecondaryImages bounds Flight.Images.
const MaxSecondaryImages = 4

// Flight is a bookable balloon tour listing stored in the `flights`
// collection.  MainImage and Images hold public URLs returned by the
// media store; the binaries themselves never touch the database.
type Flight struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title     string             `bson:"title" json:"title"`
	Overview  string             `bson:"overview" json:"overview"`
	MainImage string             `bson:"mainImage" json:"mainImage"`
	Images    []string           `bson:"images" json:"images"`
	Price     float64            `bson:"price" json:"price"`
	Rating    float64            `bson:"rating" json:"rating"`
	Category  string             `bson:"category" json:"category"`
	Program   []ProgramItem      `bson:"program" json:"program"`
	Reviews   []Review           `bson:"reviews" json:"reviews"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// ProgramItem is one step of the tour itinerary.
type ProgramItem struct {
	MiniTitle string `bson:"miniTitle" json:"miniTitle"`
	Text      string `bson:"text" json:"text"`
}

// Review is a customer testimonial embedded in a Flight.
type Review struct {
	Name      string    `bson:"name" json:"name"`
	Avatar    string    `bson:"avatar" json:"avatar"`
	Rating    float64   `bson:"rating" json:"rating"`
	Comment   string    `bson:"comment" json:"comment"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// FlightSummary is the subset of a Flight embedded in reservation reads.
type FlightSummary struct {
	ID        primitive.ObjectID `bson:"_id" json:"_id"`
	Title     string             `bson:"title" json:"title"`
	Price     float64            `bson:"price" json:"price"`
	MainImage string             `bson:"mainImage" json:"mainImage,omitempty"`
}
