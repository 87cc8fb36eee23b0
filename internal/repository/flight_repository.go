// Package repository contains data access logic separated from HTTP handlers.
// This file implements the Flight catalogue on top of the `flights`
// collection. All operations are single-document and non-transactional.
package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iliyamo/balloon-tour-booking/internal/model"
)

const flightsCollection = "flights"

// FlightRepo encapsulates all queries related to flights.
type FlightRepo struct {
	col *mongo.Collection
	now func() time.Time
}

// NewFlightRepo constructs a FlightRepo bound to the flights collection of db.
func NewFlightRepo(db *mongo.Database) *FlightRepo {
	return &FlightRepo{col: db.Collection(flightsCollection), now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts f, assigning its ID and timestamps. Nil slices are stored as
// empty arrays so list reads never return null.
func (r *FlightRepo) Create(ctx context.Context, f *model.Flight) error {
	now := r.now()
	f.ID = primitive.NewObjectID()
	f.CreatedAt, f.UpdatedAt = now, now
	normalizeFlight(f)
	if _, err := r.col.InsertOne(ctx, f); err != nil {
		return err
	}
	return nil
}

// GetByID fetches a flight or returns ErrFlightNotFound.
func (r *FlightRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Flight, error) {
	var f model.Flight
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrFlightNotFound
		}
		return nil, err
	}
	normalizeFlight(&f)
	return &f, nil
}

// List returns every flight, newest first.
func (r *FlightRepo) List(ctx context.Context) ([]model.Flight, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []model.Flight{}
	for cur.Next(ctx) {
		var f model.Flight
		if err := cur.Decode(&f); err != nil {
			return nil, err
		}
		normalizeFlight(&f)
		out = append(out, f)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces the mutable fields of the flight identified by id with the
// values in f and returns the stored document. CreatedAt is preserved.
func (r *FlightRepo) Update(ctx context.Context, id primitive.ObjectID, f *model.Flight) (*model.Flight, error) {
	normalizeFlight(f)
	set := bson.M{
		"title":     f.Title,
		"overview":  f.Overview,
		"mainImage": f.MainImage,
		"images":    f.Images,
		"price":     f.Price,
		"rating":    f.Rating,
		"category":  f.Category,
		"program":   f.Program,
		"reviews":   f.Reviews,
		"updatedAt": r.now(),
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var out model.Flight
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrFlightNotFound
		}
		return nil, err
	}
	normalizeFlight(&out)
	return &out, nil
}

// Delete removes a flight and returns the deleted document so callers can
// clean up its images. Reservations referencing it are left untouched.
func (r *FlightRepo) Delete(ctx context.Context, id primitive.ObjectID) (*model.Flight, error) {
	var out model.Flight
	if err := r.col.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrFlightNotFound
		}
		return nil, err
	}
	return &out, nil
}

// Exists reports whether a flight with id is stored.
func (r *FlightRepo) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Summaries loads title, price and main image for each id. Missing flights
// are simply absent from the result map.
func (r *FlightRepo) Summaries(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]model.FlightSummary, error) {
	out := make(map[primitive.ObjectID]model.FlightSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	proj := options.Find().SetProjection(bson.M{"title": 1, "price": 1, "mainImage": 1})
	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, proj)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var s model.FlightSummary
		if err := cur.Decode(&s); err != nil {
			return nil, err
		}
		out[s.ID] = s
	}
	return out, cur.Err()
}

func normalizeFlight(f *model.Flight) {
	if f.Images == nil {
		f.Images = []string{}
	}
	if f.Program == nil {
		f.Program = []model.ProgramItem{}
	}
	if f.Reviews == nil {
		f.Reviews = []model.Review{}
	}
}
