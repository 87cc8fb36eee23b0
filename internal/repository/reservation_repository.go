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

const reservationsCollection = "reservations"

// ReservationRepo provides access to the `reservations` collection.
type ReservationRepo struct {
	col *mongo.Collection
	now func() time.Time
}

func NewReservationRepo(db *mongo.Database) *ReservationRepo {
	return &ReservationRepo{col: db.Collection(reservationsCollection), now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts a reservation and fills in ID and timestamps.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	now := r.now()
	res.ID = primitive.NewObjectID()
	res.CreatedAt, res.UpdatedAt = now, now
	_, err := r.col.InsertOne(ctx, res)
	return err
}

// GetByID returns ErrReservationNotFound when nothing matches.
func (r *ReservationRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Reservation, error) {
	var res model.Reservation
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&res); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return &res, nil
}

// List returns all reservations ordered newest first.
func (r *ReservationRepo) List(ctx context.Context) ([]model.Reservation, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []model.Reservation{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the reservation and returns what was deleted.
func (r *ReservationRepo) Delete(ctx context.Context, id primitive.ObjectID) (*model.Reservation, error) {
	var res model.Reservation
	if err := r.col.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&res); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return &res, nil
}

// CountByFlight counts reservations that reference flightID.
func (r *ReservationRepo) CountByFlight(ctx context.Context, flightID primitive.ObjectID) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"flight": flightID})
}
