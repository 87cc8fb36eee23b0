// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver errors.
package repository

import (
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidID is returned by ParseID for anything that is not a 24 character
// hex ObjectID. Handlers translate it into HTTP 400 before touching the store.
var ErrInvalidID = errors.New("invalid id")

var (
	ErrFlightNotFound      = errors.New("flight not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrUserNotFound        = errors.New("user not found")
)

// ErrUserExists is returned when a username or email is already taken.
// Field names which of the two collided.
type ErrUserExists struct {
	Field string
}

func (e *ErrUserExists) Error() string { return "user already exists: " + e.Field }

// ParseID converts a path parameter into an ObjectID.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return id, nil
}
