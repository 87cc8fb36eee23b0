package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/iliyamo/balloon-tour-booking/internal/model"
)

const usersCollection = "users"

type UserRepo struct {
	col *mongo.Collection
	now func() time.Time
}

func NewUserRepo(db *mongo.Database) *UserRepo {
	return &UserRepo{col: db.Collection(usersCollection), now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts a user whose Password is already hashed. A unique index
// violation is reported as *ErrUserExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	now := r.now()
	u.ID = primitive.NewObjectID()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt, u.UpdatedAt = now, now
	if _, err := r.col.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &ErrUserExists{Field: duplicateField(err)}
		}
		return err
	}
	return nil
}

// duplicateField maps the unique index named in a duplicate key write error
// to the user field it guards.  Anything unrecognised is reported as email.
func duplicateField(err error) string {
	var we mongo.WriteException
	if !errors.As(err, &we) {
		return "email"
	}
	for _, e := range we.WriteErrors {
		if e.Code == 11000 && indexName(e.Message) == usernameIndex {
			return "username"
		}
	}
	return "email"
}

// indexName extracts the index from a server message of the form
// "E11000 duplicate key error collection: db.users index: <name> dup key: ...".
func indexName(msg string) string {
	_, rest, ok := strings.Cut(msg, " index: ")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, " ")
	return name
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	if err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// FindByUsernameOrEmail returns the first user matching either value.
func (r *UserRepo) FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"username": username},
		bson.M{"email": strings.ToLower(strings.TrimSpace(email))},
	}}
	var u model.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Count returns the number of stored users.
func (r *UserRepo) Count(ctx context.Context) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{})
}
