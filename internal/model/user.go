package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role names stored in users.role.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents an account document in the `users` collection.
// Only admins are created through the API; the role never changes
// after creation and there is no password update path.
//
// Fields:
//
//	ID        – document identifier.
//	Username  – unique display name.
//	Email     – unique, lower-cased login address.
//	Password  – bcrypt hash; never serialized to clients.
//	Role      – admin or user.
//	CreatedAt – timestamp of creation.
//	UpdatedAt – timestamp of last update.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username  string             `bson:"username" json:"username"`
	Email     string             `bson:"email" json:"email"`
	Password  string             `bson:"password" json:"-"`
	Role      string             `bson:"role" json:"role"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
