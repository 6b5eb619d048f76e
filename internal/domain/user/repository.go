package user

import (
	"context"
)

// Repository defines the operations for persisting and retrieving User entities.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	Update(ctx context.Context, u *User) error // FirstName, LastName, Location, BirthDate, Timezone
	Delete(ctx context.Context, id int64) error
}
