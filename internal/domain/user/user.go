package user

import (
	"time"
)

// User represents a registered person whose birthday we celebrate.
// BirthDate carries no time-of-day; only its month and day matter for
// scheduling. Timezone must be a valid IANA zone name.
type User struct {
	ID        int64
	FirstName string
	LastName  string
	BirthDate time.Time // date only, time-of-day ignored
	Location  string    // informational, e.g. "Melbourne"
	Timezone  string    // IANA zone, e.g. "Australia/Sydney"
	CreatedAt time.Time
	UpdatedAt time.Time
}
