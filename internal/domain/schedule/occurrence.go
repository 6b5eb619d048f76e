package schedule

import (
	"database/sql"
	"time"

	"birthday_notification_service/internal/domain/user"
)

// Kind identifies the recurring event an occurrence belongs to.
// Open enumeration: new kinds (e.g. anniversaries) only add constants.
type Kind string

const (
	KindBirthday Kind = "birthday"
)

// Status tracks the delivery state of an occurrence.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// MaxAttempts is the delivery retry cap. Once an occurrence fails this
// many times it is marked failed and left for the recovery sweep.
const MaxAttempts = 3

// Occurrence is one scheduled delivery obligation: a single user's
// birthday in a single year. At most one row exists per (user, kind);
// after a send the same row is rewritten for the following year.
// Corresponds to the 'scheduled_notifications' table.
type Occurrence struct {
	ID           int64
	UserID       int64
	Kind         Kind
	ScheduledFor time.Time // UTC instant at which delivery should occur
	Status       Status
	Attempts     int
	SentAt       sql.NullTime
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// User is populated by reads that feed the dispatcher and the
	// recovery sweep, so a batch never needs per-row user lookups.
	User *user.User
}
