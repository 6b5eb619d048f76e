// internal/app/user_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"birthday_notification_service/internal/domain/schedule"
	"birthday_notification_service/internal/domain/user"
	idb "birthday_notification_service/internal/infra/database"

	"github.com/sirupsen/logrus"
)

// ErrValidation marks rejections of a create/update request (bad date,
// unknown timezone, missing fields) so the HTTP layer can answer 400.
type ErrValidation struct {
	msg string
}

func (e *ErrValidation) Error() string { return e.msg }

func validationErrorf(format string, args ...any) error {
	return &ErrValidation{msg: fmt.Sprintf(format, args...)}
}

const birthDateLayout = "2006-01-02"

// CreateUserInput carries the fields for user registration.
type CreateUserInput struct {
	FirstName string
	LastName  string
	BirthDate string // YYYY-MM-DD
	Location  string
	Timezone  string // IANA zone
}

// UpdateUserInput carries a partial update; nil fields are untouched.
type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	BirthDate *string
	Location  *string
	Timezone  *string
}

// UserService is the user CRUD collaborator: it owns user records and
// keeps each user's scheduled birthday occurrence in step with their
// birth date and timezone.
type UserService struct {
	userRepo     user.Repository
	scheduleRepo schedule.Repository
	logger       *logrus.Entry
	sendHour     int
	sendMinute   int
	now          func() time.Time
}

func NewUserService(ur user.Repository, sr schedule.Repository, logger *logrus.Entry, sendHour, sendMinute int) *UserService {
	return &UserService{
		userRepo:     ur,
		scheduleRepo: sr,
		logger:       logger,
		sendHour:     sendHour,
		sendMinute:   sendMinute,
		now:          time.Now,
	}
}

// CreateUser validates the input, persists the user and seeds one
// pending birthday occurrence at the next local 09:00 of their birthday.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*user.User, error) {
	if in.FirstName == "" || in.LastName == "" || in.BirthDate == "" || in.Location == "" || in.Timezone == "" {
		return nil, validationErrorf("firstName, lastName, birthDate, location and timezone are required")
	}

	birthDate, err := time.Parse(birthDateLayout, in.BirthDate)
	if err != nil {
		return nil, validationErrorf("invalid birthDate %q: want YYYY-MM-DD", in.BirthDate)
	}
	loc, err := time.LoadLocation(in.Timezone)
	if err != nil {
		return nil, validationErrorf("invalid timezone %q", in.Timezone)
	}

	u := &user.User{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		BirthDate: birthDate,
		Location:  in.Location,
		Timezone:  in.Timezone,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	occ := &schedule.Occurrence{
		UserID:       u.ID,
		Kind:         schedule.KindBirthday,
		ScheduledFor: schedule.NextOccurrence(birthDate.Month(), birthDate.Day(), loc, s.sendHour, s.sendMinute, s.now()),
		Status:       schedule.StatusPending,
	}
	if err := s.scheduleRepo.Create(ctx, occ); err != nil {
		return nil, fmt.Errorf("failed to seed birthday occurrence for user %d: %w", u.ID, err)
	}

	s.logger.Infof("User %d created; birthday occurrence %d scheduled for %s.", u.ID, occ.ID, occ.ScheduledFor.Format(time.RFC3339))
	return u, nil
}

// UpdateUser applies a partial update. When the birth date or timezone
// changed the active occurrence's scheduled_for is recomputed in place.
func (s *UserService) UpdateUser(ctx context.Context, id int64, in UpdateUserInput) (*user.User, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	scheduleChanged := false

	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.Location != nil {
		u.Location = *in.Location
	}
	if in.BirthDate != nil {
		birthDate, err := time.Parse(birthDateLayout, *in.BirthDate)
		if err != nil {
			return nil, validationErrorf("invalid birthDate %q: want YYYY-MM-DD", *in.BirthDate)
		}
		if !birthDate.Equal(u.BirthDate) {
			u.BirthDate = birthDate
			scheduleChanged = true
		}
	}
	if in.Timezone != nil && *in.Timezone != u.Timezone {
		u.Timezone = *in.Timezone
		scheduleChanged = true
	}

	// Validate the (possibly unchanged) timezone before touching the
	// schedule; an invalid zone must reject the whole operation.
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return nil, validationErrorf("invalid timezone %q", u.Timezone)
	}

	if err := s.userRepo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update user %d: %w", id, err)
	}

	if scheduleChanged {
		s.logger.Infof("User %d birth date or timezone changed; recomputing occurrence.", id)
		next := schedule.NextOccurrence(u.BirthDate.Month(), u.BirthDate.Day(), loc, s.sendHour, s.sendMinute, s.now())

		occ, err := s.scheduleRepo.GetByUserAndKind(ctx, id, schedule.KindBirthday)
		if err != nil {
			if err != idb.ErrOccurrenceNotFound {
				return nil, fmt.Errorf("failed to load occurrence for user %d: %w", id, err)
			}
			// Missing row (e.g. removed by hand): reseed instead of failing the update.
			occ = &schedule.Occurrence{
				UserID:       id,
				Kind:         schedule.KindBirthday,
				ScheduledFor: next,
				Status:       schedule.StatusPending,
			}
			if err := s.scheduleRepo.Create(ctx, occ); err != nil {
				return nil, fmt.Errorf("failed to reseed occurrence for user %d: %w", id, err)
			}
		} else if err := s.scheduleRepo.Reschedule(ctx, occ.ID, next); err != nil {
			return nil, fmt.Errorf("failed to reschedule occurrence %d: %w", occ.ID, err)
		}
	}

	return u, nil
}

// DeleteUser removes the user; the occurrence row is destroyed by the
// store's cascading delete.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Infof("User %d removed.", id)
	return nil
}
