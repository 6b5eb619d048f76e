package app

import (
	"context"
	"sync"
	"time"

	"birthday_notification_service/internal/domain/schedule"
	"birthday_notification_service/internal/domain/user"
	idb "birthday_notification_service/internal/infra/database"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

// fakeNotifier records sends and fails a configurable number of times.
type fakeNotifier struct {
	mu        sync.Mutex
	sent      []string
	failTimes int // fail the first N calls
	failFor   map[string]bool
	err       error
}

func (f *fakeNotifier) Send(_ context.Context, firstName, lastName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := firstName + " " + lastName
	if f.failTimes > 0 || f.failFor[name] {
		if f.failTimes > 0 {
			f.failTimes--
		}
		if f.err != nil {
			return f.err
		}
		return errSendFailed
	}
	f.sent = append(f.sent, name)
	return nil
}

var errSendFailed = &notifierError{"remote service unavailable"}

type notifierError struct{ msg string }

func (e *notifierError) Error() string { return e.msg }

// fakeScheduleRepo is an in-memory schedule.Repository.
type fakeScheduleRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*schedule.Occurrence

	// write log for idempotence assertions
	writes []string
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{rows: map[int64]*schedule.Occurrence{}}
}

func (f *fakeScheduleRepo) add(o *schedule.Occurrence) *schedule.Occurrence {
	f.nextID++
	o.ID = f.nextID
	f.rows[o.ID] = o
	return o
}

func (f *fakeScheduleRepo) logWrite(op string) {
	f.writes = append(f.writes, op)
}

func (f *fakeScheduleRepo) Create(_ context.Context, o *schedule.Occurrence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.UserID == o.UserID && row.Kind == o.Kind {
			return idb.ErrDuplicateOccurrence
		}
	}
	f.add(o)
	f.logWrite("create")
	return nil
}

func (f *fakeScheduleRepo) GetByID(_ context.Context, id int64) (*schedule.Occurrence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.rows[id]
	if !ok {
		return nil, idb.ErrOccurrenceNotFound
	}
	return o, nil
}

func (f *fakeScheduleRepo) GetByUserAndKind(_ context.Context, userID int64, kind schedule.Kind) (*schedule.Occurrence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.rows {
		if o.UserID == userID && o.Kind == kind {
			return o, nil
		}
	}
	return nil, idb.ErrOccurrenceNotFound
}

func (f *fakeScheduleRepo) FindDueInRange(_ context.Context, from, to time.Time) ([]*schedule.Occurrence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []*schedule.Occurrence
	for _, o := range f.rows {
		if o.Status == schedule.StatusPending && !o.ScheduledFor.Before(from) && !o.ScheduledFor.After(to) {
			due = append(due, o)
		}
	}
	return due, nil
}

func (f *fakeScheduleRepo) FindStaleBefore(_ context.Context, cutoff time.Time) ([]*schedule.Occurrence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stale []*schedule.Occurrence
	for _, o := range f.rows {
		switch o.Status {
		case schedule.StatusPending, schedule.StatusProcessing, schedule.StatusFailed:
			if o.ScheduledFor.Before(cutoff) {
				stale = append(stale, o)
			}
		}
	}
	return stale, nil
}

func (f *fakeScheduleRepo) FindSentBefore(_ context.Context, cutoff time.Time) ([]*schedule.Occurrence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sent []*schedule.Occurrence
	for _, o := range f.rows {
		if o.Status == schedule.StatusSent && o.ScheduledFor.Before(cutoff) {
			sent = append(sent, o)
		}
	}
	return sent, nil
}

func (f *fakeScheduleRepo) MarkProcessing(_ context.Context, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if o, ok := f.rows[id]; ok {
			o.Status = schedule.StatusProcessing
		}
	}
	f.logWrite("markProcessing")
	return nil
}

func (f *fakeScheduleRepo) MarkSent(_ context.Context, id int64, sentAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.rows[id]
	if !ok {
		return idb.ErrOccurrenceNotFound
	}
	o.Status = schedule.StatusSent
	o.SentAt.Time = sentAt
	o.SentAt.Valid = true
	f.logWrite("markSent")
	return nil
}

func (f *fakeScheduleRepo) MarkFailed(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.rows[id]
	if !ok {
		return idb.ErrOccurrenceNotFound
	}
	o.Status = schedule.StatusFailed
	f.logWrite("markFailed")
	return nil
}

func (f *fakeScheduleRepo) MarkPending(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.rows[id]
	if !ok {
		return idb.ErrOccurrenceNotFound
	}
	o.Status = schedule.StatusPending
	f.logWrite("markPending")
	return nil
}

func (f *fakeScheduleRepo) IncrementAttempts(_ context.Context, id int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.rows[id]
	if !ok {
		return 0, idb.ErrOccurrenceNotFound
	}
	o.Attempts++
	f.logWrite("incrementAttempts")
	return o.Attempts, nil
}

func (f *fakeScheduleRepo) Reschedule(_ context.Context, id int64, newInstant time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.rows[id]
	if !ok {
		return idb.ErrOccurrenceNotFound
	}
	o.ScheduledFor = newInstant
	o.Status = schedule.StatusPending
	o.Attempts = 0
	o.SentAt.Valid = false
	f.logWrite("reschedule")
	return nil
}

// fakeUserRepo is an in-memory user.Repository.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{rows: map[int64]*user.User{}}
}

func (f *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	u.ID = f.nextID
	f.rows[u.ID] = u
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return nil, idb.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) Update(_ context.Context, u *user.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[u.ID]; !ok {
		return idb.ErrUserNotFound
	}
	f.rows[u.ID] = u
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return idb.ErrUserNotFound
	}
	delete(f.rows, id)
	return nil
}

// fakePublisher records published batches.
type fakePublisher struct {
	mu      sync.Mutex
	batches [][]OutboundMessage
	err     error
}

func (f *fakePublisher) PublishBatch(_ context.Context, msgs []OutboundMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, msgs)
	return nil
}
