package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"birthday_notification_service/internal/app"
	"birthday_notification_service/internal/domain/schedule"
	"birthday_notification_service/internal/domain/user"
	idb "birthday_notification_service/internal/infra/database"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memUserRepo and memScheduleRepo back the handler tests with enough
// persistence for the service to run end to end in memory.
type memUserRepo struct {
	nextID int64
	rows   map[int64]*user.User
}

func (m *memUserRepo) Create(_ context.Context, u *user.User) error {
	m.nextID++
	u.ID = m.nextID
	m.rows[u.ID] = u
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id int64) (*user.User, error) {
	u, ok := m.rows[id]
	if !ok {
		return nil, idb.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) Update(_ context.Context, u *user.User) error {
	if _, ok := m.rows[u.ID]; !ok {
		return idb.ErrUserNotFound
	}
	m.rows[u.ID] = u
	return nil
}

func (m *memUserRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.rows[id]; !ok {
		return idb.ErrUserNotFound
	}
	delete(m.rows, id)
	return nil
}

type memScheduleRepo struct {
	nextID int64
	rows   map[int64]*schedule.Occurrence
}

func (m *memScheduleRepo) Create(_ context.Context, o *schedule.Occurrence) error {
	m.nextID++
	o.ID = m.nextID
	m.rows[o.ID] = o
	return nil
}

func (m *memScheduleRepo) GetByID(_ context.Context, id int64) (*schedule.Occurrence, error) {
	o, ok := m.rows[id]
	if !ok {
		return nil, idb.ErrOccurrenceNotFound
	}
	return o, nil
}

func (m *memScheduleRepo) GetByUserAndKind(_ context.Context, userID int64, kind schedule.Kind) (*schedule.Occurrence, error) {
	for _, o := range m.rows {
		if o.UserID == userID && o.Kind == kind {
			return o, nil
		}
	}
	return nil, idb.ErrOccurrenceNotFound
}

func (m *memScheduleRepo) FindDueInRange(context.Context, time.Time, time.Time) ([]*schedule.Occurrence, error) {
	return nil, nil
}

func (m *memScheduleRepo) FindStaleBefore(context.Context, time.Time) ([]*schedule.Occurrence, error) {
	return nil, nil
}

func (m *memScheduleRepo) FindSentBefore(context.Context, time.Time) ([]*schedule.Occurrence, error) {
	return nil, nil
}

func (m *memScheduleRepo) MarkProcessing(context.Context, []int64) error      { return nil }
func (m *memScheduleRepo) MarkSent(context.Context, int64, time.Time) error   { return nil }
func (m *memScheduleRepo) MarkFailed(context.Context, int64) error            { return nil }
func (m *memScheduleRepo) MarkPending(context.Context, int64) error           { return nil }
func (m *memScheduleRepo) IncrementAttempts(context.Context, int64) (int, error) { return 0, nil }

func (m *memScheduleRepo) Reschedule(_ context.Context, id int64, newInstant time.Time) error {
	o, ok := m.rows[id]
	if !ok {
		return idb.ErrOccurrenceNotFound
	}
	o.ScheduledFor = newInstant
	o.Status = schedule.StatusPending
	o.Attempts = 0
	return nil
}

func newTestServer() (http.Handler, *memUserRepo, *memScheduleRepo) {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	entry := logrus.NewEntry(l)

	users := &memUserRepo{rows: map[int64]*user.User{}}
	schedules := &memScheduleRepo{rows: map[int64]*schedule.Occurrence{}}
	svc := app.NewUserService(users, schedules, entry, 9, 0)

	return NewRouter(NewUserHandler(svc, entry)), users, schedules
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateUserEndpoint(t *testing.T) {
	h, _, schedules := newTestServer()

	rec := doJSON(t, h, http.MethodPost, "/users", map[string]string{
		"firstName": "Jane",
		"lastName":  "Doe",
		"birthDate": "1990-12-25",
		"location":  "Sydney",
		"timezone":  "Australia/Sydney",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Message string `json:"message"`
		Data    struct {
			ID        int64  `json:"id"`
			FirstName string `json:"firstName"`
			BirthDate string `json:"birthDate"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "User created", resp.Message)
	assert.Equal(t, "Jane", resp.Data.FirstName)
	assert.Equal(t, "1990-12-25", resp.Data.BirthDate)
	assert.Len(t, schedules.rows, 1, "creating a user seeds one occurrence")
}

func TestCreateUserEndpoint_ValidationErrors(t *testing.T) {
	h, _, _ := newTestServer()

	rec := doJSON(t, h, http.MethodPost, "/users", map[string]string{
		"firstName": "Jane",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/users", map[string]string{
		"firstName": "Jane",
		"lastName":  "Doe",
		"birthDate": "1990-12-25",
		"location":  "Nowhere",
		"timezone":  "Not/AZone",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/users", bytes.NewBufferString("{not json"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateUserEndpoint(t *testing.T) {
	h, _, schedules := newTestServer()

	rec := doJSON(t, h, http.MethodPost, "/users", map[string]string{
		"firstName": "Jane",
		"lastName":  "Doe",
		"birthDate": "1990-03-01",
		"location":  "London",
		"timezone":  "Europe/London",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var before time.Time
	for _, o := range schedules.rows {
		before = o.ScheduledFor
	}

	rec = doJSON(t, h, http.MethodPut, "/users/1", map[string]string{
		"birthDate": "1990-06-10",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			BirthDate string `json:"birthDate"`
			LastName  string `json:"lastName"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1990-06-10", resp.Data.BirthDate)
	assert.Equal(t, "Doe", resp.Data.LastName, "omitted fields stay untouched")

	for _, o := range schedules.rows {
		assert.False(t, o.ScheduledFor.Equal(before), "occurrence moved after birth date change")
	}
}

func TestUpdateUserEndpoint_Errors(t *testing.T) {
	h, _, _ := newTestServer()

	rec := doJSON(t, h, http.MethodPut, "/users/42", map[string]string{"firstName": "X"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodPut, "/users/abc", map[string]string{"firstName": "X"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteUserEndpoint(t *testing.T) {
	h, users, _ := newTestServer()

	rec := doJSON(t, h, http.MethodPost, "/users", map[string]string{
		"firstName": "Jane",
		"lastName":  "Doe",
		"birthDate": "1990-06-10",
		"location":  "X",
		"timezone":  "UTC",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/users/1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, users.rows)

	rec = doJSON(t, h, http.MethodDelete, "/users/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthz(t *testing.T) {
	h, _, _ := newTestServer()
	rec := doJSON(t, h, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
