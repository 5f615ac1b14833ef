package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"verein-backend/audit"
	"verein-backend/idempotency"
	"verein-backend/models"
	"verein-backend/notify"

	"gorm.io/datatypes"
)

// memStore is an in-memory idempotency.Store so the job runs against the real
// coordinator without a database.
type memStore struct {
	mu      sync.Mutex
	records map[string]*models.IdempotencyRecord
}

func newMemStore() *memStore {
	return &memStore{records: map[string]*models.IdempotencyRecord{}}
}

func (s *memStore) Find(_ context.Context, keyHash string) (*models.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[keyHash]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (s *memStore) Create(_ context.Context, rec *models.IdempotencyRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.KeyHash]; ok {
		return false, nil
	}
	cp := *rec
	s.records[rec.KeyHash] = &cp
	return true, nil
}

func (s *memStore) Finish(_ context.Context, keyHash string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[keyHash]
	if !ok {
		return errors.New("no record to finish")
	}
	for col, v := range fields {
		switch col {
		case "status":
			rec.Status = v.(models.IdempotencyStatus)
		case "result":
			rec.Result = v.(datatypes.JSON)
		case "error":
			rec.Error = v.(*string)
		case "finished_at":
			rec.FinishedAt = v.(*time.Time)
		}
	}
	return nil
}

type fakeEvents struct {
	mu         sync.Mutex
	due        []models.Event
	closed     map[string]int
	closeErr   map[string]error
	summaries  map[string]models.AttendanceSummary
	attendance models.AttendanceSummary
}

func newFakeEvents(due ...models.Event) *fakeEvents {
	return &fakeEvents{
		due:        due,
		closed:     map[string]int{},
		closeErr:   map[string]error{},
		summaries:  map[string]models.AttendanceSummary{},
		attendance: models.AttendanceSummary{Attending: 7, Absent: 2, Maybe: 1},
	}
}

func (f *fakeEvents) Due(context.Context, time.Time) ([]models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Event(nil), f.due...), nil
}

func (f *fakeEvents) Close(_ context.Context, eventID string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.closeErr[eventID]; err != nil {
		return err
	}
	f.closed[eventID]++
	return nil
}

func (f *fakeEvents) CountAttendance(context.Context, string) (models.AttendanceSummary, error) {
	return f.attendance, nil
}

func (f *fakeEvents) SaveSummary(_ context.Context, eventID string, s models.AttendanceSummary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries[eventID] = s
	return nil
}

type fakeNotify struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeNotify) Send(context.Context, notify.Target, notify.Message) (notify.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return notify.Summary{}, f.err
	}
	return notify.Summary{Resolved: 3, Sent: 3}, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (f *fakeAudit) Write(_ context.Context, e audit.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func dueEvent(id string) models.Event {
	return models.Event{
		Id:          id,
		Type:        models.EventTypeEvent,
		Title:       "Annual meeting " + id,
		VoteCloseAt: time.Now().Add(-time.Hour),
	}
}

func testJob(events *fakeEvents, notifier *fakeNotify, auditor *fakeAudit) (*Job, *memStore) {
	store := newMemStore()
	tenant := Tenant{
		Schema: "club_test",
		Events: events,
		Coord:  idempotency.New(store),
		Notify: notifier,
		Audit:  auditor,
	}
	job := &Job{
		Tenants: func(context.Context) ([]Tenant, error) {
			return []Tenant{tenant}, nil
		},
	}
	return job, store
}

func TestRunOnceClosesDueEvents(t *testing.T) {
	events := newFakeEvents(dueEvent("ev-1"), dueEvent("ev-2"))
	notifier := &fakeNotify{}
	auditor := &fakeAudit{}
	job, _ := testJob(events, notifier, auditor)

	stats := job.RunOnce(context.Background())

	if stats.Closed != 2 || stats.Failed != 0 || stats.Scanned != 2 {
		t.Fatalf("stats = %+v, want 2 scanned and closed", stats)
	}
	for _, id := range []string{"ev-1", "ev-2"} {
		if events.closed[id] != 1 {
			t.Errorf("event %s closed %d times, want 1", id, events.closed[id])
		}
		if events.summaries[id].Attending != 7 {
			t.Errorf("event %s summary not saved: %+v", id, events.summaries[id])
		}
	}
	if len(auditor.entries) != 2 {
		t.Fatalf("wrote %d audit entries, want 2", len(auditor.entries))
	}
	if auditor.entries[0].Action != models.AuditEventCloseVoting {
		t.Errorf("audit action = %s, want %s", auditor.entries[0].Action, models.AuditEventCloseVoting)
	}
	if notifier.calls != 2 {
		t.Errorf("notified %d times, want 2", notifier.calls)
	}
}

func TestRunOnceReplayIsNoOp(t *testing.T) {
	// The store keeps returning the event as due, simulating an overlapping
	// tick that scanned before the first close committed.
	events := newFakeEvents(dueEvent("ev-1"))
	job, _ := testJob(events, &fakeNotify{}, &fakeAudit{})

	first := job.RunOnce(context.Background())
	second := job.RunOnce(context.Background())

	if first.Closed != 1 || second.Closed != 1 {
		t.Fatalf("stats = %+v then %+v, want closed=1 both ticks", first, second)
	}
	if events.closed["ev-1"] != 1 {
		t.Fatalf("event closed %d times across two ticks, want exactly 1", events.closed["ev-1"])
	}
}

func TestRunOnceOneFailureDoesNotAbortBatch(t *testing.T) {
	events := newFakeEvents(dueEvent("ev-ok"), dueEvent("ev-bad"))
	events.closeErr["ev-bad"] = errors.New("deadlock detected")
	job, _ := testJob(events, &fakeNotify{}, &fakeAudit{})

	stats := job.RunOnce(context.Background())

	if stats.Closed != 1 || stats.Failed != 1 {
		t.Fatalf("stats = %+v, want one closed and one failed", stats)
	}
	if events.closed["ev-ok"] != 1 {
		t.Error("the healthy event must still close")
	}
}

func TestRunOnceNotifyFailureStillCloses(t *testing.T) {
	events := newFakeEvents(dueEvent("ev-1"))
	auditor := &fakeAudit{}
	job, _ := testJob(events, &fakeNotify{err: errors.New("gateway down")}, auditor)

	stats := job.RunOnce(context.Background())

	if stats.Closed != 1 || stats.Failed != 0 {
		t.Fatalf("stats = %+v, delivery trouble must not fail the close", stats)
	}
	if len(auditor.entries) != 1 {
		t.Errorf("wrote %d audit entries, want 1", len(auditor.entries))
	}
}

func TestRunOnceCountsBusyKeys(t *testing.T) {
	events := newFakeEvents(dueEvent("ev-1"))
	job, store := testJob(events, &fakeNotify{}, &fakeAudit{})

	// A concurrent invocation holds the key mid-flight.
	_, _ = store.Create(context.Background(), &models.IdempotencyRecord{
		KeyHash:     idempotency.KeyHash("event-close:club_test:ev-1"),
		OriginalKey: "event-close:club_test:ev-1",
		Status:      models.IdempotencyRunning,
	})

	stats := job.RunOnce(context.Background())

	if stats.Busy != 1 || stats.Closed != 0 {
		t.Fatalf("stats = %+v, want busy=1", stats)
	}
	if events.closed["ev-1"] != 0 {
		t.Error("a held key must block the close entirely")
	}
}
