package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"verein-backend/apperr"
	"verein-backend/audit"
	"verein-backend/idempotency"
	"verein-backend/models"
	"verein-backend/notify"

	"gorm.io/datatypes"
)

// EventStore is the slice of the document store the vote-close job needs:
// a filtered scan plus two sequential merge-updates (no cross-document
// transaction required).
type EventStore interface {
	Due(ctx context.Context, now time.Time) ([]models.Event, error)
	Close(ctx context.Context, eventID string, closedAt time.Time) error
	CountAttendance(ctx context.Context, eventID string) (models.AttendanceSummary, error)
	SaveSummary(ctx context.Context, eventID string, s models.AttendanceSummary) error
}

// Runner is satisfied by *idempotency.Coordinator.
type Runner interface {
	Run(ctx context.Context, key string, work idempotency.Work) (datatypes.JSON, error)
}

// Notifier is satisfied by *notify.Dispatcher.
type Notifier interface {
	Send(ctx context.Context, target notify.Target, msg notify.Message) (notify.Summary, error)
}

// Auditor is satisfied by *audit.Writer.
type Auditor interface {
	Write(ctx context.Context, e audit.Entry) error
}

// Tenant bundles one club's collaborators for a tick.
type Tenant struct {
	Schema string
	Events EventStore
	Coord  Runner
	Notify Notifier
	Audit  Auditor
}

// Stats aggregates one tick's per-event outcomes.
type Stats struct {
	Tenants int
	Scanned int
	Closed  int // closed now or already DONE (replayed no-op)
	Busy    int // another invocation holds the key
	Failed  int
}

// Job is the periodic vote-close reconciliation. Ticks are re-entrant safe:
// the per-event idempotency key serializes overlapping invocations.
type Job struct {
	Tenants func(ctx context.Context) ([]Tenant, error)
	Now     func() time.Time // defaults to time.Now
}

type closeResult struct {
	EventID      string                   `json:"event_id"`
	VoteClosedAt time.Time                `json:"vote_closed_at"`
	Summary      models.AttendanceSummary `json:"attendance_summary"`
}

// RunOnce scans every club for events whose vote window has elapsed and
// closes each one independently. One event's failure never aborts the batch;
// failed items are retried naturally on the next tick because vote_closed
// stays false unless the close committed.
func (j *Job) RunOnce(ctx context.Context) Stats {
	now := time.Now()
	if j.Now != nil {
		now = j.Now()
	}

	stats := Stats{}
	tenants, err := j.Tenants(ctx)
	if err != nil {
		log.Printf("reconcile: listing clubs failed: %v", err)
		return stats
	}
	stats.Tenants = len(tenants)

	// Sequential across clubs, concurrent across events within a club.
	for _, tenant := range tenants {
		due, err := tenant.Events.Due(ctx, now)
		if err != nil {
			log.Printf("reconcile[%s]: scan failed: %v", tenant.Schema, err)
			continue
		}
		stats.Scanned += len(due)

		var (
			wg sync.WaitGroup
			mu sync.Mutex
		)
		for _, event := range due {
			wg.Add(1)
			go func(event models.Event) {
				defer wg.Done()
				err := j.closeOne(ctx, tenant, event, now)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					stats.Closed++
				case apperr.Is(err, apperr.Busy):
					stats.Busy++
				default:
					stats.Failed++
					log.Printf("reconcile[%s]: event %s: %v", tenant.Schema, event.Id, err)
				}
			}(event)
		}
		wg.Wait()
	}

	log.Printf("reconcile: clubs=%d scanned=%d closed=%d busy=%d failed=%d",
		stats.Tenants, stats.Scanned, stats.Closed, stats.Busy, stats.Failed)
	return stats
}

func (j *Job) closeOne(ctx context.Context, tenant Tenant, event models.Event, now time.Time) error {
	key := fmt.Sprintf("event-close:%s:%s", tenant.Schema, event.Id)
	_, err := tenant.Coord.Run(ctx, key, func(ctx context.Context) (datatypes.JSON, error) {
		closedAt := now.UTC()
		if err := tenant.Events.Close(ctx, event.Id, closedAt); err != nil {
			return nil, fmt.Errorf("close voting: %w", err)
		}

		summary, err := tenant.Events.CountAttendance(ctx, event.Id)
		if err != nil {
			return nil, fmt.Errorf("aggregate attendance: %w", err)
		}
		if err := tenant.Events.SaveSummary(ctx, event.Id, summary); err != nil {
			return nil, fmt.Errorf("save summary: %w", err)
		}

		if err := tenant.Audit.Write(ctx, audit.Entry{
			ActorID:    "scheduler",
			Action:     models.AuditEventCloseVoting,
			TargetType: "event",
			TargetID:   event.Id,
			Before:     map[string]any{"vote_closed": false},
			After:      map[string]any{"vote_closed": true, "attendance_summary": summary},
		}); err != nil {
			return nil, err
		}

		// Best effort: a delivery failure never rolls back or fails the close.
		if _, err := tenant.Notify.Send(ctx, notify.All(), notify.Message{
			Title: "Voting closed",
			Body:  fmt.Sprintf("Attendance voting for %q has closed.", event.Title),
			Data:  map[string]string{"event_id": event.Id},
		}); err != nil {
			log.Printf("reconcile[%s]: notify for event %s failed: %v", tenant.Schema, event.Id, err)
		}

		raw, err := json.Marshal(closeResult{EventID: event.Id, VoteClosedAt: closedAt, Summary: summary})
		if err != nil {
			return nil, err
		}
		return datatypes.JSON(raw), nil
	})
	return err
}

// Start runs the job on a fixed interval until ctx is cancelled.
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.RunOnce(ctx)
			}
		}
	}()
}
