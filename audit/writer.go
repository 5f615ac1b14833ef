package audit

import (
	"context"
	"fmt"

	"verein-backend/models"
)

// Entry is one privileged mutation to record. Before/After are arbitrary
// serializable snapshots; Meta is free-form request context.
type Entry struct {
	ActorID    string
	Action     models.AuditAction
	TargetType string
	TargetID   string
	Before     any
	After      any
	Meta       map[string]any
}

// Sink appends one immutable record. Existing records are never updated or
// deleted by this subsystem.
type Sink interface {
	Append(ctx context.Context, rec *models.AuditRecord) error
}

type Writer struct {
	sink Sink
}

func New(sink Sink) *Writer {
	return &Writer{sink: sink}
}

// Write appends one audit record. It runs inside the idempotent unit of work,
// so the enclosing mutation is only committed once the record is durable; a
// failure here fails the mutation loudly.
func (w *Writer) Write(ctx context.Context, e Entry) error {
	before, err := Summarize(e.Before)
	if err != nil {
		return fmt.Errorf("audit: summarize before: %w", err)
	}
	after, err := Summarize(e.After)
	if err != nil {
		return fmt.Errorf("audit: summarize after: %w", err)
	}
	var meta []byte
	if e.Meta != nil {
		meta, err = marshalMeta(e.Meta)
		if err != nil {
			return fmt.Errorf("audit: marshal meta: %w", err)
		}
	}

	rec := &models.AuditRecord{
		ActorID:    e.ActorID,
		Action:     e.Action,
		TargetType: e.TargetType,
		TargetID:   e.TargetID,
		Before:     before,
		After:      after,
		Meta:       meta,
	}
	if err := w.sink.Append(ctx, rec); err != nil {
		return fmt.Errorf("audit: append: %w", err)
	}
	return nil
}
