package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"verein-backend/models"
)

type fakeSink struct {
	appendFn func(context.Context, *models.AuditRecord) error
	records  []*models.AuditRecord
}

func (f *fakeSink) Append(ctx context.Context, rec *models.AuditRecord) error {
	if f.appendFn != nil {
		return f.appendFn(ctx, rec)
	}
	f.records = append(f.records, rec)
	return nil
}

func TestWriteAppendsOneRecord(t *testing.T) {
	sink := &fakeSink{}
	writer := New(sink)

	err := writer.Write(context.Background(), Entry{
		ActorID:    "user-1",
		Action:     models.AuditMemberChangeRole,
		TargetType: "membership",
		TargetID:   "user-2",
		Before:     map[string]any{"role": "MEMBER"},
		After:      map[string]any{"role": "ADMIN"},
		Meta:       map[string]any{"idempotency_key": "req-1"},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("appended %d records, want 1", len(sink.records))
	}

	rec := sink.records[0]
	if rec.ActorID != "user-1" || rec.Action != models.AuditMemberChangeRole || rec.TargetID != "user-2" {
		t.Errorf("record fields not carried over: %+v", rec)
	}

	var before map[string]string
	if err := json.Unmarshal(rec.Before, &before); err != nil {
		t.Fatalf("before snapshot: %v", err)
	}
	if before["role"] != "MEMBER" {
		t.Errorf("before.role = %q, want MEMBER", before["role"])
	}
	var meta map[string]string
	if err := json.Unmarshal(rec.Meta, &meta); err != nil {
		t.Fatalf("meta: %v", err)
	}
	if meta["idempotency_key"] != "req-1" {
		t.Errorf("meta.idempotency_key = %q, want req-1", meta["idempotency_key"])
	}
}

func TestWriteFailsLoudlyOnSinkError(t *testing.T) {
	sinkErr := errors.New("append rejected")
	writer := New(&fakeSink{appendFn: func(context.Context, *models.AuditRecord) error {
		return sinkErr
	}})

	err := writer.Write(context.Background(), Entry{
		ActorID:    "user-1",
		Action:     models.AuditNoticeCreate,
		TargetType: "notice",
	})
	if !errors.Is(err, sinkErr) {
		t.Fatalf("got %v, want the sink error", err)
	}
}
