package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"verein-backend/apperr"
	"verein-backend/models"

	"gorm.io/datatypes"
)

// Work is one side-effecting unit guarded by an idempotency key. It must
// return the serialized result that replays of the same key will observe.
type Work func(ctx context.Context) (datatypes.JSON, error)

// Store is the document-store boundary the coordinator needs: point read,
// atomic create-if-absent, and merge-update. The GORM adapter commits each
// call in its own short schema-pinned transaction so claim/finish writes are
// independent of whatever transaction the work itself runs.
type Store interface {
	// Find returns the record for keyHash, or nil if absent.
	Find(ctx context.Context, keyHash string) (*models.IdempotencyRecord, error)
	// Create atomically creates the record if absent. created=false means a
	// concurrent writer won the race (or the record already existed).
	Create(ctx context.Context, rec *models.IdempotencyRecord) (created bool, err error)
	// Finish merge-updates the given columns; identity fields stay untouched.
	Finish(ctx context.Context, keyHash string, fields map[string]any) error
}

// Coordinator guarantees a logical operation identified by a key executes its
// side effects at most once per club, even under concurrent retries.
type Coordinator struct {
	store Store
}

func New(store Store) *Coordinator {
	return &Coordinator{store: store}
}

// KeyHash is the record identity: sha256 hex of the caller-supplied key.
func KeyHash(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Run executes work at most once for key. Replays after completion return the
// stored result without invoking work; a key that is RUNNING or FAILED is
// rejected with Busy. A work error is durably recorded and returned as-is.
func (c *Coordinator) Run(ctx context.Context, key string, work Work) (datatypes.JSON, error) {
	keyHash := KeyHash(key)

	rec, err := c.store.Find(ctx, keyHash)
	if err != nil {
		return nil, fmt.Errorf("idempotency lookup failed: %w", err)
	}
	if rec != nil {
		return settled(rec)
	}

	claim := &models.IdempotencyRecord{
		KeyHash:     keyHash,
		OriginalKey: key,
		Status:      models.IdempotencyRunning,
		CreatedAt:   time.Now().UTC(),
	}
	created, err := c.store.Create(ctx, claim)
	if err != nil {
		return nil, fmt.Errorf("idempotency claim failed: %w", err)
	}
	if !created {
		// Lost the create race: the winner's record decides.
		rec, err := c.store.Find(ctx, keyHash)
		if err != nil {
			return nil, fmt.Errorf("idempotency re-read failed: %w", err)
		}
		if rec == nil {
			return nil, apperr.New(apperr.Busy, "operation already in progress")
		}
		return settled(rec)
	}

	result, workErr := work(ctx)
	finishedAt := time.Now().UTC()

	if workErr != nil {
		msg := workErr.Error()
		if err := c.store.Finish(ctx, keyHash, map[string]any{
			"status":      models.IdempotencyFailed,
			"error":       &msg,
			"finished_at": &finishedAt,
		}); err != nil {
			// The FAILED marker is best effort; the caller still sees the
			// original error.
			log.Printf("idempotency: recording failure for key %q failed: %v", key, err)
		}
		return nil, workErr
	}

	if err := c.store.Finish(ctx, keyHash, map[string]any{
		"status":      models.IdempotencyDone,
		"result":      result,
		"finished_at": &finishedAt,
	}); err != nil {
		return nil, fmt.Errorf("idempotency finish failed: %w", err)
	}
	return result, nil
}

// settled resolves an existing record: DONE replays its result; RUNNING and
// FAILED both reject with Busy. Re-running a previously failed side-effecting
// operation risks duplicate partial effects, so FAILED is terminal here.
func settled(rec *models.IdempotencyRecord) (datatypes.JSON, error) {
	if rec.Status == models.IdempotencyDone {
		return rec.Result, nil
	}
	return nil, apperr.WithDetails(apperr.Busy, "operation already in progress or previously failed",
		map[string]any{"key": rec.OriginalKey, "status": rec.Status})
}
