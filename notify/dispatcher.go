package notify

import (
	"context"
	"fmt"
	"log"
)

// DefaultBatchSize is the transport's multicast limit per call.
const DefaultBatchSize = 500

type TargetKind string

const (
	TargetAll    TargetKind = "all"
	TargetAdmins TargetKind = "admins"
	TargetUsers  TargetKind = "users"
)

// Target selects the recipient set within one club.
type Target struct {
	Kind    TargetKind
	UserIDs []string // TargetUsers only
}

func All() Target    { return Target{Kind: TargetAll} }
func Admins() Target { return Target{Kind: TargetAdmins} }

func Users(ids ...string) Target { return Target{Kind: TargetUsers, UserIDs: ids} }

type Message struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Summary is the per-call delivery outcome. InvalidTokens lists tokens the
// transport reported as unregistered; a separate maintenance path prunes
// them.
type Summary struct {
	Resolved      int      `json:"resolved"`
	Sent          int      `json:"sent"`
	Failed        int      `json:"failed"`
	InvalidTokens []string `json:"invalid_tokens,omitempty"`
}

// Delivered reports whether the outcome counts as a success for push-status
// purposes: at least one token got through, or nothing actually failed
// (empty audience, gateway disabled).
func (s Summary) Delivered() bool {
	return s.Sent > 0 || s.Failed == 0
}

// BatchResult is one multicast call's outcome.
type BatchResult struct {
	Sent    int
	Failed  int
	Invalid []string
}

// Transport is the external multicast boundary: up to DefaultBatchSize tokens
// per call, per-recipient success/failure, structured invalid-token
// classification.
type Transport interface {
	Send(ctx context.Context, tokens []string, msg Message) (BatchResult, error)
}

// TokenSource resolves a target into concrete device tokens.
type TokenSource interface {
	Resolve(ctx context.Context, target Target) ([]string, error)
}

// Dispatcher fans a message out to a club audience in transport-sized
// batches. Batches fail independently; one bad batch never aborts the rest.
type Dispatcher struct {
	tokens    TokenSource
	transport Transport
	batchSize int
}

func NewDispatcher(tokens TokenSource, transport Transport) *Dispatcher {
	return &Dispatcher{tokens: tokens, transport: transport, batchSize: DefaultBatchSize}
}

func (d *Dispatcher) Send(ctx context.Context, target Target, msg Message) (Summary, error) {
	tokens, err := d.tokens.Resolve(ctx, target)
	if err != nil {
		return Summary{}, fmt.Errorf("resolve tokens: %w", err)
	}

	summary := Summary{Resolved: len(tokens)}
	for start := 0; start < len(tokens); start += d.batchSize {
		end := start + d.batchSize
		if end > len(tokens) {
			end = len(tokens)
		}
		batch := tokens[start:end]

		res, err := d.transport.Send(ctx, batch, msg)
		if err != nil {
			// Whole-batch transport failure: count every token as failed and
			// keep going with the remaining batches.
			log.Printf("notify: batch of %d failed: %v", len(batch), err)
			summary.Failed += len(batch)
			continue
		}
		summary.Sent += res.Sent
		summary.Failed += res.Failed
		summary.InvalidTokens = append(summary.InvalidTokens, res.Invalid...)
	}
	return summary, nil
}
