package notify

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type fakeTokens struct {
	tokens []string
	err    error
	got    Target
}

func (f *fakeTokens) Resolve(ctx context.Context, target Target) ([]string, error) {
	f.got = target
	return f.tokens, f.err
}

type fakeTransport struct {
	batches [][]string
	sendFn  func(tokens []string) (BatchResult, error)
}

func (f *fakeTransport) Send(ctx context.Context, tokens []string, msg Message) (BatchResult, error) {
	f.batches = append(f.batches, tokens)
	if f.sendFn != nil {
		return f.sendFn(tokens)
	}
	return BatchResult{Sent: len(tokens)}, nil
}

func manyTokens(n int) []string {
	tokens := make([]string, n)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("tok-%04d", i)
	}
	return tokens
}

func TestSendPartitionsIntoTransportBatches(t *testing.T) {
	transport := &fakeTransport{}
	d := NewDispatcher(&fakeTokens{tokens: manyTokens(1200)}, transport)

	summary, err := d.Send(context.Background(), All(), Message{Title: "hi"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	wantSizes := []int{500, 500, 200}
	if len(transport.batches) != len(wantSizes) {
		t.Fatalf("sent %d batches, want %d", len(transport.batches), len(wantSizes))
	}
	for i, want := range wantSizes {
		if len(transport.batches[i]) != want {
			t.Errorf("batch %d size = %d, want %d", i, len(transport.batches[i]), want)
		}
	}
	if summary.Sent != 1200 || summary.Failed != 0 || summary.Resolved != 1200 {
		t.Errorf("summary = %+v, want 1200 sent", summary)
	}
}

func TestSendBatchFailureDoesNotAbortRemaining(t *testing.T) {
	calls := 0
	transport := &fakeTransport{sendFn: func(tokens []string) (BatchResult, error) {
		calls++
		if calls == 1 {
			return BatchResult{}, errors.New("gateway timeout")
		}
		return BatchResult{Sent: len(tokens)}, nil
	}}
	d := NewDispatcher(&fakeTokens{tokens: manyTokens(700)}, transport)

	summary, err := d.Send(context.Background(), All(), Message{})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if summary.Failed != 500 {
		t.Errorf("failed = %d, want the whole first batch (500)", summary.Failed)
	}
	if summary.Sent != 200 {
		t.Errorf("sent = %d, want the second batch (200)", summary.Sent)
	}
}

func TestSendClassifiesInvalidTokens(t *testing.T) {
	transport := &fakeTransport{sendFn: func(tokens []string) (BatchResult, error) {
		return BatchResult{
			Sent:    len(tokens) - 2,
			Failed:  2,
			Invalid: []string{tokens[0], tokens[1]},
		}, nil
	}}
	d := NewDispatcher(&fakeTokens{tokens: manyTokens(10)}, transport)

	summary, err := d.Send(context.Background(), All(), Message{})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(summary.InvalidTokens) != 2 {
		t.Fatalf("invalid tokens = %v, want 2 entries", summary.InvalidTokens)
	}
	if summary.InvalidTokens[0] != "tok-0000" {
		t.Errorf("invalid[0] = %s, want tok-0000", summary.InvalidTokens[0])
	}
}

func TestSendEmptyAudienceSkipsTransport(t *testing.T) {
	transport := &fakeTransport{}
	d := NewDispatcher(&fakeTokens{}, transport)

	summary, err := d.Send(context.Background(), Users(), Message{})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(transport.batches) != 0 {
		t.Fatal("transport must not be called with no tokens")
	}
	if !summary.Delivered() {
		t.Error("an empty audience is not a delivery failure")
	}
}

func TestSendResolvesRequestedTarget(t *testing.T) {
	tokens := &fakeTokens{tokens: manyTokens(3)}
	d := NewDispatcher(tokens, &fakeTransport{})

	if _, err := d.Send(context.Background(), Admins(), Message{}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if tokens.got.Kind != TargetAdmins {
		t.Errorf("resolved kind = %s, want %s", tokens.got.Kind, TargetAdmins)
	}

	if _, err := d.Send(context.Background(), Users("u1", "u2"), Message{}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if tokens.got.Kind != TargetUsers || len(tokens.got.UserIDs) != 2 {
		t.Errorf("resolved target = %+v, want users u1,u2", tokens.got)
	}
}

func TestSummaryDelivered(t *testing.T) {
	cases := []struct {
		name    string
		summary Summary
		want    bool
	}{
		{"all sent", Summary{Resolved: 5, Sent: 5}, true},
		{"partial", Summary{Resolved: 5, Sent: 1, Failed: 4}, true},
		{"all failed", Summary{Resolved: 5, Failed: 5}, false},
		{"nothing to do", Summary{}, true},
	}
	for _, tc := range cases {
		if got := tc.summary.Delivered(); got != tc.want {
			t.Errorf("%s: Delivered() = %v, want %v", tc.name, got, tc.want)
		}
	}
}
