package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"
	"time"
)

// HTTPTransport speaks the legacy multicast push API: one POST with up to 500
// registration ids, a per-token results array, and string error codes for
// dead tokens.
type HTTPTransport struct {
	url    string
	apiKey string
	http   *http.Client
}

func NewHTTPTransport(url, apiKey string) *HTTPTransport {
	return &HTTPTransport{
		url:    url,
		apiKey: apiKey,
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

type multicastRequest struct {
	RegistrationIDs []string          `json:"registration_ids"`
	Notification    Message           `json:"notification"`
	Data            map[string]string `json:"data,omitempty"`
}

type multicastResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		MessageID string `json:"message_id,omitempty"`
		Error     string `json:"error,omitempty"`
	} `json:"results"`
}

// invalidTokenErrors are the transport codes meaning "this token will never
// deliver again".
var invalidTokenErrors = map[string]bool{
	"NotRegistered":       true,
	"InvalidRegistration": true,
	"MismatchSenderId":    true,
}

func (t *HTTPTransport) Send(ctx context.Context, tokens []string, msg Message) (BatchResult, error) {
	payload, err := json.Marshal(multicastRequest{
		RegistrationIDs: tokens,
		Notification:    msg,
		Data:            msg.Data,
	})
	if err != nil {
		return BatchResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(payload))
	if err != nil {
		return BatchResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+t.apiKey)

	resp, err := t.http.Do(req)
	if err != nil {
		return BatchResult{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return BatchResult{}, fmt.Errorf("push http error (%d): %s", resp.StatusCode, string(body))
	}

	var out multicastResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return BatchResult{}, fmt.Errorf("push response decode: %w", err)
	}

	res := BatchResult{}
	for i, r := range out.Results {
		if r.Error == "" {
			res.Sent++
			continue
		}
		res.Failed++
		if invalidTokenErrors[r.Error] && i < len(tokens) {
			res.Invalid = append(res.Invalid, tokens[i])
		}
	}
	return res, nil
}

// noopTransport stands in when no push gateway is configured (dev setups);
// it skips delivery without failing content creation.
type noopTransport struct{}

func (noopTransport) Send(ctx context.Context, tokens []string, msg Message) (BatchResult, error) {
	log.Printf("notify: push gateway not configured - skipping %d tokens", len(tokens))
	return BatchResult{}, nil
}

var (
	transportOnce sync.Once
	transport     Transport
)

// DefaultTransport builds the process-wide transport from PUSH_GATEWAY_URL /
// PUSH_API_KEY once.
func DefaultTransport() Transport {
	transportOnce.Do(func() {
		url := os.Getenv("PUSH_GATEWAY_URL")
		if url == "" {
			transport = noopTransport{}
			return
		}
		transport = NewHTTPTransport(url, os.Getenv("PUSH_API_KEY"))
	})
	return transport
}
