package audit

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestSummarizeUnderThresholdStoredVerbatim(t *testing.T) {
	in := map[string]any{"title": "Spring meeting", "vote_closed": false}
	out, err := Summarize(in)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	want, _ := json.Marshal(in)
	if string(out) != string(want) {
		t.Fatalf("stored %s, want verbatim %s", out, want)
	}
}

func TestSummarizeOversizedObject(t *testing.T) {
	in := map[string]any{
		"title": strings.Repeat("x", MaxPayloadBytes),
		"body":  "short",
	}
	raw, _ := json.Marshal(in)

	out, err := Summarize(in)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	var summary map[string]any
	if err := json.Unmarshal(out, &summary); err != nil {
		t.Fatalf("summary is not valid JSON: %v", err)
	}
	if summary["_type"] != "object" {
		t.Errorf("_type = %v, want object", summary["_type"])
	}
	if int(summary["_size"].(float64)) != len(raw) {
		t.Errorf("_size = %v, want %d", summary["_size"], len(raw))
	}
	wantKeys := []any{"body", "title"}
	if !reflect.DeepEqual(summary["_keys"], wantKeys) {
		t.Errorf("_keys = %v, want %v", summary["_keys"], wantKeys)
	}
}

func TestSummarizeOversizedArray(t *testing.T) {
	in := make([]string, 600)
	for i := range in {
		in[i] = strings.Repeat("y", 32)
	}
	raw, _ := json.Marshal(in)

	out, err := Summarize(in)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	var summary map[string]any
	if err := json.Unmarshal(out, &summary); err != nil {
		t.Fatalf("summary is not valid JSON: %v", err)
	}
	if summary["_type"] != "array" {
		t.Errorf("_type = %v, want array", summary["_type"])
	}
	if int(summary["_length"].(float64)) != len(in) {
		t.Errorf("_length = %v, want %d", summary["_length"], len(in))
	}
	if int(summary["_size"].(float64)) != len(raw) {
		t.Errorf("_size = %v, want %d", summary["_size"], len(raw))
	}
}

func TestSummarizeOversizedScalar(t *testing.T) {
	in := strings.Repeat("z", MaxPayloadBytes+1)

	out, err := Summarize(in)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	var summary map[string]any
	if err := json.Unmarshal(out, &summary); err != nil {
		t.Fatalf("summary is not valid JSON: %v", err)
	}
	if summary["_type"] != "string" {
		t.Errorf("_type = %v, want string", summary["_type"])
	}
	if _, ok := summary["_keys"]; ok {
		t.Error("scalar summary must not carry _keys")
	}
}

func TestSummarizeNil(t *testing.T) {
	out, err := Summarize(nil)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if out != nil {
		t.Fatalf("nil payload stored as %s, want nothing", out)
	}
}
