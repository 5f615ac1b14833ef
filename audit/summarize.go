package audit

import (
	"encoding/json"
	"sort"

	"gorm.io/datatypes"
)

// MaxPayloadBytes bounds stored before/after snapshots. Larger payloads are
// replaced by a structural summary that preserves forensic shape information.
const MaxPayloadBytes = 10_000

// Summarize serializes v for storage. Payloads within MaxPayloadBytes are
// stored verbatim; oversized objects keep their key list, oversized arrays
// their length, oversized scalars their type, each together with the
// serialized size.
func Summarize(v any) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(raw) <= MaxPayloadBytes {
		return datatypes.JSON(raw), nil
	}

	summary := map[string]any{"_size": len(raw)}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		// Unreachable for output of json.Marshal; keep the size regardless.
		summary["_type"] = "unknown"
	} else {
		switch d := decoded.(type) {
		case map[string]any:
			keys := make([]string, 0, len(d))
			for k := range d {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			summary["_type"] = "object"
			summary["_keys"] = keys
		case []any:
			summary["_type"] = "array"
			summary["_length"] = len(d)
		case string:
			summary["_type"] = "string"
		case float64:
			summary["_type"] = "number"
		case bool:
			summary["_type"] = "boolean"
		default:
			summary["_type"] = "null"
		}
	}

	out, err := json.Marshal(summary)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(out), nil
}
