package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"time"
)

// CloneData returns a deep copy of a document payload. Nested maps and slices
// are copied; scalar values are shared.
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return CloneData(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, item := range val {
			out[i] = CloneData(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

// MergeData deep-merges src into a copy of dst. Nested maps present on both
// sides are merged; every other value in src replaces the one in dst.
func MergeData(dst, src map[string]any) map[string]any {
	out := CloneData(dst)
	if out == nil {
		out = make(map[string]any, len(src))
	}
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]any)
		dstMap, dstIsMap := out[k].(map[string]any)
		if srcIsMap && dstIsMap {
			out[k] = MergeData(dstMap, srcMap)
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

// ApplyUpdate replaces the top-level fields named in update on a copy of data.
func ApplyUpdate(data, update map[string]any) map[string]any {
	out := CloneData(data)
	if out == nil {
		out = make(map[string]any, len(update))
	}
	for k, v := range update {
		out[k] = cloneValue(v)
	}
	return out
}

// Matches reports whether data satisfies every filter.
func Matches(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field]
		if !ok || !ValuesEqual(v, f.Value) {
			return false
		}
	}
	return true
}

// ValuesEqual compares two field values. Numbers compare by value regardless
// of their Go type, and times compare by instant.
func ValuesEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		if math.IsNaN(n) {
			return 0, false
		}
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// NormalizeJSON returns data as it reads back after a JSON round trip:
// numbers become float64, times become RFC 3339 strings and typed slices
// become []any. Stores that persist JSON use it so that values written and
// values queried compare the same way.
func NormalizeJSON(data map[string]any) (map[string]any, error) {
	if data == nil {
		return nil, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return out, nil
}

// NormalizeValue applies the NormalizeJSON conversion to a single value.
func NormalizeValue(v any) (any, error) {
	out, err := NormalizeJSON(map[string]any{"v": v})
	if err != nil {
		return nil, err
	}
	return out["v"], nil
}
