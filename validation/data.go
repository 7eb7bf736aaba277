package validation

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// ValidateData checks every key and value of a document payload. Keys must be
// valid field names at every nesting level, including maps inside slices.
// Strings are bounded, floats must be finite and only JSON-like value types are
// accepted. The error names the offending key by dotted path.
func (v *Validator) ValidateData(data map[string]any) error {
	if data == nil {
		return NewError("data", "is required")
	}
	return v.validateMap("", data, 1)
}

func (v *Validator) validateMap(prefix string, m map[string]any, depth int) error {
	if depth > v.cfg.MaxNestingDepth {
		return NewError(fieldPath(prefix, ""), "nesting exceeds %d levels", v.cfg.MaxNestingDepth)
	}
	for key, value := range m {
		path := fieldPath(prefix, key)
		if _, err := v.fieldName(path, key); err != nil {
			return err
		}
		if err := v.validateValue(path, value, depth); err != nil {
			return err
		}
	}
	return nil
}

func (v *Validator) validateValue(path string, value any, depth int) error {
	switch val := value.(type) {
	case nil, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		time.Time:
		return nil
	case string:
		if len(val) > v.cfg.MaxStringValueLength {
			return NewError(path, "value must be at most %d bytes", v.cfg.MaxStringValueLength)
		}
		return nil
	case float32:
		return finite(path, float64(val))
	case float64:
		return finite(path, val)
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return NewError(path, "value %q is not a number", SanitizeForDisplay(val.String()))
		}
		return finite(path, f)
	case []string:
		for i, s := range val {
			if err := v.validateValue(indexPath(path, i), s, depth); err != nil {
				return err
			}
		}
		return nil
	case []any:
		if depth+1 > v.cfg.MaxNestingDepth {
			return NewError(path, "nesting exceeds %d levels", v.cfg.MaxNestingDepth)
		}
		for i, item := range val {
			if err := v.validateValue(indexPath(path, i), item, depth+1); err != nil {
				return err
			}
		}
		return nil
	case []map[string]any:
		if depth+1 > v.cfg.MaxNestingDepth {
			return NewError(path, "nesting exceeds %d levels", v.cfg.MaxNestingDepth)
		}
		for i, item := range val {
			if err := v.validateMap(indexPath(path, i), item, depth+2); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		return v.validateMap(path, val, depth+1)
	default:
		return NewError(path, "unsupported value type %T", value)
	}
}

// ValidateQueryValue checks a value used in an equality filter. Only scalar
// values are accepted and strings are bounded like identifiers.
func (v *Validator) ValidateQueryValue(field string, value any) error {
	switch val := value.(type) {
	case nil, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return nil
	case string:
		if len(val) > v.cfg.MaxIdentifierLength {
			return NewError(field, "query value must be at most %d bytes", v.cfg.MaxIdentifierLength)
		}
		return nil
	case float32:
		return finite(field, float64(val))
	case float64:
		return finite(field, val)
	default:
		return NewError(field, "unsupported query value type %T", value)
	}
}

func finite(path string, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return NewError(path, "value must be a finite number")
	}
	return nil
}

func fieldPath(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	default:
		return prefix + "." + key
	}
}

func indexPath(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

// ValidateData validates a document payload with the default validator
func ValidateData(data map[string]any) error {
	return defaultValidator.ValidateData(data)
}

// ValidateQueryValue validates a filter value with the default validator
func ValidateQueryValue(field string, value any) error {
	return defaultValidator.ValidateQueryValue(field, value)
}
