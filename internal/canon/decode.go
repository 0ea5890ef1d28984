package canon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// FromJSON decodes JSON bytes into a Value. Numbers without a fraction or
// exponent become Int; all others become Float. Non-finite numbers cannot
// appear in JSON, so the result always re-encodes cleanly.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, encodingErrorf("", "invalid JSON: %v", err)
	}
	// Reject trailing garbage after the first value.
	if dec.More() {
		return nil, encodingErrorf("", "trailing data after JSON value")
	}
	return FromAny(raw)
}

// FromAny converts a plain Go value (the shape produced by encoding/json or
// yaml decoding into any) to a Value. Types outside the grammar are rejected
// with *EncodingError.
func FromAny(v any) (Value, error) {
	return fromAny(v, "")
}

func fromAny(v any, path string) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, encodingErrorf(path, "integer %d out of int64 range", val)
		}
		return Int(val), nil
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case json.Number:
		s := string(val)
		if !strings.ContainsAny(s, ".eE") {
			n, err := val.Int64()
			if err != nil {
				return nil, encodingErrorf(path, "integer out of int64 range: %s", s)
			}
			return Int(n), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, encodingErrorf(path, "invalid number: %s", s)
		}
		return Float(f), nil
	case []any:
		seq := make(Sequence, len(val))
		for i, elem := range val {
			cv, err := fromAny(elem, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			seq[i] = cv
		}
		return seq, nil
	case map[string]any:
		m := make(Mapping, len(val))
		for k, elem := range val {
			childPath := k
			if path != "" {
				childPath = path + "." + k
			}
			cv, err := fromAny(elem, childPath)
			if err != nil {
				return nil, err
			}
			m[k] = cv
		}
		return m, nil
	default:
		return nil, encodingErrorf(path, "unsupported type %T", v)
	}
}

// ToAny converts a Value back to plain Go types, the inverse of FromAny.
// Useful for handing payloads to encoders that do not know the Value type.
func ToAny(v Value) any {
	switch val := v.(type) {
	case Null:
		return nil
	case Bool:
		return bool(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case String:
		return string(val)
	case Sequence:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToAny(elem)
		}
		return out
	case Mapping:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToAny(elem)
		}
		return out
	default:
		return nil
	}
}
