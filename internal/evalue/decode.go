// Package evalue decodes Playwright's "wrapped value" JSON encoding used for
// evaluate() results. Raw JSON alone cannot disambiguate {"v":"null"} (a JS
// null) from a user object that happens to contain a "v" key, so the shapes
// below must be checked in the fixed order the driver emits them.
package evalue

import (
	"encoding/json"
	"fmt"
	"sort"
)

// HandleError is returned when a wrapped value is a handle reference, which
// is not JSON-serializable.
type HandleError struct{}

func (HandleError) Error() string { return "evaluate result references a handle, not serializable" }

// kv is one entry of a wrapped object's "o" array.
type kv struct {
	K string          `json:"k"`
	V json.RawMessage `json:"v"`
}

type wrapped struct {
	S  *string         `json:"s"`
	N  *float64        `json:"n"`
	B  *bool           `json:"b"`
	V  *string         `json:"v"`
	A  []json.RawMessage `json:"a"`
	O  []kv            `json:"o"`
	D  *string         `json:"d"`
	BI *string         `json:"bi"`
	H  json.RawMessage `json:"h"`
}

// Decode unwraps a single Playwright wrapped-value JSON blob into a plain Go
// value: string, float64, bool, nil, []any, or map[string]any. Unknown
// shapes (no recognized tag present) pass through as the raw decoded JSON
// value.
func Decode(raw json.RawMessage) (any, error) {
	var w wrapped
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("evalue: unmarshal wrapped value: %w", err)
	}

	switch {
	case w.S != nil:
		return *w.S, nil
	case w.N != nil:
		return *w.N, nil
	case w.B != nil:
		return *w.B, nil
	case w.V != nil:
		return decodeSentinel(*w.V)
	case w.A != nil:
		return decodeArray(w.A)
	case w.O != nil:
		return decodeObject(w.O)
	case w.D != nil:
		return *w.D, nil
	case w.BI != nil:
		return *w.BI, nil
	case w.H != nil:
		return nil, HandleError{}
	default:
		var passthrough any
		if err := json.Unmarshal(raw, &passthrough); err != nil {
			return nil, fmt.Errorf("evalue: unmarshal passthrough value: %w", err)
		}
		return passthrough, nil
	}
}

func decodeSentinel(tag string) (any, error) {
	switch tag {
	case "null", "undefined":
		return nil, nil
	case "NaN":
		return nil, nil
	case "Infinity", "-Infinity":
		return nil, nil
	case "-0":
		return float64(0), nil
	default:
		return nil, fmt.Errorf("evalue: unrecognized sentinel %q", tag)
	}
}

func decodeArray(items []json.RawMessage) ([]any, error) {
	out := make([]any, 0, len(items))
	for _, item := range items {
		v, err := Decode(item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeObject(entries []kv) (map[string]any, error) {
	out := make(map[string]any, len(entries))
	for _, e := range entries {
		v, err := Decode(e.V)
		if err != nil {
			return nil, err
		}
		out[e.K] = v
	}
	return out, nil
}

// Encode produces the wrapped-value JSON form for a Go value, for the subset
// of values the format can represent (strings, finite float64 numbers,
// bools, nil, homogeneous []any, map[string]any). It exists primarily so the
// decoder can be round-trip tested: decode(encode(x)) == x.
func Encode(v any) (json.RawMessage, error) {
	switch val := v.(type) {
	case nil:
		return json.Marshal(map[string]string{"v": "null"})
	case string:
		return json.Marshal(map[string]string{"s": val})
	case bool:
		return json.Marshal(map[string]bool{"b": val})
	case float64:
		return json.Marshal(map[string]float64{"n": val})
	case int:
		return json.Marshal(map[string]float64{"n": float64(val)})
	case []any:
		items := make([]json.RawMessage, 0, len(val))
		for _, item := range val {
			enc, err := Encode(item)
			if err != nil {
				return nil, err
			}
			items = append(items, enc)
		}
		return json.Marshal(map[string][]json.RawMessage{"a": items})
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make([]kv, 0, len(val))
		for _, k := range keys {
			enc, err := Encode(val[k])
			if err != nil {
				return nil, err
			}
			entries = append(entries, kv{K: k, V: enc})
		}
		return json.Marshal(map[string][]kv{"o": entries})
	default:
		return nil, fmt.Errorf("evalue: cannot encode value of type %T", v)
	}
}
