package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// jsonPathSegment is one step of a parsed path: a field name, an index
// into an array, or the wildcard "[*]".
type jsonPathSegment struct {
	field    string
	index    int
	wildcard bool
	isIndex  bool
}

// parseJSONPath supports the subset named in the spec: "$.a.b",
// "$.a[0].b", and "$.a[*]". The leading "$" is required.
func parseJSONPath(path string) ([]jsonPathSegment, error) {
	if !strings.HasPrefix(path, "$") {
		return nil, fmt.Errorf("jsonpath must start with $: %q", path)
	}
	rest := path[1:]

	var segs []jsonPathSegment
	for len(rest) > 0 {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			end := strings.IndexAny(rest, ".[")
			if end < 0 {
				end = len(rest)
			}
			field := rest[:end]
			if field == "" {
				return nil, fmt.Errorf("empty field in jsonpath %q", path)
			}
			segs = append(segs, jsonPathSegment{field: field})
			rest = rest[end:]
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return nil, fmt.Errorf("unterminated [ in jsonpath %q", path)
			}
			inner := rest[1:end]
			if inner == "*" {
				segs = append(segs, jsonPathSegment{wildcard: true})
			} else {
				n, err := strconv.Atoi(inner)
				if err != nil {
					return nil, fmt.Errorf("invalid index %q in jsonpath %q", inner, path)
				}
				segs = append(segs, jsonPathSegment{index: n, isIndex: true})
			}
			rest = rest[end+1:]
		default:
			return nil, fmt.Errorf("unexpected character %q in jsonpath %q", rest[0], path)
		}
	}
	return segs, nil
}

// evalJSONPath applies segs to a decoded JSON value (map/slice/scalar
// from encoding/json), returning the first matching value and whether
// it matched at all.
func evalJSONPath(body []byte, path string) (interface{}, bool) {
	segs, err := parseJSONPath(path)
	if err != nil {
		return nil, false
	}

	var root interface{}
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, false
	}

	return evalSegments(root, segs)
}

func evalSegments(v interface{}, segs []jsonPathSegment) (interface{}, bool) {
	if len(segs) == 0 {
		return v, true
	}

	seg := segs[0]
	switch {
	case seg.wildcard:
		arr, ok := v.([]interface{})
		if !ok || len(arr) == 0 {
			return nil, false
		}
		return evalSegments(arr[0], segs[1:])
	case seg.isIndex:
		arr, ok := v.([]interface{})
		if !ok || seg.index < 0 || seg.index >= len(arr) {
			return nil, false
		}
		return evalSegments(arr[seg.index], segs[1:])
	default:
		m, ok := v.(map[string]interface{})
		if !ok {
			return nil, false
		}
		next, ok := m[seg.field]
		if !ok {
			return nil, false
		}
		return evalSegments(next, segs[1:])
	}
}

// jsonValueToString renders a resolved JSONPath value as the plain
// string bound into the VU context.
func jsonValueToString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
