package resolver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/oracle"
)

// ExtractArray pulls a JSON array of objects out of a model reply. Prose and
// markdown fences around the array are ignored. A truncated array yields the
// elements completed before the cut. A lone object counts as one element.
// A blank reply or "[]" yields no elements and no error.
func ExtractArray(raw string) ([]json.RawMessage, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, nil
	}

	for offset := 0; offset < len(text); {
		idx := strings.IndexByte(text[offset:], '[')
		if idx < 0 {
			break
		}
		start := offset + idx
		if elems, ok := decodeArrayPrefix(text[start:]); ok {
			return elems, nil
		}
		offset = start + 1
	}

	if obj, err := ExtractObject(text); err == nil {
		return []json.RawMessage{obj}, nil
	}
	return nil, fmt.Errorf("%w: no JSON array in reply", oracle.ErrMalformedResponse)
}

// decodeArrayPrefix reads elements until the array closes or the input breaks.
// ok is false unless at least the empty array or one object element was read.
func decodeArrayPrefix(s string) (elems []json.RawMessage, ok bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('[') {
		return nil, false
	}

	for dec.More() {
		var elem json.RawMessage
		if err := dec.Decode(&elem); err != nil {
			break
		}
		if !isObject(elem) {
			return nil, false
		}
		elems = append(elems, elem)
	}

	if len(elems) > 0 {
		return elems, true
	}
	tok, err := dec.Token()
	return nil, err == nil && tok == json.Delim(']')
}

// ExtractObject returns the first complete JSON object in raw.
func ExtractObject(raw string) (json.RawMessage, error) {
	for offset := 0; offset < len(raw); {
		idx := strings.IndexByte(raw[offset:], '{')
		if idx < 0 {
			break
		}
		start := offset + idx

		var obj json.RawMessage
		if err := json.NewDecoder(strings.NewReader(raw[start:])).Decode(&obj); err == nil {
			return obj, nil
		}
		offset = start + 1
	}
	return nil, fmt.Errorf("%w: no JSON object in reply", oracle.ErrMalformedResponse)
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
