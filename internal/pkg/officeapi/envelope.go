package officeapi

import (
	"bytes"
	"encoding/json"
)

var envelopeKeys = []string{"items", "results", "data"}

// UnwrapList returns the items of a bare JSON array or of an
// {items}, {results} or {data} envelope. ok is false for any other shape.
func UnwrapList(raw []byte) ([]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, false
	}

	var list []json.RawMessage
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, false
		}
		return list, true
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	for _, key := range envelopeKeys {
		inner, ok := obj[key]
		if !ok {
			continue
		}
		inner = bytes.TrimSpace(inner)
		if len(inner) == 0 || inner[0] != '[' {
			continue
		}
		if err := json.Unmarshal(inner, &list); err != nil {
			return nil, false
		}
		return list, true
	}
	return nil, false
}

// ListOrSingle is UnwrapList that also treats a bare object as a one-item list.
func ListOrSingle(raw []byte) []json.RawMessage {
	if list, ok := UnwrapList(raw); ok {
		return list
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		return []json.RawMessage{json.RawMessage(raw)}
	}
	return nil
}

// DecodeEach decodes every item into T.
func DecodeEach[T any](items []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Scalar renders a JSON string, number or bool as text. ok is false for
// null, objects and arrays.
func Scalar(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case '{', '[':
		return "", false
	}
	return string(raw), true
}
