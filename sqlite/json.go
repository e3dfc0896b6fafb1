package sqlite

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Filters arrive over the wire in the same shape the generated Go types use,
// plus the shorthands: a bare value means equals, a bare null means IS NULL,
// and "equals": null / "not": null are the NULL operands.

func isJSONNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

func isJSONObject(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func decodeNullable[T any](data []byte) (*Nullable[T], error) {
	if isJSONNull(data) {
		return Null[T](), nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return Val(v), nil
}

func decodeOperand[T any](data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// decodeScalar consumes the keys it knows from raw.
func decodeScalar[T any](w *WhereScalar[T], raw map[string]json.RawMessage) error {
	var err error
	for key, msg := range raw {
		switch key {
		case "equals":
			w.Equals, err = decodeNullable[T](msg)
		case "not":
			w.Not, err = decodeNullable[T](msg)
		case "gt":
			w.GT, err = decodeOperand[T](msg)
		case "lt":
			w.LT, err = decodeOperand[T](msg)
		case "gte":
			w.GTE, err = decodeOperand[T](msg)
		case "lte":
			w.LTE, err = decodeOperand[T](msg)
		case "in":
			err = json.Unmarshal(msg, &w.In)
		case "notIn":
			err = json.Unmarshal(msg, &w.NotIn)
		default:
			continue
		}
		if err != nil {
			return fmt.Errorf("decoding %q: %w", key, err)
		}
		delete(raw, key)
	}
	return nil
}

// UnmarshalWhere decodes a model filter into dst, a method-less copy of the
// filter type, then passes every key whose value is a literal null to
// setNull. encoding/json leaves those fields nil, which reads as no filter.
func UnmarshalWhere(data []byte, dst any, setNull func(key string)) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return err
	}
	if !isJSONObject(data) {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, msg := range raw {
		if isJSONNull(msg) {
			setNull(key)
		}
	}
	return nil
}

func unknownKeys(raw map[string]json.RawMessage) error {
	for key := range raw {
		return fmt.Errorf("unknown filter key %q", key)
	}
	return nil
}

func (w *WhereScalar[T]) UnmarshalJSON(data []byte) error {
	*w = WhereScalar[T]{}
	if !isJSONObject(data) {
		eq, err := decodeNullable[T](data)
		if err != nil {
			return err
		}
		w.Equals = eq
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := decodeScalar(w, raw); err != nil {
		return err
	}
	return unknownKeys(raw)
}

func (w *WhereString) UnmarshalJSON(data []byte) error {
	*w = WhereString{}
	if !isJSONObject(data) {
		eq, err := decodeNullable[string](data)
		if err != nil {
			return err
		}
		w.Equals = eq
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if msg, ok := raw["like"]; ok {
		like, err := decodeOperand[string](msg)
		if err != nil {
			return fmt.Errorf("decoding \"like\": %w", err)
		}
		w.Like = like
		delete(raw, "like")
	}
	if err := decodeScalar(&w.WhereScalar, raw); err != nil {
		return err
	}
	return unknownKeys(raw)
}

func (w *WhereBoolean) UnmarshalJSON(data []byte) error {
	*w = WhereBoolean{}
	if !isJSONObject(data) {
		eq, err := decodeNullable[bool](data)
		if err != nil {
			return err
		}
		w.Equals = eq
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var err error
	for key, msg := range raw {
		switch key {
		case "equals":
			w.Equals, err = decodeNullable[bool](msg)
		case "not":
			w.Not, err = decodeNullable[bool](msg)
		default:
			return fmt.Errorf("unknown filter key %q", key)
		}
		if err != nil {
			return fmt.Errorf("decoding %q: %w", key, err)
		}
	}
	return nil
}

func (n Nullable[T]) MarshalJSON() ([]byte, error) {
	if n.Null {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	decoded, err := decodeNullable[T](data)
	if err != nil {
		return err
	}
	*n = *decoded
	return nil
}
