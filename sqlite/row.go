package sqlite

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Optional is a column value in create and update data. Columns whose value
// is not Valid are left out of the statement.
type Optional[T any] struct {
	Value T
	Valid bool
}

// Some returns a set Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Valid: true}
}

// Or returns the value when set, otherwise fallback.
func (o Optional[T]) Or(fallback T) T {
	if o.Valid {
		return o.Value
	}
	return fallback
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON marks the value set whenever the key is present. For
// nullable columns T is a pointer and an explicit null stores NULL.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// RowReader converts driver values into Go types and keeps the first error.
type RowReader struct {
	row Row
	err error
}

func NewRowReader(row Row) *RowReader {
	return &RowReader{row: row}
}

// Err returns the first conversion error.
func (r *RowReader) Err() error { return r.err }

func (r *RowReader) fail(column string, v any, want string) {
	if r.err == nil {
		r.err = fmt.Errorf("column %s: cannot read %T as %s", column, v, want)
	}
}

func (r *RowReader) Int(column string) int64 {
	switch v := r.row[column].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		r.fail(column, v, "integer")
		return 0
	}
}

func (r *RowReader) String(column string) string {
	switch v := r.row[column].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		r.fail(column, v, "text")
		return ""
	}
}

func (r *RowReader) Bool(column string) bool {
	return r.Int(column) != 0
}

func (r *RowReader) Date(column string) time.Time {
	switch v := r.row[column].(type) {
	case time.Time:
		return v
	case string:
		t, err := ParseDate(v)
		if err != nil && r.err == nil {
			r.err = fmt.Errorf("column %s: %w", column, err)
		}
		return t
	default:
		r.fail(column, v, "date")
		return time.Time{}
	}
}

func (r *RowReader) Blob(column string) []byte {
	switch v := r.row[column].(type) {
	case []byte:
		return bytes.Clone(v)
	case string:
		return []byte(v)
	default:
		r.fail(column, v, "blob")
		return nil
	}
}

// JSON decodes a text column holding JSON. NULL reads as nil.
func (r *RowReader) JSON(column string) any {
	var raw []byte
	switch v := r.row[column].(type) {
	case nil:
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		r.fail(column, v, "json")
		return nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil && r.err == nil {
		r.err = fmt.Errorf("column %s: %w", column, err)
	}
	return out
}

// IsNull reports whether the column holds NULL.
func (r *RowReader) IsNull(column string) bool {
	return r.row[column] == nil
}

// ReadNullable wraps one of the readers for a nullable column.
func ReadNullable[T any](r *RowReader, column string, read func(string) T) *T {
	if r.IsNull(column) {
		return nil
	}
	v := read(column)
	return &v
}

// EncodeJSON serializes a json column value for storage.
func EncodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// EncodeNullableJSON is EncodeJSON for nullable json columns: nil stores NULL.
func EncodeNullableJSON(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return EncodeJSON(v)
}
