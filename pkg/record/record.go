package record

import (
	"encoding/json"
	"fmt"
)

// Record is one loosely-typed record in a data source's result set.
type Record map[string]Value

// Key returns the canonical string of the field used to match this record
// against its counterpart in another snapshot. A missing key field yields
// the empty string.
func (r Record) Key(field string) string {
	v, ok := r[field]
	if !ok {
		return ""
	}
	return v.Canonical()
}

// Fields returns the set of field names present in the record.
func (r Record) Fields() []string {
	names := make([]string, 0, len(r))
	for k := range r {
		names = append(names, k)
	}
	return names
}

// EncodeSet serializes a record set to its stored JSON form.
func EncodeSet(records []Record) ([]byte, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode record set: %w", err)
	}
	return data, nil
}

// DecodeSet deserializes a stored record set.
func DecodeSet(data []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode record set: %w", err)
	}
	return records, nil
}
