package model

import (
	"encoding/json"
	"fmt"
)

// ToFields converts a struct (or any JSON-marshalable value) into a document field map.
// Numbers come back as float64 and arrays as []interface{}; the index mapping
// normalizes string arrays to []string.
func ToFields(value interface{}) (Fields, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %T to fields: %w", value, err)
	}
	var fields Fields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode %T into a field map: %w", value, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("value of type %T does not encode to an object", value)
	}
	return fields, nil
}

// FromFields populates target (a pointer) from a document field map.
func FromFields(fields Fields, target interface{}) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("failed to decode fields into %T: %w", target, err)
	}
	return nil
}
