package index

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/gcbaptista/go-facet-search/config"
	"github.com/gcbaptista/go-facet-search/internal/errors"
	"github.com/gcbaptista/go-facet-search/model"
)

// Mapping holds the field types of an index. It is shared by every shard.
// Fields without an explicit type are mapped from the first value indexed for them.
type Mapping struct {
	mu     sync.RWMutex
	fields map[string]config.FieldType
}

// NewMapping creates a mapping seeded with explicit field types.
func NewMapping(seed map[string]config.FieldType) *Mapping {
	fields := make(map[string]config.FieldType, len(seed))
	for k, v := range seed {
		fields[k] = v
	}
	return &Mapping{fields: fields}
}

// Type returns the mapped type of a field.
func (m *Mapping) Type(field string) (config.FieldType, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.fields[field]
	return t, ok
}

// Snapshot returns a copy of the current field types.
func (m *Mapping) Snapshot() map[string]config.FieldType {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]config.FieldType, len(m.fields))
	for k, v := range m.fields {
		out[k] = v
	}
	return out
}

// TextFields returns the names of all text fields, sorted.
func (m *Mapping) TextFields() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for field, t := range m.fields {
		if t == config.FieldTypeText {
			out = append(out, field)
		}
	}
	sort.Strings(out)
	return out
}

// Apply normalizes the values of a document and checks them against the mapping.
// Either every field fits and unmapped fields are added, or nothing changes and
// a ValidationError or MappingError is returned.
func (m *Mapping) Apply(fields model.Fields) (model.Fields, error) {
	normalized := make(model.Fields, len(fields))
	types := make(map[string]config.FieldType, len(fields))
	for field, value := range fields {
		if field == "" {
			return nil, errors.NewValidationError("fields", "field name cannot be empty")
		}
		v, t, err := normalizeValue(field, value)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		normalized[field] = v
		types[field] = t
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for field, t := range types {
		if mapped, ok := m.fields[field]; ok && mapped != t {
			return nil, errors.NewMappingError(field, string(mapped), string(t))
		}
	}
	for field, t := range types {
		if _, ok := m.fields[field]; !ok {
			m.fields[field] = t
		}
	}
	return normalized, nil
}

// normalizeValue converts a decoded value into string, []string or float64.
// A nil value yields (nil, "", nil) and the field is treated as absent.
func normalizeValue(field string, value interface{}) (interface{}, config.FieldType, error) {
	switch v := value.(type) {
	case nil:
		return nil, "", nil
	case string:
		return v, config.FieldTypeText, nil
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out, config.FieldTypeText, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, "", errors.NewValidationError(field, fmt.Sprintf("list values must be strings, got %T", item))
			}
			out = append(out, s)
		}
		return out, config.FieldTypeText, nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, "", errors.NewValidationError(field, fmt.Sprintf("invalid number %q", v.String()))
		}
		return checkFinite(field, f)
	case float64:
		return checkFinite(field, v)
	case float32:
		return checkFinite(field, float64(v))
	case int:
		return float64(v), config.FieldTypeNumber, nil
	case int32:
		return float64(v), config.FieldTypeNumber, nil
	case int64:
		return float64(v), config.FieldTypeNumber, nil
	case uint32:
		return float64(v), config.FieldTypeNumber, nil
	case uint64:
		return float64(v), config.FieldTypeNumber, nil
	default:
		return nil, "", errors.NewValidationError(field, fmt.Sprintf("unsupported value type %T", value))
	}
}

func checkFinite(field string, f float64) (interface{}, config.FieldType, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, "", errors.NewValidationError(field, "number must be finite")
	}
	return f, config.FieldTypeNumber, nil
}
