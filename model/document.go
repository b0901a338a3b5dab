package model

// Fields is the field-value record of a document.
// Values are strings, float64 numbers or []string; other JSON shapes are
// normalized or rejected by the index mapping.
// Example: doc.Fields["brand"], doc.Fields["price"]
type Fields map[string]interface{}

// Document is a stored, searchable record identified by ID.
// Documents are immutable once indexed; an update is a full replace of Fields.
type Document struct {
	ID     string `json:"_id"`
	Fields Fields `json:"_source"`
}

// NewDocument builds a Document from an ID and its fields.
func NewDocument(id string, fields Fields) Document {
	if fields == nil {
		fields = Fields{}
	}
	return Document{ID: id, Fields: fields}
}

// Clone returns a shallow copy of the fields; []string values are copied too.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		if list, ok := v.([]string); ok {
			cp := make([]string, len(list))
			copy(cp, list)
			out[k] = cp
			continue
		}
		out[k] = v
	}
	return out
}
