// Package config provides configuration structures for the search engine.
// It defines per-index settings (shards, field mappings, default search fields)
// and the node configuration loaded from YAML.
package config

import (
	"fmt"
	"strings"
)

// FieldType is the mapped type of a document field.
type FieldType string

const (
	// FieldTypeText fields hold strings or lists of strings. They are analyzed for
	// match queries and keep their raw values for term queries and terms facets.
	FieldTypeText FieldType = "text"
	// FieldTypeNumber fields hold float64 values and support range queries and range facets.
	FieldTypeNumber FieldType = "number"
)

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	return t == FieldTypeText || t == FieldTypeNumber
}

const (
	// DefaultNumberOfShards is used when an index is created without a shard count.
	DefaultNumberOfShards = 1
	// MaxNumberOfShards bounds the shard count of a single index.
	MaxNumberOfShards = 64
)

// IndexSettings contains all configuration options for a search index.
//
// Mappings is a seed: fields not listed are mapped dynamically from the first
// value indexed for them. A later value of the other type is rejected.
type IndexSettings struct {
	Name                string               `json:"name"`                  // Unique name for the index
	NumberOfShards      int                  `json:"number_of_shards"`      // Documents are routed to shards by a hash of their ID
	Mappings            map[string]FieldType `json:"mappings"`              // Explicit field types (e.g., {"brand": "text", "price": "number"})
	DefaultSearchFields []string             `json:"default_search_fields"` // Fields searched by query_string clauses without a field prefix
}

// Validate returns the list of problems found in the settings, empty when they are usable.
func (settings *IndexSettings) Validate() []string {
	var conflicts []string

	if strings.TrimSpace(settings.Name) == "" {
		conflicts = append(conflicts, "Index name cannot be empty or whitespace-only")
	}
	if settings.NumberOfShards < 0 || settings.NumberOfShards > MaxNumberOfShards {
		conflicts = append(conflicts, fmt.Sprintf("number_of_shards must be between 1 and %d, got %d", MaxNumberOfShards, settings.NumberOfShards))
	}

	for field, fieldType := range settings.Mappings {
		if strings.TrimSpace(field) == "" {
			conflicts = append(conflicts, "Field name cannot be empty or whitespace-only")
			continue
		}
		if !fieldType.Valid() {
			conflicts = append(conflicts, "Invalid type '"+string(fieldType)+"' for field '"+field+"' in mappings (must be 'text' or 'number')")
		}
	}

	conflicts = append(conflicts, checkDuplicates("default_search_fields", settings.DefaultSearchFields)...)
	for _, field := range settings.DefaultSearchFields {
		if strings.TrimSpace(field) == "" {
			conflicts = append(conflicts, "Field name cannot be empty or whitespace-only")
			continue
		}
		if settings.Mappings[field] == FieldTypeNumber {
			conflicts = append(conflicts, "Field '"+field+"' in default_search_fields is mapped as number")
		}
	}

	return conflicts
}

// checkDuplicates checks for duplicate values in a slice and returns error messages
func checkDuplicates(fieldName string, fields []string) []string {
	var errors []string
	seen := make(map[string]bool)

	for _, field := range fields {
		if seen[field] {
			errors = append(errors, "Duplicate field '"+field+"' found in "+fieldName)
		}
		seen[field] = true
	}

	return errors
}

// ApplyDefaults applies default values to the index settings
func (settings *IndexSettings) ApplyDefaults() {
	if settings.NumberOfShards == 0 {
		settings.NumberOfShards = DefaultNumberOfShards
	}
	if settings.Mappings == nil {
		settings.Mappings = map[string]FieldType{}
	}
	if settings.DefaultSearchFields == nil {
		settings.DefaultSearchFields = []string{}
	}
}

// Clone returns a deep copy of the settings.
func (settings IndexSettings) Clone() IndexSettings {
	out := settings
	if settings.Mappings != nil {
		out.Mappings = make(map[string]FieldType, len(settings.Mappings))
		for k, v := range settings.Mappings {
			out.Mappings[k] = v
		}
	}
	if settings.DefaultSearchFields != nil {
		out.DefaultSearchFields = append([]string(nil), settings.DefaultSearchFields...)
	}
	return out
}
