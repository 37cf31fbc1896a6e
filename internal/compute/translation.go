package compute

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultKey is the fallback entry of a translation table
const DefaultKey = "default"

// TranslationTable maps raw values to normalized ones. Keys are matched
// case-insensitively. A table is immutable once built and shared by pointer.
type TranslationTable struct {
	entries map[string]string
}

// NewTranslationTable builds a table from raw entries
func NewTranslationTable(entries map[string]string) *TranslationTable {
	tt := &TranslationTable{entries: make(map[string]string, len(entries))}
	for k, v := range entries {
		tt.entries[strings.ToLower(k)] = v
	}

	return tt
}

// Lookup returns the translation of key, falling back to the default entry
func (tt *TranslationTable) Lookup(key string) (string, bool) {
	if tt == nil {
		return "", false
	}
	if v, ok := tt.entries[strings.ToLower(key)]; ok {
		return v, true
	}
	v, ok := tt.entries[DefaultKey]

	return v, ok
}

// Exact returns the translation of key without the default fallback
func (tt *TranslationTable) Exact(key string) (string, bool) {
	if tt == nil {
		return "", false
	}
	v, ok := tt.entries[strings.ToLower(key)]

	return v, ok
}

// Len returns the number of entries, default included
func (tt *TranslationTable) Len() int {
	if tt == nil {
		return 0
	}

	return len(tt.entries)
}

// UnmarshalYAML decodes a plain mapping
func (tt *TranslationTable) UnmarshalYAML(node *yaml.Node) error {
	var entries map[string]string
	if err := node.Decode(&entries); err != nil {
		return err
	}
	*tt = *NewTranslationTable(entries)

	return nil
}
