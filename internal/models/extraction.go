package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ExtractionResult is the simplified shape returned to callers and persisted
// under the results/ prefix. One result corresponds to exactly one input
// document snapshot. Lines, Forms and Tables are always present in the JSON,
// possibly empty, never null.
type ExtractionResult struct {
	DocumentInfo  DocumentInfo `json:"document_info"`
	ExtractedText string       `json:"extracted_text"`
	Lines         []string     `json:"lines"`
	Forms         FormFields   `json:"forms"`
	Tables        []Table      `json:"tables"`
	Statistics    Statistics   `json:"statistics"`
}

// NewExtractionResult returns a result with all collection fields initialized,
// so an empty document still serializes with its three top-level fields.
func NewExtractionResult() *ExtractionResult {
	return &ExtractionResult{
		Lines:  []string{},
		Forms:  FormFields{},
		Tables: []Table{},
	}
}

// DocumentInfo describes the analyzed document snapshot.
type DocumentInfo struct {
	Source      string    `json:"source"`
	FileType    string    `json:"file_type"`
	ProcessedAt time.Time `json:"processed_at"`
	PageCount   int       `json:"page_count"`
}

// Statistics summarizes what the analysis found.
type Statistics struct {
	Words       int `json:"words"`
	Lines       int `json:"lines"`
	FormsFound  int `json:"forms_found"`
	TablesFound int `json:"tables_found"`
}

// Table is one detected table: rows of cell strings.
type Table [][]string

// FormField is a single detected label/value pair.
type FormField struct {
	Label string
	Value string
}

// FormFields is the ordered label -> value mapping detected on the document.
// It serializes as a JSON object whose keys keep the order the provider
// returned them in, which a plain map cannot guarantee.
type FormFields []FormField

// MarshalJSON renders the fields as a JSON object in slice order.
func (ff FormFields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range ff {
		if i > 0 {
			buf.WriteByte(',')
		}
		label, err := json.Marshal(field.Label)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(field.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(label)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object back into ordered fields, preserving the
// key order of the document.
func (ff *FormFields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("forms: expected a JSON object, got %v", tok)
	}

	fields := FormFields{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		label, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("forms: expected a string key, got %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("forms: value for %q: %w", label, err)
		}
		fields = append(fields, FormField{Label: label, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*ff = fields
	return nil
}
