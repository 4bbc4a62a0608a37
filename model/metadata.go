package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/docchat/docchat/helper"
)

// Metadata is free-form chunk/source metadata, stored as JSONB in PostgreSQL
// and carried verbatim into AnswerResult.Sources.
type Metadata map[string]interface{}

// GetString returns the string value under key, or "" when absent or not a string.
func (m Metadata) GetString(key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// Value implements driver.Valuer for database storage.
func (m Metadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for database retrieval.
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}

	return json.Unmarshal(b, m)
}
