package sqlutil

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sqlc-dev/pqtype"
)

// Helper functions for converting between Go types and nullable column types

// FromSqlString converts sql.NullString to Go string with default
func FromSqlString(val sql.NullString, defaultVal string) string {
	if !val.Valid {
		return defaultVal
	}
	return val.String
}

// ToSqlTime converts a Go time pointer to sql.NullTime
func ToSqlTime(val *time.Time) sql.NullTime {
	if val == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *val, Valid: true}
}

// FromSqlTime converts sql.NullTime to Go time pointer
func FromSqlTime(val sql.NullTime) *time.Time {
	if !val.Valid {
		return nil
	}
	t := val.Time
	return &t
}

// ToNullRawMessage encodes v for a nullable jsonb column. A nil map or
// pointer becomes SQL NULL.
func ToNullRawMessage(v any) (pqtype.NullRawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return pqtype.NullRawMessage{}, fmt.Errorf("failed to encode jsonb column: %w", err)
	}
	if string(data) == "null" {
		return pqtype.NullRawMessage{Valid: false}, nil
	}
	return pqtype.NullRawMessage{RawMessage: data, Valid: true}, nil
}

// FromNullRawMessage decodes a nullable jsonb column into dst. NULL leaves
// dst untouched.
func FromNullRawMessage(raw pqtype.NullRawMessage, dst any) error {
	if !raw.Valid || len(raw.RawMessage) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw.RawMessage, dst); err != nil {
		return fmt.Errorf("failed to decode jsonb column: %w", err)
	}
	return nil
}
