package types

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// ObligationList and HistoryList are stored as JSONB columns.
type (
	ObligationList []Obligation
	HistoryList    []HistoryEntry
)

var (
	_ sql.Scanner   = (*ObligationList)(nil)
	_ driver.Valuer = ObligationList(nil)
	_ sql.Scanner   = (*HistoryList)(nil)
	_ driver.Valuer = HistoryList(nil)
)

// scanJSONB decodes a JSONB column delivered as []byte or string.
func scanJSONB(dest any, value any) error {
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, dest)
}

// Scan implements sql.Scanner. NULL scans to an empty list.
func (l *ObligationList) Scan(value any) error {
	if value == nil {
		*l = ObligationList{}
		return nil
	}
	return scanJSONB(l, value)
}

// Value implements driver.Valuer. A nil list is written as [] so the column
// never holds NULL.
func (l ObligationList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Obligation(l))
}

// Scan implements sql.Scanner. NULL scans to an empty list.
func (l *HistoryList) Scan(value any) error {
	if value == nil {
		*l = HistoryList{}
		return nil
	}
	return scanJSONB(l, value)
}

// Value implements driver.Valuer.
func (l HistoryList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]HistoryEntry(l))
}

// MarshalJSON renders a nil list as [] for API clients.
func (l ObligationList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Obligation(l))
}

// MarshalJSON renders a nil list as [] for API clients.
func (l HistoryList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]HistoryEntry(l))
}
