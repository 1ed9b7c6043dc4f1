package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// URLPathMap is a custom type for handling JSONB data in PostgreSQL.
// It implements sql.Scanner and driver.Valuer to convert between Go's
// map[string]string and PostgreSQL's JSONB type.
type URLPathMap map[string]string

// Scan implements the sql.Scanner interface.
func (m *URLPathMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return errors.New("unsupported type for URLPathMap")
	}

	if len(data) == 0 {
		*m = URLPathMap{}
		return nil
	}

	return json.Unmarshal(data, m)
}

// Value implements the driver.Valuer interface.
func (m URLPathMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}
