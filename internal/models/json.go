package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON is a schemaless jsonb column, used for raw webhook payloads. It is a
// plain map type on purpose: encoding/json handles it natively, so no custom
// Marshaler/Unmarshaler is needed on top of the database conversion.
type JSON map[string]interface{}

// Value implements driver.Valuer.
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(map[string]interface{}(j))
}

// Scan implements sql.Scanner.
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into JSON", value)
	}
	return json.Unmarshal(bytes, j)
}
