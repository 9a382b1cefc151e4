/*-------------------------------------------------------------------------
 *
 * jsonb.go
 *    JSONB map type for DocFlow
 *
 * Provides a map type that scans from and serializes to Postgres jsonb
 * columns.
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/db/jsonb.go
 *
 *-------------------------------------------------------------------------
 */

package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

/* JSONBMap maps to a jsonb column */
type JSONBMap map[string]interface{}

/* Value implements driver.Valuer */
func (m JSONBMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return nil, fmt.Errorf("jsonb serialization failed: %w", err)
	}
	return data, nil
}

/* Scan implements sql.Scanner */
func (m *JSONBMap) Scan(src interface{}) error {
	if src == nil {
		*m = make(JSONBMap)
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonb scan failed: unsupported source type %T", src)
	}

	out := make(map[string]interface{})
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("jsonb scan failed: %w", err)
	}
	*m = out
	return nil
}

/* FromMap converts a plain map to a JSONBMap */
func FromMap(m map[string]interface{}) JSONBMap {
	if m == nil {
		return make(JSONBMap)
	}
	return JSONBMap(m)
}

/* ToMap converts a JSONBMap to a plain map */
func (m JSONBMap) ToMap() map[string]interface{} {
	if m == nil {
		return make(map[string]interface{})
	}
	return map[string]interface{}(m)
}
