package dbadapter

import "database/sql"

// scanRows drains rows into a slice of Row maps keyed by column name. Shared
// by every backend's Conn.FetchAll/FetchOne implementation.
func scanRows(rows *sql.Rows) ([]Row, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = normalizeScanned(values[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// normalizeScanned converts driver-returned []byte (common for TEXT/BLOB
// columns under both drivers) into string so callers never have to type-
// switch on []byte.
func normalizeScanned(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
