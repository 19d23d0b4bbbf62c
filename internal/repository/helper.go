package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// ParseTime parses a date string in "2006-01-02" or RFC3339 format.
func ParseTime(str string) (time.Time, error) {
	returnTime, err := time.Parse("2006-01-02", str)
	if err != nil {
		returnTime, err = time.Parse(time.RFC3339, str)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse date: %w", err)
		}
	}
	return returnTime.UTC(), nil
}

// placeholderRows builds a "(?,?,..),(?,?,..)" VALUES clause for a bulk
// insert of rowCount rows with colCount columns each.
func placeholderRows(rowCount, colCount int) string {
	row := "(" + strings.TrimSuffix(strings.Repeat("?,", colCount), ",") + ")"
	rows := make([]string, rowCount)
	for i := range rows {
		rows[i] = row
	}
	return strings.Join(rows, ",")
}

// nullableID converts a zero ID into a SQL NULL so optional foreign keys
// stay enforceable.
func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
