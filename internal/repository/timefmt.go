package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// storageTimeLayout sorts lexically, so ordering and range filters work on the text column.
const storageTimeLayout = "2006-01-02 15:04:05"

var ErrNotFound = errors.New("not found")

func formatTime(t time.Time) string {
	return t.UTC().Format(storageTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(storageTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}
