// Package timeutil unifies the textual timestamp shapes accepted across the
// API into naive local instants and provides the service clock.
package timeutil

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// ErrInvalidFormat is returned when a value matches none of the accepted
// datetime shapes.
var ErrInvalidFormat = errors.New("invalid datetime format")

// Canonical layouts for storage and client rendering.
const (
	LayoutStorage = "2006-01-02 15:04:05"
	LayoutISO     = "2006-01-02T15:04:05"
)

// Compact layouts tried first, in order. Seconds may be omitted and the
// date/time separator may be a space or a literal T.
var compactLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

// Parse converts a textual timestamp into a naive instant. It tries, in
// order: the compact date-time layouts, general ISO-8601 (any UTC designator
// or offset is stripped, keeping the wall-clock fields), and RFC-2822 style
// textual dates. The result always carries the UTC location as a stand-in
// for "no zone".
func Parse(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, ErrInvalidFormat
	}

	for _, layout := range compactLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t, nil
		}
	}

	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return stripZone(t), nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05.999999999", trimmed); err == nil {
		return stripZone(t), nil
	}

	// RFC-2822 dates ("Fri, 16 Jan 2026 09:00:00 GMT"). net/mail handles
	// both named and numeric zones.
	if t, err := mail.ParseDate(trimmed); err == nil {
		return stripZone(t), nil
	}

	return time.Time{}, ErrInvalidFormat
}

// NormalizeInput parses a user-supplied timestamp and renders it in the
// canonical storage layout. ok is false when the input is unparseable so
// callers can distinguish bad input from programming errors.
func NormalizeInput(value string) (normalized string, ok bool) {
	t, err := Parse(value)
	if err != nil {
		return "", false
	}
	return t.Format(LayoutStorage), true
}

// FormatISO renders an instant for client consumption.
func FormatISO(t time.Time) string {
	return t.Format(LayoutISO)
}

// FormatISOPtr renders an optional instant, returning nil for nil input.
func FormatISOPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatISO(*t)
	return &s
}

func stripZone(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
