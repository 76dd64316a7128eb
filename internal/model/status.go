package model

import (
	"fmt"
	"strings"
	"time"
)

// Status is the read-time lifecycle state of a document, derived from its
// expiry date. It is recomputed on every read and never persisted, so it
// cannot drift from the date it is derived from.
type Status string

const (
	StatusActive       Status = "active"
	StatusExpiringSoon Status = "expiring_soon"
	StatusExpired      Status = "expired"
	// StatusMissing means the document carries no expiry date at all.
	StatusMissing Status = "missing"
)

// ParseStatus converts a wire value into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusExpiringSoon, StatusExpired, StatusMissing:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// DeriveStatus computes the status of a document with the given expiry date
// as of now. warnWindow is how far ahead of expiry a document is reported as
// expiring_soon.
func DeriveStatus(expiry *Date, now time.Time, warnWindow time.Duration) Status {
	// A zero Date comes from records serialized with an empty expiry_date
	// string; it means "no expiry", same as nil.
	if expiry == nil || expiry.Time().IsZero() {
		return StatusMissing
	}
	today := now.Truncate(24 * time.Hour)
	exp := expiry.Time()
	if exp.Before(today) {
		return StatusExpired
	}
	if !exp.After(today.Add(warnWindow)) {
		return StatusExpiringSoon
	}
	return StatusActive
}

// Date is a calendar day serialized as "2006-01-02". Expiry dates have no
// meaningful time-of-day component.
type Date struct {
	t time.Time
}

// NewDate builds a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses "2006-01-02".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

// Time returns the underlying midnight-UTC timestamp.
func (d Date) Time() time.Time { return d.t }

func (d Date) String() string { return d.t.Format("2006-01-02") }

// MarshalJSON encodes the date as a quoted "2006-01-02" string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts "2006-01-02"; empty and null mean the zero Date.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
