package entity

import (
	"strings"
	"time"
)

// MinimumAge is the youngest age accepted for any write that sets a birth date.
const MinimumAge = 18

// User is the aggregate root for user domain
// Passwords are stored as bcrypt hashes in PasswordHash
//
// Users are never physically deleted; deactivation flips Active.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	BirthDate    time.Time
	Phone        string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// NormalizeEmail returns the lower-cased form used as the uniqueness key.
func NormalizeEmail(email string) string {
	return strings.ToLower(email)
}

// DateOnly drops the clock part of t, keeping its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AdultCutoff is the first birth date that is too recent at the moment now.
func AdultCutoff(now time.Time) time.Time {
	return DateOnly(now.UTC()).AddDate(-MinimumAge, 0, 0)
}

// IsAdult reports whether birthDate is strictly before AdultCutoff(now).
func IsAdult(birthDate, now time.Time) bool {
	return DateOnly(birthDate).Before(AdultCutoff(now))
}
