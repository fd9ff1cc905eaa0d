package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "foo@bar.com", NormalizeEmail("Foo@Bar.COM"))
	assert.Equal(t, "already@lower.io", NormalizeEmail("already@lower.io"))
}

func TestIsAdult(t *testing.T) {
	now := time.Date(2026, time.October, 15, 14, 30, 0, 0, time.UTC)
	cutoff := time.Date(2008, time.October, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, cutoff, AdultCutoff(now))
	assert.False(t, IsAdult(cutoff, now), "birth date equal to the cutoff is under age")
	assert.True(t, IsAdult(cutoff.AddDate(0, 0, -1), now))
	assert.False(t, IsAdult(cutoff.AddDate(0, 0, 1), now))
}

func TestIsAdult_IgnoresClockPart(t *testing.T) {
	now := time.Date(2026, time.October, 15, 0, 0, 1, 0, time.UTC)
	birth := time.Date(2008, time.October, 14, 23, 59, 59, 0, time.UTC)

	assert.True(t, IsAdult(birth, now))
}

func TestAdultCutoff_LeapDay(t *testing.T) {
	now := time.Date(2028, time.February, 29, 12, 0, 0, 0, time.UTC)

	// 2010 has no Feb 29, the date normalizes forward.
	assert.Equal(t, time.Date(2010, time.March, 1, 0, 0, 0, 0, time.UTC), AdultCutoff(now))
}
