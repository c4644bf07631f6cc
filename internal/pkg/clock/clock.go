// Package clock holds the venue calendar and the check-in cutoff policy.
package clock

import (
	"time"
	_ "time/tzdata"
)

type Clock interface {
	Now() time.Time
}

type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed always reports the same instant. Tests advance it by assigning T.
type Fixed struct {
	T time.Time
}

func (f *Fixed) Now() time.Time { return f.T }

// Policy decides whether a check-in may happen before its cutoff.
type Policy interface {
	Name() string
	Allows(now, cutoff time.Time) bool
}

type strict struct{}

func (strict) Name() string                      { return "strict" }
func (strict) Allows(now, cutoff time.Time) bool { return !now.Before(cutoff) }

type permissive struct{}

func (permissive) Name() string               { return "permissive" }
func (permissive) Allows(_, _ time.Time) bool { return true }

var (
	Strict     Policy = strict{}
	Permissive Policy = permissive{}
)

const (
	DefaultTimezone    = "Asia/Ho_Chi_Minh"
	DefaultCheckInHour = 14
)

// Venue is the single timezone every calendar date in the engine is interpreted in.
type Venue struct {
	Location    *time.Location
	CheckInHour int
}

func NewVenue(tz string, checkInHour int) (Venue, error) {
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Venue{}, err
	}
	return Venue{Location: loc, CheckInHour: checkInHour}, nil
}

// DateOnly truncates a stored calendar date to its UTC midnight. Drivers may hand stored
// dates back in time.Local, so the date is read in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LocalDate is the calendar date t shows in its own location, as a UTC midnight.
func LocalDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today is the venue's current calendar date as a UTC midnight.
func (v Venue) Today(now time.Time) time.Time {
	return LocalDate(now.In(v.Location))
}

// CheckInCutoff is the instant check-in opens for the given stored calendar date.
func (v Venue) CheckInCutoff(date time.Time) time.Time {
	y, m, d := date.UTC().Date()
	return time.Date(y, m, d, v.CheckInHour, 0, 0, 0, v.Location)
}

// HourOfDay returns the venue-local hour for now.
func (v Venue) HourOfDay(now time.Time) int {
	return now.In(v.Location).Hour()
}
