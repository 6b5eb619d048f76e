package schedule

import (
	"time"
)

// NextOccurrence computes the UTC instant of the next delivery for a
// birthday falling on (birthMonth, birthDay), observed at the given
// local time-of-day in loc.
//
// The candidate is built on the wall-clock calendar of loc for the year
// of ref as seen in loc; if that candidate is not strictly after ref it
// rolls to the following year. A candidate exactly equal to ref rolls
// over too, so an occurrence never fires at the instant it is created.
//
// Feb 29 birthdays are observed on Feb 28 in non-leap target years.
func NextOccurrence(birthMonth time.Month, birthDay int, loc *time.Location, hour, minute int, ref time.Time) time.Time {
	localNow := ref.In(loc)

	candidate := localCandidate(localNow.Year(), birthMonth, birthDay, hour, minute, loc)
	if !candidate.After(localNow) {
		candidate = localCandidate(localNow.Year()+1, birthMonth, birthDay, hour, minute, loc)
	}

	return candidate.UTC()
}

// localCandidate builds the observed send time for one specific year.
// The day is clamped before construction because time.Date would
// normalize Feb 29 into Mar 1 on non-leap years.
func localCandidate(year int, birthMonth time.Month, birthDay, hour, minute int, loc *time.Location) time.Time {
	day := ObservedDay(year, birthMonth, birthDay)
	return time.Date(year, birthMonth, day, hour, minute, 0, 0, loc)
}

// ObservedDay returns the calendar day on which a birthday is observed
// in the given year: the birth day itself, except Feb 29 which maps to
// Feb 28 when year is not a leap year.
func ObservedDay(year int, birthMonth time.Month, birthDay int) int {
	if birthMonth == time.February && birthDay == 29 && !isLeapYear(year) {
		return 28
	}
	return birthDay
}

// IsObservedDay reports whether at falls on the observed calendar day
// for the birthday in loc's wall clock. The recovery sweep uses this to
// decide whether a stuck occurrence is still inside its delivery window.
func IsObservedDay(birthMonth time.Month, birthDay int, loc *time.Location, at time.Time) bool {
	local := at.In(loc)
	return local.Month() == birthMonth &&
		local.Day() == ObservedDay(local.Year(), birthMonth, birthDay)
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
