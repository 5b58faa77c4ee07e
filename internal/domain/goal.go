// Package domain contains the core types for goals, sharing, and attendance.
package domain

import (
	"math"
	"time"
)

// DurationCategory is the fixed set of goal durations a user can pick from.
type DurationCategory string

const (
	// DurationWeek is a 7 day goal.
	DurationWeek DurationCategory = "week"
	// DurationMonth is a 30 day goal.
	DurationMonth DurationCategory = "month"
	// DurationThreeMonths is a 90 day goal.
	DurationThreeMonths DurationCategory = "3months"
	// DurationSixMonths is a 180 day goal.
	DurationSixMonths DurationCategory = "6months"
	// DurationTwelveMonths is a 365 day goal.
	DurationTwelveMonths DurationCategory = "12months"
	// DurationUnlimited is an open-ended goal with no end date.
	DurationUnlimited DurationCategory = "unlimited"
)

// ParseDurationCategory validates a raw duration string from a request.
func ParseDurationCategory(s string) (DurationCategory, bool) {
	switch DurationCategory(s) {
	case DurationWeek, DurationMonth, DurationThreeMonths,
		DurationSixMonths, DurationTwelveMonths, DurationUnlimited:
		return DurationCategory(s), true
	default:
		return "", false
	}
}

// Days returns the day count for a bounded category.
// The second return is false for DurationUnlimited (no end date).
func (d DurationCategory) Days() (int, bool) {
	switch d {
	case DurationWeek:
		return 7, true
	case DurationMonth:
		return 30, true
	case DurationThreeMonths:
		return 90, true
	case DurationSixMonths:
		return 180, true
	case DurationTwelveMonths:
		return 365, true
	default:
		return 0, false
	}
}

// GoalStatus is the lifecycle status of a goal, derived purely from
// calendar time relative to the goal's start and end dates.
type GoalStatus string

const (
	// GoalPending means the start date is still in the future.
	GoalPending GoalStatus = "pending"
	// GoalInProgress means the goal has started and not yet ended.
	GoalInProgress GoalStatus = "in_progress"
	// GoalDone means a bounded goal has reached its end date.
	GoalDone GoalStatus = "done"
)

// Stage is a step on the six-point visual progress ladder.
type Stage string

// The stage ladder. Each stage covers a 20-point progress band;
// stage6 is terminal and covers exactly 100.
const (
	StageOne   Stage = "stage1"
	StageTwo   Stage = "stage2"
	StageThree Stage = "stage3"
	StageFour  Stage = "stage4"
	StageFive  Stage = "stage5"
	StageSix   Stage = "stage6"
)

// stageLadder orders the stages so band math stays in one place.
var stageLadder = [6]Stage{StageOne, StageTwo, StageThree, StageFour, StageFive, StageSix}

// stageBandWidth is the progress span of each non-terminal stage band.
const stageBandWidth = 20

// unlimitedAttendanceTarget is the attendance count that represents full
// progress on an unlimited goal.
const unlimitedAttendanceTarget = 30

// StagesFor maps a progress percentage to the (current, next) stage pair.
// Progress below 0 clamps to stage1, 100 and above to the terminal stage.
func StagesFor(progress int) (current, next Stage) {
	if progress >= 100 {
		return StageSix, StageSix
	}
	if progress < 0 {
		progress = 0
	}
	idx := progress / stageBandWidth
	return stageLadder[idx], stageLadder[idx+1]
}

// ProgressToNextStage returns the points remaining until progress leaves
// the current stage's band. Returns 0 at the terminal stage.
func ProgressToNextStage(current Stage, progress int) int {
	if current == StageSix {
		return 0
	}
	upper := 0
	for i, s := range stageLadder {
		if s == current {
			upper = (i + 1) * stageBandWidth
			break
		}
	}
	if progress < 0 {
		progress = 0
	}
	if progress > upper {
		return 0
	}
	return upper - progress
}

// Goal is a user's tracked goal. Status, progress, and stages are derived
// fields: Refresh recomputes them from the calendar and the attendance
// ledger, and must run before every persist and on every read.
type Goal struct {
	Record
	OwnerID          string           `json:"owner_id"`
	Title            string           `json:"title"`
	Description      string           `json:"description,omitempty"`
	Message          string           `json:"message,omitempty"`
	DurationCategory DurationCategory `json:"duration"`
	StartDate        time.Time        `json:"start_date"`

	Status             GoalStatus `json:"status"`
	CurrentStage       Stage      `json:"current_stage"`
	NextStage          Stage      `json:"next_stage"`
	ProgressPercentage int        `json:"progress_percentage"`

	// AttendanceCount always equals the total number of ledger entries in
	// AttendanceDates. Both are updated in the same store transaction.
	AttendanceCount int `json:"attendance_count"`

	// AttendanceDates is the joint attendance ledger: ISO date -> usernames
	// that attended that day. A username appears at most once per day.
	AttendanceDates map[string][]string `json:"attendance_dates,omitempty"`
}

// DateKey formats a time as the ledger's ISO calendar-date key.
// All dates are calendar dates in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// Day truncates a time to its UTC calendar date. Status and progress
// derivations operate on whole days.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// EndDate returns the goal's end date. The second return is false for
// unlimited goals, which are open-ended.
func (g *Goal) EndDate() (time.Time, bool) {
	days, bounded := g.DurationCategory.Days()
	if !bounded {
		return time.Time{}, false
	}
	return g.StartDate.AddDate(0, 0, days), true
}

// DeriveStatus computes the goal's status for the given day. It is
// idempotent and ignores the stored status entirely.
func (g *Goal) DeriveStatus(today time.Time) GoalStatus {
	if today.Before(g.StartDate) {
		return GoalPending
	}
	end, bounded := g.EndDate()
	if !bounded {
		// Unlimited goals never complete via time alone.
		return GoalInProgress
	}
	if !today.Before(end) {
		return GoalDone
	}
	return GoalInProgress
}

// DeriveProgress computes the progress percentage for the given day.
// It reads g.Status, so DeriveStatus must be applied first; Refresh
// enforces that ordering.
func (g *Goal) DeriveProgress(today time.Time) int {
	if today.Before(g.StartDate) {
		return 0
	}
	if g.Status == GoalDone {
		return 100
	}
	days, bounded := g.DurationCategory.Days()
	if !bounded {
		pct := int(math.Round(100 * float64(g.AttendanceCount) / unlimitedAttendanceTarget))
		return clampProgress(pct)
	}
	elapsed := int(today.Sub(g.StartDate).Hours() / 24)
	pct := int(math.Round(100 * float64(elapsed) / float64(days)))
	return clampProgress(pct)
}

// Refresh recomputes status, then progress, then stages for the given day.
// Returns true if any derived field changed, so callers know to persist.
func (g *Goal) Refresh(today time.Time) bool {
	oldStatus := g.Status
	oldProgress := g.ProgressPercentage
	oldCurrent, oldNext := g.CurrentStage, g.NextStage

	// Status first: progress derivation reads it.
	g.Status = g.DeriveStatus(today)
	g.ProgressPercentage = g.DeriveProgress(today)
	g.CurrentStage, g.NextStage = StagesFor(g.ProgressPercentage)

	return g.Status != oldStatus ||
		g.ProgressPercentage != oldProgress ||
		g.CurrentStage != oldCurrent ||
		g.NextStage != oldNext
}

// AttendeesOn returns the usernames recorded for a given day.
func (g *Goal) AttendeesOn(day time.Time) []string {
	return g.AttendanceDates[DateKey(day)]
}

// HasAttended reports whether the username is already in the day's set.
func (g *Goal) HasAttended(day time.Time, username string) bool {
	for _, name := range g.AttendanceDates[DateKey(day)] {
		if name == username {
			return true
		}
	}
	return false
}

// MarkAttended adds the username to the day's attendee set and bumps the
// counter. Returns false without mutation if the user already attended.
func (g *Goal) MarkAttended(day time.Time, username string) bool {
	if g.HasAttended(day, username) {
		return false
	}
	if g.AttendanceDates == nil {
		g.AttendanceDates = make(map[string][]string)
	}
	key := DateKey(day)
	g.AttendanceDates[key] = append(g.AttendanceDates[key], username)
	g.AttendanceCount++
	return true
}

func clampProgress(pct int) int {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
