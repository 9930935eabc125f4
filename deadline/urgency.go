package deadline

import (
	"time"

	"cloud.google.com/go/civil"

	"github.com/liamcoop/labourcompliance/internal/dates"
)

// urgentWithin is the number of remaining days at or below which a deadline
// is urgent.
const urgentWithin = 7

// Level summarizes an Urgency.
type Level string

const (
	LevelPassed Level = "passed"
	LevelUrgent Level = "urgent"
	LevelNormal Level = "normal"
)

// Urgency describes how close a deadline is. It depends on the current time
// and is therefore derived on read, never stored with a Result.
type Urgency struct {
	DaysRemaining int   `json:"daysRemaining"`
	IsPassed      bool  `json:"isPassed"`
	IsUrgent      bool  `json:"isUrgent"`
	Level         Level `json:"level"`
}

// Classify compares a deadline with the UTC calendar day of now.
func Classify(deadline civil.Date, now time.Time) Urgency {
	remaining := deadline.DaysSince(dates.Of(now))
	u := Urgency{DaysRemaining: remaining, Level: LevelNormal}
	switch {
	case remaining < 0:
		u.IsPassed = true
		u.Level = LevelPassed
	case remaining <= urgentWithin:
		u.IsUrgent = true
		u.Level = LevelUrgent
	}
	return u
}
