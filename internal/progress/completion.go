package progress

import (
	"time"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

// Summary is what a finished run leaves behind.
type Summary struct {
	ExercisesCompleted   int `json:"exercisesCompleted"`
	TotalDurationSeconds int `json:"totalDuration"`
}

// Completion marks one calendar date on which a user finished a workout.
// There is at most one per user and date.
type Completion struct {
	UserID    int
	Date      time.Time
	Summary   Summary
	CreatedAt time.Time
}

// MonthProgress holds the completed dates of one calendar month.
type MonthProgress struct {
	Month       time.Time
	Dates       []time.Time
	DaysInMonth int
}

func (p MonthProgress) Count() int {
	return len(p.Dates)
}

// Percentage is the share of the month's days with a completed workout.
func (p MonthProgress) Percentage() float64 {
	if p.DaysInMonth == 0 {
		return 0
	}
	return float64(len(p.Dates)) * 100 / float64(p.DaysInMonth)
}

func (p MonthProgress) Contains(date time.Time) bool {
	key := date.Format(DateLayout)
	for _, d := range p.Dates {
		if d.Format(DateLayout) == key {
			return true
		}
	}
	return false
}

type MonthProgressResponse struct {
	Month       string   `json:"month"`
	Dates       []string `json:"dates"`
	Count       int      `json:"count"`
	DaysInMonth int      `json:"daysInMonth"`
	Percentage  float64  `json:"percentage"`
}

func NewMonthProgressResponse(p MonthProgress) MonthProgressResponse {
	dates := make([]string, 0, len(p.Dates))
	for _, d := range p.Dates {
		dates = append(dates, d.Format(DateLayout))
	}
	return MonthProgressResponse{
		Month:       p.Month.Format(MonthLayout),
		Dates:       dates,
		Count:       p.Count(),
		DaysInMonth: p.DaysInMonth,
		Percentage:  p.Percentage(),
	}
}

// MonthStart returns the first day of t's month, in t's location.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

func daysIn(monthStart time.Time) int {
	return monthStart.AddDate(0, 1, -1).Day()
}
