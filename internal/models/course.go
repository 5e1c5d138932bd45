package models

import (
	"strings"
	"time"
)

// Weekday is a teaching day. Only monday to friday exist in the timetable.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
)

// Weekdays lists the timetable columns in order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}

// ParseWeekday accepts a weekday name in any case.
func ParseWeekday(s string) (Weekday, bool) {
	w := Weekday(strings.ToLower(strings.TrimSpace(s)))
	return w, w.Valid()
}

func (w Weekday) Valid() bool {
	return w.Index() >= 0
}

// Index is the zero-based column of w, or -1.
func (w Weekday) Index() int {
	for i, d := range Weekdays {
		if d == w {
			return i
		}
	}
	return -1
}

// WeekdayOf maps a date to its timetable day. Saturday and sunday map to monday.
func WeekdayOf(t time.Time) Weekday {
	switch t.Weekday() {
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	default:
		return Monday
	}
}

// PeriodCount is the number of periods in a teaching day.
const PeriodCount = 6

// PeriodRange is the start and end time of a period, as "15:04".
type PeriodRange struct {
	Period int    `json:"period"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

var periodRanges = [PeriodCount]PeriodRange{
	{1, "8:50", "10:20"},
	{2, "10:40", "12:10"},
	{3, "13:00", "14:30"},
	{4, "14:50", "16:20"},
	{5, "16:40", "18:10"},
	{6, "18:30", "20:00"},
}

// PeriodTime returns the time range of period p (1-based).
func PeriodTime(p int) (PeriodRange, bool) {
	if p < 1 || p > PeriodCount {
		return PeriodRange{}, false
	}
	return periodRanges[p-1], true
}

// PeriodTimes returns all period ranges in order.
func PeriodTimes() []PeriodRange {
	out := make([]PeriodRange, PeriodCount)
	copy(out, periodRanges[:])
	return out
}

// CourseColors is the palette a course color must come from.
var CourseColors = []string{"blue", "pink", "mint", "purple", "yellow", "teal", "orange", "green"}

// DefaultCourseColor is used when no color is given.
const DefaultCourseColor = "blue"

// Course is a class in a user's timetable.
type Course struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_courses_user_slot" json:"user_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Professor string    `gorm:"size:100" json:"professor"`
	Room      string    `gorm:"size:100" json:"room"`
	Weekday   Weekday   `gorm:"size:10;not null;index:idx_courses_user_slot" json:"weekday"`
	Period    int       `gorm:"not null;index:idx_courses_user_slot" json:"period"`
	Color     string    `gorm:"size:20;not null;default:'blue'" json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Timetable is the weekday by period grid. Empty slots are nil.
type Timetable struct {
	Days    []Weekday              `json:"days"`
	Periods []PeriodRange          `json:"periods"`
	Slots   [][PeriodCount]*Course `json:"slots"`
}

// NewTimetable places each course in its slot. When two courses share a slot
// the one created first (lowest ID) wins, whatever the input order.
func NewTimetable(courses []Course) Timetable {
	t := Timetable{
		Days:    Weekdays,
		Periods: PeriodTimes(),
		Slots:   make([][PeriodCount]*Course, len(Weekdays)),
	}
	for i := range courses {
		c := &courses[i]
		day := c.Weekday.Index()
		if day < 0 || c.Period < 1 || c.Period > PeriodCount {
			continue
		}
		if cur := t.Slots[day][c.Period-1]; cur == nil || c.ID < cur.ID {
			t.Slots[day][c.Period-1] = c
		}
	}
	return t
}

// At returns the course in a slot, or nil.
func (t Timetable) At(day Weekday, period int) *Course {
	i := day.Index()
	if i < 0 || period < 1 || period > PeriodCount {
		return nil
	}
	return t.Slots[i][period-1]
}
