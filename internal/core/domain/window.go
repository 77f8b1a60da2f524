package domain

import (
	"fmt"
	"time"
)

// DateLayout is the canonical calendar-date format used in config and storage.
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string into a UTC day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: %w", ErrInvalidInput, s, err)
	}
	return Day(t), nil
}

// WindowKind records how a window was derived.
type WindowKind string

// Window kinds.
const (
	WindowIncremental WindowKind = "incremental"
	WindowBootstrap   WindowKind = "bootstrap"
	WindowExplicit    WindowKind = "explicit"
)

// Window is a half-open range of calendar days [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
	Kind  WindowKind
}

// NewWindow builds a window from two dates, truncated to days.
// It fails with ErrConfig unless start is before end.
func NewWindow(start, end time.Time, kind WindowKind) (Window, error) {
	w := Window{Start: Day(start), End: Day(end), Kind: kind}
	if !w.Start.Before(w.End) {
		return Window{}, ConfigErrorf("window start %s must be before end %s",
			FormatDate(w.Start), FormatDate(w.End))
	}
	return w, nil
}

// IsEmpty reports whether the window contains no days.
func (w Window) IsEmpty() bool {
	return !w.Start.Before(w.End)
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(w.Start) && d.Before(w.End)
}

// Days returns the number of calendar days covered.
func (w Window) Days() int {
	if w.IsEmpty() {
		return 0
	}
	return int(w.End.Sub(w.Start).Hours() / 24)
}

// Intersect returns the overlap of w and other, keeping w's kind.
// The result may be empty.
func (w Window) Intersect(other Window) Window {
	out := Window{Start: w.Start, End: w.End, Kind: w.Kind}
	if other.Start.After(out.Start) {
		out.Start = other.Start
	}
	if other.End.Before(out.End) {
		out.End = other.End
	}
	return out
}

// String renders the window as "[start, end)".
func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", FormatDate(w.Start), FormatDate(w.End))
}

// IncrementalWindow returns [lastDate+1, today+1).
func IncrementalWindow(lastDate, today time.Time) Window {
	return Window{
		Start: Day(lastDate).AddDate(0, 0, 1),
		End:   Day(today).AddDate(0, 0, 1),
		Kind:  WindowIncremental,
	}
}

// BootstrapWindow returns [today-lookbackDays, today+1).
func BootstrapWindow(today time.Time, lookbackDays int) Window {
	d := Day(today)
	return Window{
		Start: d.AddDate(0, 0, -lookbackDays),
		End:   d.AddDate(0, 0, 1),
		Kind:  WindowBootstrap,
	}
}

// PreviousTradingDay returns the last weekday strictly before t.
// Monday maps to Friday, Sunday to Friday.
func PreviousTradingDay(t time.Time) time.Time {
	d := Day(t).AddDate(0, 0, -1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
