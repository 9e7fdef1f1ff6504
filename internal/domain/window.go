package domain

import (
	"fmt"
	"time"
)

// DateLayout is the YYYY-MM-DD format the USGS API accepts for starttime/endtime.
const DateLayout = "2006-01-02"

// DefaultLookbackDays is the width of the default query window.
const DefaultLookbackDays = 7

// DateWindow is an inclusive date range. It is comparable and used as a cache key.
type DateWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// String renders the window as "start..end".
func (w DateWindow) String() string {
	return w.Start + ".." + w.End
}

// DefaultDateWindow returns [today-lookbackDays, today] in UTC using the package clock.
func DefaultDateWindow(lookbackDays int) DateWindow {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	today := clock.Now().UTC()
	return DateWindow{
		Start: today.AddDate(0, 0, -lookbackDays).Format(DateLayout),
		End:   today.Format(DateLayout),
	}
}

// ParseDateWindow validates explicit start/end dates. An empty value falls back to the
// corresponding bound of DefaultDateWindow(lookbackDays).
func ParseDateWindow(start, end string, lookbackDays int) (DateWindow, error) {
	def := DefaultDateWindow(lookbackDays)
	w := DateWindow{Start: start, End: end}
	if w.Start == "" {
		w.Start = def.Start
	}
	if w.End == "" {
		w.End = def.End
	}

	s, err := time.Parse(DateLayout, w.Start)
	if err != nil {
		return DateWindow{}, fmt.Errorf("invalid start date %q: %w", w.Start, err)
	}
	e, err := time.Parse(DateLayout, w.End)
	if err != nil {
		return DateWindow{}, fmt.Errorf("invalid end date %q: %w", w.End, err)
	}
	if e.Before(s) {
		return DateWindow{}, fmt.Errorf("end date %s is before start date %s", w.End, w.Start)
	}
	return w, nil
}
