package busmanager

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"
)

// ActivityWindow is the "cron-like pattern with days and hour-ranges" of
// spec §4.4 bullet 4: DeviceInactivity is only raised while the current time
// falls inside one of these day/hour spans (e.g. a meter that only radios in
// during business hours shouldn't alarm overnight).
type ActivityWindow struct {
	days  map[time.Weekday]bool // nil/empty means "every day"
	start int                   // inclusive hour, 0-23
	end   int                   // exclusive hour, 0-24; end < start wraps past midnight, end == start matches no hour
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// ParseActivityWindow parses "days@start-end", e.g. "mon,tue,wed@08-18" or
// plain "08-18" (every day). An empty pattern means "always active".
func ParseActivityWindow(pattern string) (*ActivityWindow, error) {
	if pattern == "" {
		return &ActivityWindow{start: 0, end: 24}, nil
	}

	var daysPart, hoursPart string
	if at := strings.IndexByte(pattern, '@'); at >= 0 {
		daysPart, hoursPart = pattern[:at], pattern[at+1:]
	} else {
		hoursPart = pattern
	}

	var w = &ActivityWindow{}
	if daysPart != "" {
		w.days = make(map[time.Weekday]bool)
		for _, d := range strings.Split(daysPart, ",") {
			var wd, ok = weekdayNames[strings.ToLower(strings.TrimSpace(d))]
			if !ok {
				return nil, fmt.Errorf("busmanager: unknown weekday %q in activity window %q", d, pattern)
			}
			w.days[wd] = true
		}
	}

	var dash = strings.IndexByte(hoursPart, '-')
	if dash < 0 {
		return nil, fmt.Errorf("busmanager: activity window %q missing hour range", pattern)
	}
	var start, serr = strconv.Atoi(strings.TrimSpace(hoursPart[:dash]))
	var end, eerr = strconv.Atoi(strings.TrimSpace(hoursPart[dash+1:]))
	if serr != nil || eerr != nil || start < 0 || start > 23 || end < 0 || end > 24 {
		return nil, fmt.Errorf("busmanager: invalid hour range in activity window %q", pattern)
	}
	w.start, w.end = start, end
	return w, nil
}

// Contains reports whether t falls inside the window.
func (w *ActivityWindow) Contains(t time.Time) bool {
	if w == nil {
		return true
	}
	if len(w.days) > 0 && !w.days[t.Weekday()] {
		return false
	}
	var hour = t.Hour()
	if w.start <= w.end {
		return hour >= w.start && hour < w.end
	}
	// Wraps past midnight, e.g. 22-06.
	return hour >= w.start || hour < w.end
}

// Render formats t using pattern for log lines (e.g. reporting the window's
// next boundary), via the same strftime library doismellburning/samoyed uses for its
// own timestamp_format config knob.
func Render(pattern string, t time.Time) (string, error) {
	return strftime.Format(pattern, t)
}
