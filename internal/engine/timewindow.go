package engine

import (
	"time"

	"paroletrack/internal/model"
)

// parseClock converts "HH:MM" to seconds since midnight.
func parseClock(s string) (int, bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, false
	}
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' ||
		s[3] < '0' || s[3] > '9' || s[4] < '0' || s[4] > '9' {
		return 0, false
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return 0, false
	}
	return (h*60 + m) * 60, true
}

func secondsOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// windowContains reports whether nowSec falls inside [start,end],
// inclusive on both ends. start > end means the window wraps past
// midnight. start == end is a literal single instant, not a 24h window.
func windowContains(startSec, endSec, nowSec int) bool {
	if startSec <= endSec {
		return nowSec >= startSec && nowSec <= endSec
	}
	return nowSec >= startSec || nowSec <= endSec
}

// zoneWindowContains decides whether a zone's daily window covers now.
// A zone with no configured start/end has no time restriction.
func zoneWindowContains(z model.GeofenceZone, now time.Time) bool {
	if z.StartTime == "" || z.EndTime == "" {
		return true
	}
	days := z.Days
	if days == 0 {
		days = model.AllWeekdays
	}
	if !days.Contains(now.Weekday()) {
		return false
	}
	start, ok1 := parseClock(z.StartTime)
	end, ok2 := parseClock(z.EndTime)
	if !ok1 || !ok2 {
		// unparseable bounds degrade to "no restriction" rather than
		// silently suppressing violations
		return true
	}
	return windowContains(start, end, secondsOfDay(now))
}
