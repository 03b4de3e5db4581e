package util

import "time"

// FromMillis converts a unix millisecond timestamp to a UTC time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// DayLabel renders ms as a short month and day, e.g. "Jan 2".
func DayLabel(ms int64) string {
	return FromMillis(ms).Format("Jan 2")
}
