package util

import "time"

// FromEpochMillis converts epoch milliseconds to a time in loc (UTC when nil).
func FromEpochMillis(ms int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.UnixMilli(ms).In(loc)
}
