package memory

import "time"

const minInterval = 10 * time.Millisecond

func newTimer(d time.Duration) *time.Timer {
	if d < minInterval {
		d = minInterval
	}
	return time.NewTimer(d)
}
