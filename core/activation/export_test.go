package activation

import "time"

// SetNow replaces the clock until restore is called.
func SetNow(now func() time.Time) (restore func()) {
	prev := nowFunc
	nowFunc = now
	return func() { nowFunc = prev }
}
