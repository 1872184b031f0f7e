package transport

import "time"

// timeAfter is a thin indirection over time.After so watchdogLoop's
// cadence can be swapped in tests without a real 333ms wait.
var timeAfter = func(d time.Duration) <-chan time.Time {
	return time.After(d)
}
