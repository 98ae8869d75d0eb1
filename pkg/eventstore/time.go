package eventstore

import "time"

// TimeFunc returns the current time and can be overridden in tests for
// deterministic event timestamps.
var TimeFunc = time.Now

// Now returns the current UTC time via TimeFunc.
func Now() time.Time {
	return TimeFunc().UTC()
}
