package user

import "time"

// MockNow replaces the service clock until the returned func is called.
func MockNow(now func() time.Time) (reset func()) {
	nowFunc = now
	return func() { nowFunc = time.Now }
}
