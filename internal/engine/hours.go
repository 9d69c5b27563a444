package engine

import "time"

// MarketOpen reports whether the forex market trades at t (UTC): the week
// runs from Sunday 22:00 to Friday 22:00, Saturdays are closed throughout.
func MarketOpen(t time.Time) bool {
	t = t.UTC()
	switch t.Weekday() {
	case time.Saturday:
		return false
	case time.Friday:
		return t.Hour() < 22
	case time.Sunday:
		return t.Hour() >= 22
	default:
		return true
	}
}
