package engine

import (
	"testing"
	"time"
)

func TestMarketOpen(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"midweek", time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC), true},
		{"monday midnight", time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), true},
		{"friday before close", time.Date(2024, 3, 8, 21, 59, 0, 0, time.UTC), true},
		{"friday at close", time.Date(2024, 3, 8, 22, 0, 0, 0, time.UTC), false},
		{"saturday", time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC), false},
		{"sunday before open", time.Date(2024, 3, 10, 21, 59, 0, 0, time.UTC), false},
		{"sunday at open", time.Date(2024, 3, 10, 22, 0, 0, 0, time.UTC), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MarketOpen(tc.at); got != tc.want {
				t.Errorf("MarketOpen(%s) = %v, want %v", tc.at, got, tc.want)
			}
		})
	}
}

func TestMarketOpen_NormalizesToUTC(t *testing.T) {
	// Saturday 02:00 in UTC+4 is Friday 22:00 UTC: closed.
	loc := time.FixedZone("GST", 4*3600)
	at := time.Date(2024, 3, 9, 2, 0, 0, 0, loc)
	if MarketOpen(at) {
		t.Error("expected closed at Friday 22:00 UTC")
	}
}
