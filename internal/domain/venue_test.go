package domain

import (
	"testing"
	"time"
)

func TestBusinessHoursContains(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		hours BusinessHours
		at    time.Time
		want  bool
	}{
		{
			name:  "no window means always open",
			hours: BusinessHours{},
			at:    time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC),
			want:  true,
		},
		{
			name:  "inside daytime window",
			hours: BusinessHours{Open: "09:00", Close: "22:00"},
			at:    time.Date(2026, 8, 29, 12, 30, 0, 0, time.UTC),
			want:  true,
		},
		{
			name:  "before opening",
			hours: BusinessHours{Open: "09:00", Close: "22:00"},
			at:    time.Date(2026, 8, 29, 8, 59, 0, 0, time.UTC),
			want:  false,
		},
		{
			name:  "at close is closed",
			hours: BusinessHours{Open: "09:00", Close: "22:00"},
			at:    time.Date(2026, 8, 29, 22, 0, 0, 0, time.UTC),
			want:  false,
		},
		{
			name:  "overnight window late evening",
			hours: BusinessHours{Open: "18:00", Close: "02:00"},
			at:    time.Date(2026, 8, 29, 23, 0, 0, 0, time.UTC),
			want:  true,
		},
		{
			name:  "overnight window after midnight",
			hours: BusinessHours{Open: "18:00", Close: "02:00"},
			at:    time.Date(2026, 8, 29, 1, 30, 0, 0, time.UTC),
			want:  true,
		},
		{
			name:  "overnight window midday closed",
			hours: BusinessHours{Open: "18:00", Close: "02:00"},
			at:    time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
			want:  false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if got := test.hours.Contains(test.at); got != test.want {
				t.Errorf("Contains(%v): got %v, want %v", test.at, got, test.want)
			}
		})
	}
}

func TestVenueAcceptsOrders(t *testing.T) {
	t.Parallel()
	noon := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	active := &Venue{Status: VenueActive, Hours: BusinessHours{Open: "09:00", Close: "22:00"}}
	if !active.AcceptsOrders(noon) {
		t.Error("active venue within hours should accept orders")
	}

	paused := &Venue{Status: VenuePaused}
	if paused.AcceptsOrders(noon) {
		t.Error("paused venue should not accept orders")
	}

	closed := &Venue{Status: VenueActive, Hours: BusinessHours{Open: "18:00", Close: "22:00"}}
	if closed.AcceptsOrders(noon) {
		t.Error("venue outside hours should not accept orders")
	}
}

func TestVenueLocalDate(t *testing.T) {
	t.Parallel()
	// 01:00 UTC on the 29th is still the 28th in New York.
	v := &Venue{Hours: BusinessHours{Timezone: "America/New_York"}}
	at := time.Date(2026, 8, 29, 1, 0, 0, 0, time.UTC)
	if got := v.LocalDate(at); got.Day() != 28 {
		t.Errorf("local date: got day %d, want 28", got.Day())
	}
}
