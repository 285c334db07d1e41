package domain

import "testing"

func TestDetectLanguage(t *testing.T) {
	t.Parallel()
	tests := []struct {
		text string
		want string
	}{
		{"I want a burger, no onions", "en"},
		{"Хочу бургер без лука", "ru"},
		{"123 👍", "de"}, // no letters, keep venue fallback
	}
	for _, test := range tests {
		if got := DetectLanguage(test.text, "de"); got != test.want {
			t.Errorf("DetectLanguage(%q): got %q, want %q", test.text, got, test.want)
		}
	}
}
