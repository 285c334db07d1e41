package domain

import "unicode"

// DetectLanguage picks a coarse language tag from the script of an
// utterance. Runs once per session, at greeting.
func DetectLanguage(text, fallback string) string {
	var cyrillic, latin int
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		case unicode.IsLetter(r) && r < 128:
			latin++
		}
	}
	if cyrillic > latin {
		return "ru"
	}
	if latin > 0 {
		return "en"
	}
	return fallback
}
