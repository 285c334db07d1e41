package config

import "time"

const (
	// Credit charges
	InitialFreeCredits = 25.0
	OrderCharge        = 1.0
	RejectionCharge    = 0.5
	MenuImportCharge   = 15.0
	MaxFreeMenuParses  = 3

	// Telegram Stars per credit in the /credits purchase flow
	XTRPerCredit = 50

	// Default venue language
	DefaultLanguage = "en"

	// Extractor retry policy
	ExtractorRetries = 2
	ExtractorBackoff = 500 * time.Millisecond

	// Session store bounds
	ReplayCacheSize = 32
	MaxDraftItems   = 20
	MaxContextKeys  = 16

	// Session sweep interval (expiry itself is Config.SessionTTL)
	SessionSweepInterval = time.Minute

	// Telegram limits
	MaxTelegramMessageLen = 4096

	// Menu import fetch timeout
	MenuImportTimeout = 30 * time.Second
)

// CreditPackages available in the /credits purchase flow.
var CreditPackages = []int{5, 10, 25, 50}
