package telegram

import (
	"fmt"
	"time"
)

// FormatDegradedReportMessage builds the alert sent when research generation
// exhausts its retry budget and falls back to a degraded report.
func FormatDegradedReportMessage(at time.Time, ticker string, attempts int, reason string) string {
	return fmt.Sprintf("*Research Degraded* %s\nTicker: `%s`\nAttempts: %d\nReason: %s",
		at.Format("2006-01-02 15:04:05"), ticker, attempts, reason)
}

// FormatExcludedCandidatesMessage builds the alert sent when a ranking run
// excluded candidates because of upstream failures.
func FormatExcludedCandidatesMessage(at time.Time, userID int64, excluded int) string {
	return fmt.Sprintf("*Ranking Exclusions* %s\nUser: `%d`\nExcluded candidates: %d",
		at.Format("2006-01-02 15:04:05"), userID, excluded)
}
