package domain

import "time"

// AlertRecord is one emitted alert, immutable once written.
type AlertRecord struct {
	Mint      string    `json:"mint"`
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
}

// DailyAlertState is the persisted daily alert budget. It is the only mutable
// state shared across pipeline instances and is owned exclusively by the
// alert-state manager.
type DailyAlertState struct {
	Date          string        `json:"date"` // UTC calendar day, YYYY-MM-DD
	AlertsSent    int           `json:"alerts_sent"`
	TokensAlerted []AlertRecord `json:"tokens_alerted"`
}

// HasAlerted reports whether mint already has an alert recorded for the
// stored day.
func (s DailyAlertState) HasAlerted(mint string) bool {
	for _, r := range s.TokensAlerted {
		if r.Mint == mint {
			return true
		}
	}
	return false
}

// DateKey formats t as the UTC calendar day used in Date.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
