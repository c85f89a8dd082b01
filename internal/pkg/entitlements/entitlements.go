package entitlements

import (
	"strings"
	"time"
)

type Tier string

const (
	TierStandard Tier = "standard"
	TierAdvanced Tier = "advanced"
)

// TierForModel maps a requested chat model name to the tier that gates it.
func TierForModel(model string) Tier {
	m := strings.ToLower(strings.TrimSpace(model))
	if strings.HasPrefix(m, "gpt-4") || strings.HasPrefix(m, "o1") {
		return TierAdvanced
	}
	return TierStandard
}

// NextWindow computes the window resulting from purchasing duration d.
// An active window stacks (end pushed forward, start kept); an expired or
// absent window starts fresh from now.
func NextWindow(now time.Time, curStart, curEnd *time.Time, d time.Duration) (time.Time, time.Time) {
	if curEnd != nil && now.Before(*curEnd) {
		start := now
		if curStart != nil {
			start = *curStart
		}
		return start, curEnd.Add(d)
	}
	return now, now.Add(d)
}
