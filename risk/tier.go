package risk

import "strings"

// Tier is the account plan type. It fixes the stop and reward distances.
type Tier string

const (
	Standard Tier = "standard"
	Pro      Tier = "pro"
)

const (
	DefaultStopPips     = 7
	DefaultRiskFraction = 0.0025
)

// ParseTier maps anything that is not "pro" to Standard.
func ParseTier(s string) Tier {
	if strings.EqualFold(strings.TrimSpace(s), string(Pro)) {
		return Pro
	}
	return Standard
}

// TierRules returns (stopPips, rewardPips): 7/21 for standard, 7/42 for pro.
func TierRules(t Tier) (float64, float64) {
	if t == Pro {
		return DefaultStopPips, 42
	}
	return DefaultStopPips, 21
}
