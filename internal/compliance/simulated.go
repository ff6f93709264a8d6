package compliance

import "github.com/shopspring/decimal"

// SimulatedCheck is the outcome of checking a prospective simulated entry
// against the profile ceiling.
type SimulatedCheck struct {
	Passed       bool            `json:"passed"`
	Limited      bool            `json:"limited"`
	Current      decimal.Decimal `json:"current"`
	Adding       decimal.Decimal `json:"adding"`
	TotalWouldBe decimal.Decimal `json:"total_would_be"`
	Limit        decimal.Decimal `json:"limit"`
	Excess       decimal.Decimal `json:"excess"`
}

// ValidateSimulatedLimit reports whether adding additionalMinutes of simulated
// contact would breach the profile ceiling. buckets is not modified.
func ValidateSimulatedLimit(profile Profile, buckets HourBuckets, additionalMinutes int64) SimulatedCheck {
	if additionalMinutes < 0 {
		additionalMinutes = 0
	}
	current := buckets.MinutesOf(BucketSimulatedContact)
	check := SimulatedCheck{
		Passed:       true,
		Current:      MinutesToHours(current),
		Adding:       MinutesToHours(additionalMinutes),
		TotalWouldBe: MinutesToHours(current + additionalMinutes),
		Excess:       decimal.Zero,
	}

	limit, ok := profile.SimulatedCap()
	if !ok {
		return check
	}
	check.Limited = true
	check.Limit = limit.Round(2)
	check.Passed, check.Excess = atMost(check.TotalWouldBe, check.Limit)
	return check
}
