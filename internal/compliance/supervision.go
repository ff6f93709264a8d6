package compliance

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rule ids produced by the supervision evaluator in addition to catalog rules.
const (
	RuleSupervisionDistribution = "supervision_distribution"
	RuleSupervisionRecency      = "supervision_recency"
	RuleObservationBalance      = "observation_balance"
)

// SupervisionEvaluator focuses on how supervision is distributed over time and
// across modes. Recency and observation balance only ever produce warnings.
type SupervisionEvaluator struct{}

// NewSupervisionEvaluator returns a supervision evaluator.
func NewSupervisionEvaluator() SupervisionEvaluator {
	return SupervisionEvaluator{}
}

// Evaluate returns the supervision-family catalog rules of profile followed by
// the distribution, recency and observation balance checks.
func (SupervisionEvaluator) Evaluate(profile Profile, buckets HourBuckets, now time.Time) Report {
	report := Report{
		Program:   profile.Program,
		Track:     profile.Track,
		Version:   profile.Version,
		TraineeID: buckets.TraineeID,
		AsOf:      buckets.AsOf,
		Results:   make([]Result, 0, len(profile.Requirements)+3),
	}

	hasWeeksRule := false
	for _, req := range profile.Requirements {
		if !req.IsSupervision() {
			continue
		}
		if req.Counter == CounterSupervisionWeeks {
			hasWeeksRule = true
		}
		report.Results = append(report.Results, evaluateRequirement(req, buckets))
	}

	policy := profile.Supervision
	if policy.MinDistinctWeeks > 0 && !hasWeeksRule {
		report.Results = append(report.Results, distributionResult(policy, buckets))
	}
	if policy.RecencyWarningWeeks > 0 {
		report.Results = append(report.Results, recencyResult(policy, buckets, now))
	}
	if policy.MaxObservationGap > 0 {
		report.Results = append(report.Results, observationBalanceResult(policy, buckets))
	}

	report.recompute()
	return report
}

func distributionResult(policy SupervisionPolicy, buckets HourBuckets) Result {
	req := countAtLeast(RuleSupervisionDistribution, CounterSupervisionWeeks, int64(policy.MinDistinctWeeks),
		"supervision_not_distributed",
		"Supervision was logged in {current} distinct weeks; at least {required} are required.")
	return evaluateRequirement(req, buckets)
}

func recencyResult(policy SupervisionPolicy, buckets HourBuckets, now time.Time) Result {
	required := decimal.NewFromInt(int64(policy.RecencyWarningWeeks))
	result := Result{
		RuleID:     RuleSupervisionRecency,
		Kind:       KindMaximum,
		Required:   required,
		Severity:   SeverityWarning,
		MessageKey: "compliance." + RuleSupervisionRecency,
		Details:    map[string]interface{}{"unit": "weeks"},
	}

	if buckets.LastSupervision == nil {
		result.Passed = false
		result.Current = decimal.Zero
		result.Delta = decimal.Zero
		result.ErrorKind = "no_supervision_logged"
		result.Details["no_supervision_logged"] = true
		result.Message = "No supervision has been logged yet."
		return result
	}

	elapsedDays := dateOnly(now).Sub(dateOnly(*buckets.LastSupervision)).Hours() / 24
	if elapsedDays < 0 {
		elapsedDays = 0
	}
	result.Current = decimal.NewFromFloat(elapsedDays).Div(decimal.NewFromInt(7)).Round(2)
	result.Details["last_supervision"] = buckets.LastSupervision.Format("2006-01-02")
	result.Passed, result.Delta = atMost(result.Current, required)
	if !result.Passed {
		result.ErrorKind = "supervision_overdue"
	}
	result.Message = renderMessage("The last supervision session was {current} weeks ago; sessions are expected at least every {required} weeks.", result)
	return result
}

func observationBalanceResult(policy SupervisionPolicy, buckets HourBuckets) Result {
	assessment := buckets.Count(CounterObservationAssessment)
	intervention := buckets.Count(CounterObservationIntervention)
	gap := assessment - intervention
	if gap < 0 {
		gap = -gap
	}

	result := Result{
		RuleID:     RuleObservationBalance,
		Kind:       KindCount,
		Current:    decimal.NewFromInt(int64(gap)),
		Required:   decimal.NewFromInt(int64(policy.MaxObservationGap)),
		Severity:   SeverityWarning,
		MessageKey: "compliance." + RuleObservationBalance,
		Details: map[string]interface{}{
			"unit":                      "count",
			"assessment_observations":   assessment,
			"intervention_observations": intervention,
		},
	}
	result.Passed, result.Delta = atMost(result.Current, result.Required)
	if !result.Passed {
		result.ErrorKind = "observations_unbalanced"
	}
	result.Message = renderMessage("Assessment and intervention observations differ by {current}; keep the gap within {required}.", result)
	return result
}
