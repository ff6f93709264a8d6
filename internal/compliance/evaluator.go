package compliance

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Evaluator checks hour buckets against catalog profiles. It never writes and
// is safe for concurrent use.
type Evaluator struct {
	catalog *Catalog
}

// NewEvaluator returns an evaluator reading from catalog.
func NewEvaluator(catalog *Catalog) *Evaluator {
	return &Evaluator{catalog: catalog}
}

// Catalog exposes the catalog the evaluator reads from.
func (e *Evaluator) Catalog() *Catalog {
	return e.catalog
}

// Evaluate runs every requirement of the current profile for program/track.
// Only an unknown program is an error; failed rules are part of the report.
func (e *Evaluator) Evaluate(program ProgramType, track Track, buckets HourBuckets) (Report, error) {
	profile, err := e.catalog.Profile(program, track)
	if err != nil {
		return Report{}, err
	}
	return EvaluateProfile(profile, buckets), nil
}

// EvaluateProfile runs the requirements of profile in catalog order without
// short-circuiting.
func EvaluateProfile(profile Profile, buckets HourBuckets) Report {
	report := Report{
		Program:   profile.Program,
		Track:     profile.Track,
		Version:   profile.Version,
		TraineeID: buckets.TraineeID,
		AsOf:      buckets.AsOf,
		Results:   make([]Result, 0, len(profile.Requirements)),
	}
	for _, req := range profile.Requirements {
		report.Results = append(report.Results, evaluateRequirement(req, buckets))
	}
	report.recompute()
	return report
}

func evaluateRequirement(req Requirement, buckets HourBuckets) Result {
	threshold := req.Threshold.Round(2)
	result := Result{
		RuleID:     req.ID,
		Kind:       req.Kind,
		Required:   threshold,
		Severity:   req.Severity,
		MessageKey: req.MessageKey,
		Details:    map[string]interface{}{},
	}

	switch req.Kind {
	case KindMinimum:
		result.Current = buckets.Hours(req.Bucket)
		result.Passed, result.Delta = atLeast(result.Current, threshold)
		result.Details["bucket"] = string(req.Bucket)
		result.Details["unit"] = "hours"

	case KindMaximum:
		result.Current = buckets.Hours(req.Bucket)
		result.Passed, result.Delta = atMost(result.Current, threshold)
		result.Details["bucket"] = string(req.Bucket)
		result.Details["unit"] = "hours"

	case KindRatio:
		result.Current = percentOf(buckets.MinutesOf(req.Bucket), buckets.MinutesOf(req.Of))
		result.Passed, result.Delta = atLeast(result.Current, threshold)
		if result.Passed && req.Ceiling != nil {
			ceiling := req.Ceiling.Round(2)
			result.Passed, result.Delta = atMost(result.Current, ceiling)
			result.Details["ceiling"] = ceiling.String()
		}
		result.Details["bucket"] = string(req.Bucket)
		result.Details["of"] = string(req.Of)
		result.Details["numerator_hours"] = buckets.Hours(req.Bucket).String()
		result.Details["denominator_hours"] = buckets.Hours(req.Of).String()
		result.Details["unit"] = "percent"

	case KindCount:
		result.Current = decimal.NewFromInt(int64(buckets.Count(req.Counter)))
		if req.AtMost {
			result.Passed, result.Delta = atMost(result.Current, threshold)
		} else {
			result.Passed, result.Delta = atLeast(result.Current, threshold)
		}
		result.Details["counter"] = string(req.Counter)
		result.Details["unit"] = "count"

	default:
		result.Details["unsupported_kind"] = string(req.Kind)
	}

	if !result.Passed {
		result.ErrorKind = req.ErrorKind
	}
	result.Message = renderMessage(req.Template, result)
	return result
}

// atLeast treats an exact match as compliant. Delta is the shortfall.
func atLeast(current, threshold decimal.Decimal) (bool, decimal.Decimal) {
	if current.LessThan(threshold) {
		return false, threshold.Sub(current)
	}
	return true, decimal.Zero
}

// atMost treats an exact match as compliant. Delta is the excess.
func atMost(current, threshold decimal.Decimal) (bool, decimal.Decimal) {
	if current.GreaterThan(threshold) {
		return false, current.Sub(threshold)
	}
	return true, decimal.Zero
}

func percentOf(numerator, denominator int64) decimal.Decimal {
	if denominator <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(numerator).Mul(hundred).Div(decimal.NewFromInt(denominator)).Round(2)
}

func renderMessage(template string, result Result) string {
	if template == "" {
		return ""
	}
	places := int32(2)
	if result.Kind == KindCount {
		places = 0
	}
	return strings.NewReplacer(
		"{current}", result.Current.StringFixed(places),
		"{required}", result.Required.StringFixed(places),
		"{delta}", result.Delta.StringFixed(places),
	).Replace(template)
}
