package compliance

import (
	"time"

	"github.com/shopspring/decimal"
)

// Result is the outcome of one rule.
type Result struct {
	RuleID     string                 `json:"rule_id"`
	Kind       Kind                   `json:"kind"`
	Passed     bool                   `json:"passed"`
	Current    decimal.Decimal        `json:"current_value"`
	Required   decimal.Decimal        `json:"required_value"`
	Delta      decimal.Decimal        `json:"delta"`
	Severity   Severity               `json:"severity"`
	ErrorKind  string                 `json:"error_kind,omitempty"`
	MessageKey string                 `json:"message_key"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// Blocking reports whether the result fails an error-severity rule.
func (r Result) Blocking() bool {
	return !r.Passed && r.Severity == SeverityError
}

// Report is the ordered set of results for one trainee at one point in time.
type Report struct {
	Program   ProgramType `json:"program"`
	Track     Track       `json:"track"`
	Version   string      `json:"version"`
	TraineeID uint        `json:"trainee_id"`
	AsOf      time.Time   `json:"as_of"`
	IsValid   bool        `json:"is_valid"`
	Results   []Result    `json:"results"`
}

// Failures returns failed error-severity results in report order.
func (r Report) Failures() []Result {
	out := make([]Result, 0)
	for _, res := range r.Results {
		if res.Blocking() {
			out = append(out, res)
		}
	}
	return out
}

// Warnings returns failed warning-severity results in report order.
func (r Report) Warnings() []Result {
	out := make([]Result, 0)
	for _, res := range r.Results {
		if !res.Passed && res.Severity == SeverityWarning {
			out = append(out, res)
		}
	}
	return out
}

// Result looks up a rule outcome by id.
func (r Report) Result(ruleID string) (Result, bool) {
	for _, res := range r.Results {
		if res.RuleID == ruleID {
			return res, true
		}
	}
	return Result{}, false
}

// Merge appends the results of other that are not already present.
func (r *Report) Merge(other Report) {
	seen := make(map[string]struct{}, len(r.Results))
	for _, res := range r.Results {
		seen[res.RuleID] = struct{}{}
	}
	for _, res := range other.Results {
		if _, dup := seen[res.RuleID]; dup {
			continue
		}
		seen[res.RuleID] = struct{}{}
		r.Results = append(r.Results, res)
	}
	r.recompute()
}

func (r *Report) recompute() {
	r.IsValid = true
	for _, res := range r.Results {
		if res.Blocking() {
			r.IsValid = false
			return
		}
	}
}
