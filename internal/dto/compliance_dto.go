package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/praxis-api/internal/compliance"
)

// HourBucketsResponse serializes aggregated hours for a trainee.
type HourBucketsResponse struct {
	TraineeID       uint                       `json:"trainee_id"`
	AsOf            string                     `json:"as_of"`
	Hours           map[string]decimal.Decimal `json:"hours"`
	Counts          map[string]int             `json:"counts"`
	LastSupervision *string                    `json:"last_supervision"`
}

// NewHourBucketsResponse converts buckets into their wire form.
func NewHourBucketsResponse(b compliance.HourBuckets) HourBucketsResponse {
	resp := HourBucketsResponse{
		TraineeID: b.TraineeID,
		AsOf:      b.AsOf.Format(dateLayout),
		Hours:     make(map[string]decimal.Decimal, len(compliance.AllBuckets)),
		Counts:    make(map[string]int, len(compliance.AllCounters)),
	}
	for _, bucket := range compliance.AllBuckets {
		resp.Hours[string(bucket)] = b.Hours(bucket)
	}
	for _, counter := range compliance.AllCounters {
		resp.Counts[string(counter)] = b.Count(counter)
	}
	if b.LastSupervision != nil {
		last := b.LastSupervision.Format(dateLayout)
		resp.LastSupervision = &last
	}
	return resp
}

// RuleResultResponse is one evaluated rule.
type RuleResultResponse struct {
	RuleID     string                 `json:"rule_id"`
	Kind       string                 `json:"kind"`
	Passed     bool                   `json:"passed"`
	Current    decimal.Decimal        `json:"current"`
	Required   decimal.Decimal        `json:"required"`
	Delta      decimal.Decimal        `json:"delta"`
	Severity   string                 `json:"severity"`
	ErrorKind  string                 `json:"error_kind,omitempty"`
	MessageKey string                 `json:"message_key"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// ComplianceReportResponse serializes a compliance report.
type ComplianceReportResponse struct {
	TraineeID uint                 `json:"trainee_id"`
	Program   string               `json:"program"`
	Track     string               `json:"track"`
	Version   string               `json:"version"`
	AsOf      string               `json:"as_of"`
	IsValid   bool                 `json:"is_valid"`
	Failures  int                  `json:"failures"`
	Warnings  int                  `json:"warnings"`
	Results   []RuleResultResponse `json:"results"`
}

// NewComplianceReportResponse converts a report into its wire form.
func NewComplianceReportResponse(r compliance.Report) ComplianceReportResponse {
	resp := ComplianceReportResponse{
		TraineeID: r.TraineeID,
		Program:   string(r.Program),
		Track:     string(r.Track),
		Version:   r.Version,
		AsOf:      r.AsOf.Format(dateLayout),
		IsValid:   r.IsValid,
		Failures:  len(r.Failures()),
		Warnings:  len(r.Warnings()),
		Results:   make([]RuleResultResponse, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		resp.Results = append(resp.Results, RuleResultResponse{
			RuleID:     res.RuleID,
			Kind:       string(res.Kind),
			Passed:     res.Passed,
			Current:    res.Current,
			Required:   res.Required,
			Delta:      res.Delta,
			Severity:   string(res.Severity),
			ErrorKind:  res.ErrorKind,
			MessageKey: res.MessageKey,
			Message:    res.Message,
			Details:    res.Details,
		})
	}
	return resp
}

// SimulatedCheckRequest asks whether more simulated hours fit under the cap.
type SimulatedCheckRequest struct {
	AdditionalMinutes int64 `json:"additional_minutes" validate:"required,gt=0,lte=1440"`
}

// SimulatedCheckResponse reports the simulated-hours pre-check.
type SimulatedCheckResponse struct {
	Passed       bool            `json:"passed"`
	Limited      bool            `json:"limited"`
	Current      decimal.Decimal `json:"current"`
	Adding       decimal.Decimal `json:"adding"`
	TotalWouldBe decimal.Decimal `json:"total_would_be"`
	Limit        decimal.Decimal `json:"limit"`
	Excess       decimal.Decimal `json:"excess"`
}

// NewSimulatedCheckResponse converts a pre-check result.
func NewSimulatedCheckResponse(check compliance.SimulatedCheck) SimulatedCheckResponse {
	return SimulatedCheckResponse{
		Passed:       check.Passed,
		Limited:      check.Limited,
		Current:      check.Current,
		Adding:       check.Adding,
		TotalWouldBe: check.TotalWouldBe,
		Limit:        check.Limit,
		Excess:       check.Excess,
	}
}

// RequirementResponse describes a catalog rule.
type RequirementResponse struct {
	ID          string           `json:"id"`
	Kind        string           `json:"kind"`
	Bucket      string           `json:"bucket,omitempty"`
	Of          string           `json:"of,omitempty"`
	Counter     string           `json:"counter,omitempty"`
	Threshold   decimal.Decimal  `json:"threshold"`
	Ceiling     *decimal.Decimal `json:"ceiling,omitempty"`
	AtMost      bool             `json:"at_most,omitempty"`
	Severity    string           `json:"severity"`
	ErrorKind   string           `json:"error_kind"`
	Description string           `json:"description,omitempty"`
}

// CatalogProfileResponse describes one catalog profile.
type CatalogProfileResponse struct {
	Program            string                `json:"program"`
	Track              string                `json:"track"`
	Version            string                `json:"version"`
	DurationWeeks      int                   `json:"duration_weeks"`
	RecencyWindowWeeks int                   `json:"recency_window_weeks"`
	Requirements       []RequirementResponse `json:"requirements"`
}

// NewCatalogProfileResponse converts a profile.
func NewCatalogProfileResponse(p compliance.Profile) CatalogProfileResponse {
	resp := CatalogProfileResponse{
		Program:            string(p.Program),
		Track:              string(p.Track),
		Version:            p.Version,
		DurationWeeks:      p.DurationWeeks,
		RecencyWindowWeeks: p.RecencyWindowWeeks,
		Requirements:       make([]RequirementResponse, 0, len(p.Requirements)),
	}
	for _, req := range p.Requirements {
		resp.Requirements = append(resp.Requirements, RequirementResponse{
			ID:          req.ID,
			Kind:        string(req.Kind),
			Bucket:      string(req.Bucket),
			Of:          string(req.Of),
			Counter:     string(req.Counter),
			Threshold:   req.Threshold,
			Ceiling:     req.Ceiling,
			AtMost:      req.AtMost,
			Severity:    string(req.Severity),
			ErrorKind:   req.ErrorKind,
			Description: req.Description,
		})
	}
	return resp
}

// PriorHoursOverride parses an optional bucket -> hours override.
func PriorHoursOverride(raw map[string]string) (map[compliance.Bucket]decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	out := make(map[compliance.Bucket]decimal.Decimal, len(raw))
	for key, text := range raw {
		value, err := decimal.NewFromString(text)
		if err != nil {
			return nil, fmt.Errorf("prior hours %q: %w", key, err)
		}
		out[compliance.Bucket(key)] = value
	}
	return out, nil
}

const dateLayout = "2006-01-02"

// ParseDate parses an optional YYYY-MM-DD value; empty yields the zero time.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(dateLayout, value, time.UTC)
}
