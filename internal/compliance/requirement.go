package compliance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ProgramType identifies a training program family.
type ProgramType string

const (
	ProgramFivePlusOne ProgramType = "five_plus_one"
	ProgramRegistrar   ProgramType = "registrar"
)

// Track identifies a pathway inside a program family.
type Track string

const (
	TrackGeneral  Track = "general"
	TrackMasters  Track = "masters"
	TrackCombined Track = "combined"
	TrackDoctoral Track = "doctoral"
)

// Kind is the comparison a requirement performs.
type Kind string

const (
	KindMinimum Kind = "minimum"
	KindMaximum Kind = "maximum"
	KindRatio   Kind = "ratio"
	KindCount   Kind = "count"
)

// Severity separates blocking failures from advisory ones.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Requirement is one rule of a catalog profile.
//
// Minimum and maximum compare Bucket hours against Threshold. Ratio compares
// Bucket as a percentage of Of against the band [Threshold, Ceiling]. Count
// compares Counter against Threshold, as a ceiling when AtMost is set.
type Requirement struct {
	ID          string           `json:"id"`
	Kind        Kind             `json:"kind"`
	Bucket      Bucket           `json:"bucket,omitempty"`
	Of          Bucket           `json:"of,omitempty"`
	Counter     Counter          `json:"counter,omitempty"`
	Threshold   decimal.Decimal  `json:"threshold"`
	Ceiling     *decimal.Decimal `json:"ceiling,omitempty"`
	AtMost      bool             `json:"at_most,omitempty"`
	Severity    Severity         `json:"severity"`
	ErrorKind   string           `json:"error_kind"`
	MessageKey  string           `json:"message_key"`
	Template    string           `json:"template"`
	Description string           `json:"description,omitempty"`
}

// IsSupervision reports whether the rule reads the supervision family.
func (r Requirement) IsSupervision() bool {
	return r.Bucket.IsSupervision() || r.Of.IsSupervision() || r.Counter == CounterSupervisionWeeks
}

func (r Requirement) validate() error {
	if r.ID == "" {
		return fmt.Errorf("requirement id is required")
	}
	switch r.Kind {
	case KindMinimum, KindMaximum:
		if !r.Bucket.Valid() {
			return fmt.Errorf("requirement %s: unknown bucket %q", r.ID, r.Bucket)
		}
	case KindRatio:
		if !r.Bucket.Valid() || !r.Of.Valid() {
			return fmt.Errorf("requirement %s: ratio needs two known buckets", r.ID)
		}
		if r.Ceiling != nil && r.Ceiling.LessThan(r.Threshold) {
			return fmt.Errorf("requirement %s: ceiling below threshold", r.ID)
		}
	case KindCount:
		if !r.Counter.Valid() {
			return fmt.Errorf("requirement %s: unknown counter %q", r.ID, r.Counter)
		}
	default:
		return fmt.Errorf("requirement %s: unknown kind %q", r.ID, r.Kind)
	}
	if r.Threshold.IsNegative() {
		return fmt.Errorf("requirement %s: negative threshold", r.ID)
	}
	switch r.Severity {
	case SeverityError, SeverityWarning:
	default:
		return fmt.Errorf("requirement %s: unknown severity %q", r.ID, r.Severity)
	}
	return nil
}

func minimumHours(id string, bucket Bucket, hours int64, errorKind, template string) Requirement {
	return Requirement{
		ID:         id,
		Kind:       KindMinimum,
		Bucket:     bucket,
		Threshold:  decimal.NewFromInt(hours),
		Severity:   SeverityError,
		ErrorKind:  errorKind,
		MessageKey: "compliance." + id,
		Template:   template,
	}
}

func maximumHours(id string, bucket Bucket, hours int64, errorKind, template string) Requirement {
	r := minimumHours(id, bucket, hours, errorKind, template)
	r.Kind = KindMaximum
	return r
}

func ratioPercent(id string, bucket, of Bucket, percent string, errorKind, template string) Requirement {
	return Requirement{
		ID:         id,
		Kind:       KindRatio,
		Bucket:     bucket,
		Of:         of,
		Threshold:  decimal.RequireFromString(percent),
		Severity:   SeverityError,
		ErrorKind:  errorKind,
		MessageKey: "compliance." + id,
		Template:   template,
	}
}

func countAtLeast(id string, counter Counter, n int64, errorKind, template string) Requirement {
	return Requirement{
		ID:         id,
		Kind:       KindCount,
		Counter:    counter,
		Threshold:  decimal.NewFromInt(n),
		Severity:   SeverityError,
		ErrorKind:  errorKind,
		MessageKey: "compliance." + id,
		Template:   template,
	}
}

func asWarning(r Requirement) Requirement {
	r.Severity = SeverityWarning
	return r
}
