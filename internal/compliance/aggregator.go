package compliance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Section identifies one of the three fixed categories of activity.
type Section string

const (
	SectionPractice                Section = "practice"
	SectionProfessionalDevelopment Section = "professional_development"
	SectionSupervision             Section = "supervision"
)

// Sections lists the fixed logbook sections.
var Sections = []Section{SectionPractice, SectionProfessionalDevelopment, SectionSupervision}

// PracticeActivity classifies a practice entry.
type PracticeActivity string

const (
	ActivityClientContact PracticeActivity = "client_contact"
	ActivityClientRelated PracticeActivity = "client_related"
	ActivityOther         PracticeActivity = "other"
)

// ObservationKind records what a supervisor directly observed.
type ObservationKind string

const (
	ObservationNone         ObservationKind = ""
	ObservationAssessment   ObservationKind = "assessment"
	ObservationIntervention ObservationKind = "intervention"
)

// SupervisionMode distinguishes one-to-one from group supervision.
type SupervisionMode string

const (
	ModeIndividual SupervisionMode = "individual"
	ModeGroup      SupervisionMode = "group"
)

// SupervisionFormat is the channel a supervision session used.
type SupervisionFormat string

const (
	FormatInPerson SupervisionFormat = "in_person"
	FormatVideo    SupervisionFormat = "video"
	FormatPhone    SupervisionFormat = "phone"
)

// Entry is the read-only view of a logged activity the aggregator needs.
type Entry struct {
	Section  Section
	Date     time.Time
	Minutes  int64
	Approved bool

	Activity    PracticeActivity
	Simulated   bool
	Observation ObservationKind

	CPD       bool
	ActiveCPD bool

	Mode      SupervisionMode
	Direct    bool
	Principal bool
	Cultural  bool
	Format    SupervisionFormat
}

// AggregateInput carries everything one aggregation needs.
type AggregateInput struct {
	TraineeID          uint
	AsOf               time.Time
	ProgramStart       time.Time
	RecencyWindowWeeks int
	PriorHours         map[Bucket]decimal.Decimal
	Entries            []Entry
}

// Aggregator reduces entries into hour buckets. It holds no state.
type Aggregator struct{}

// NewAggregator returns an aggregator.
func NewAggregator() Aggregator {
	return Aggregator{}
}

// Aggregate computes buckets for the input. Only approved entries count,
// except simulated contact which is tallied over every logged entry so the
// ceiling applies before supervisor sign-off.
func (Aggregator) Aggregate(in AggregateInput) HourBuckets {
	asOf := dateOnly(in.AsOf)
	buckets := NewHourBuckets(in.TraineeID, asOf)

	var recencyStart time.Time
	if in.RecencyWindowWeeks > 0 {
		recencyStart = asOf.AddDate(0, 0, -7*in.RecencyWindowWeeks)
	}

	supervisionWeeks := make(map[string]struct{})
	var lastSupervision time.Time

	for _, entry := range in.Entries {
		if entry.Minutes <= 0 {
			continue
		}
		day := dateOnly(entry.Date)
		if day.After(asOf) {
			continue
		}

		switch entry.Section {
		case SectionPractice:
			if entry.Simulated {
				buckets.Minutes[BucketSimulatedContact] += entry.Minutes
			}
			if !entry.Approved {
				continue
			}
			buckets.Minutes[BucketTotalPractice] += entry.Minutes
			switch entry.Activity {
			case ActivityClientContact:
				buckets.Minutes[BucketClientContact] += entry.Minutes
			case ActivityClientRelated:
				buckets.Minutes[BucketClientRelated] += entry.Minutes
			}
			if in.RecencyWindowWeeks > 0 && !day.Before(recencyStart) {
				buckets.Minutes[BucketRecentPractice] += entry.Minutes
			}
			switch entry.Observation {
			case ObservationAssessment:
				buckets.Counts[CounterObservationAssessment]++
			case ObservationIntervention:
				buckets.Counts[CounterObservationIntervention]++
			}

		case SectionProfessionalDevelopment:
			if !entry.Approved {
				continue
			}
			buckets.Minutes[BucketProfessionalDevelopment] += entry.Minutes
			if entry.CPD {
				buckets.Minutes[BucketCPDTotal] += entry.Minutes
				if entry.ActiveCPD {
					buckets.Minutes[BucketCPDActive] += entry.Minutes
				}
			}

		case SectionSupervision:
			if day.After(lastSupervision) {
				lastSupervision = day
			}
			if !entry.Approved {
				continue
			}
			buckets.Minutes[BucketSupervisionTotal] += entry.Minutes
			switch entry.Mode {
			case ModeIndividual:
				buckets.Minutes[BucketSupervisionIndividual] += entry.Minutes
			case ModeGroup:
				buckets.Minutes[BucketSupervisionGroup] += entry.Minutes
			}
			if entry.Direct {
				buckets.Minutes[BucketSupervisionDirect] += entry.Minutes
			} else {
				buckets.Minutes[BucketSupervisionIndirect] += entry.Minutes
			}
			if entry.Principal {
				buckets.Minutes[BucketSupervisionPrincipal] += entry.Minutes
			}
			if entry.Cultural {
				buckets.Minutes[BucketSupervisionCultural] += entry.Minutes
			}
			if entry.Format == FormatPhone {
				buckets.Minutes[BucketSupervisionPhone] += entry.Minutes
			}
			supervisionWeeks[weekKey(day)] = struct{}{}
		}
	}

	for bucket, hours := range in.PriorHours {
		if !bucket.Valid() || hours.IsNegative() {
			continue
		}
		buckets.Minutes[bucket] += HoursToMinutes(hours)
	}

	buckets.Counts[CounterSupervisionWeeks] = len(supervisionWeeks)
	if !in.ProgramStart.IsZero() {
		start := dateOnly(in.ProgramStart)
		if asOf.After(start) {
			buckets.Counts[CounterProgramWeeks] = int(asOf.Sub(start).Hours() / 24 / 7)
		}
	}
	if !lastSupervision.IsZero() {
		last := lastSupervision
		buckets.LastSupervision = &last
	}

	return buckets
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}
