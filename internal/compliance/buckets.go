package compliance

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Bucket names an aggregate of logged minutes.
type Bucket string

const (
	BucketTotalPractice           Bucket = "total_practice"
	BucketClientContact           Bucket = "client_contact"
	BucketSimulatedContact        Bucket = "simulated_contact"
	BucketClientRelated           Bucket = "client_related"
	BucketSupervisionTotal        Bucket = "supervision_total"
	BucketSupervisionIndividual   Bucket = "supervision_individual"
	BucketSupervisionGroup        Bucket = "supervision_group"
	BucketSupervisionDirect       Bucket = "supervision_direct"
	BucketSupervisionIndirect     Bucket = "supervision_indirect"
	BucketSupervisionPrincipal    Bucket = "supervision_principal"
	BucketSupervisionCultural     Bucket = "supervision_cultural"
	BucketSupervisionPhone        Bucket = "supervision_phone"
	BucketProfessionalDevelopment Bucket = "professional_development"
	BucketCPDTotal                Bucket = "cpd_total"
	BucketCPDActive               Bucket = "cpd_active"
	BucketRecentPractice          Bucket = "recent_practice"
)

// AllBuckets lists every hour bucket in presentation order.
var AllBuckets = []Bucket{
	BucketTotalPractice,
	BucketClientContact,
	BucketSimulatedContact,
	BucketClientRelated,
	BucketSupervisionTotal,
	BucketSupervisionIndividual,
	BucketSupervisionGroup,
	BucketSupervisionDirect,
	BucketSupervisionIndirect,
	BucketSupervisionPrincipal,
	BucketSupervisionCultural,
	BucketSupervisionPhone,
	BucketProfessionalDevelopment,
	BucketCPDTotal,
	BucketCPDActive,
	BucketRecentPractice,
}

// Valid reports whether b is a known bucket.
func (b Bucket) Valid() bool {
	for _, known := range AllBuckets {
		if b == known {
			return true
		}
	}
	return false
}

// IsSupervision reports whether the bucket belongs to the supervision family.
func (b Bucket) IsSupervision() bool {
	return strings.HasPrefix(string(b), "supervision_")
}

// Counter names an integer tally kept beside the hour buckets.
type Counter string

const (
	CounterObservationAssessment   Counter = "observation_assessment"
	CounterObservationIntervention Counter = "observation_intervention"
	CounterSupervisionWeeks        Counter = "supervision_weeks"
	CounterProgramWeeks            Counter = "program_weeks"
)

// AllCounters lists every counter in presentation order.
var AllCounters = []Counter{
	CounterObservationAssessment,
	CounterObservationIntervention,
	CounterSupervisionWeeks,
	CounterProgramWeeks,
}

// Valid reports whether c is a known counter.
func (c Counter) Valid() bool {
	for _, known := range AllCounters {
		if c == known {
			return true
		}
	}
	return false
}

var minutesPerHour = decimal.NewFromInt(60)

// HourBuckets is the aggregate view of a trainee's entries at a point in time.
// Values are kept in minutes; conversion to hours happens only through Hours.
type HourBuckets struct {
	TraineeID       uint             `json:"trainee_id"`
	AsOf            time.Time        `json:"as_of"`
	Minutes         map[Bucket]int64 `json:"minutes"`
	Counts          map[Counter]int  `json:"counts"`
	LastSupervision *time.Time       `json:"last_supervision,omitempty"`
}

// NewHourBuckets returns buckets with every known key present and zeroed.
func NewHourBuckets(traineeID uint, asOf time.Time) HourBuckets {
	b := HourBuckets{
		TraineeID: traineeID,
		AsOf:      asOf,
		Minutes:   make(map[Bucket]int64, len(AllBuckets)),
		Counts:    make(map[Counter]int, len(AllCounters)),
	}
	for _, bucket := range AllBuckets {
		b.Minutes[bucket] = 0
	}
	for _, counter := range AllCounters {
		b.Counts[counter] = 0
	}
	return b
}

// MinutesOf returns the raw minute total for a bucket.
func (b HourBuckets) MinutesOf(bucket Bucket) int64 {
	return b.Minutes[bucket]
}

// Hours returns the bucket total in hours rounded to two places.
func (b HourBuckets) Hours(bucket Bucket) decimal.Decimal {
	return MinutesToHours(b.Minutes[bucket])
}

// Count returns the tally for a counter.
func (b HourBuckets) Count(counter Counter) int {
	return b.Counts[counter]
}

// MinutesToHours converts minutes to hours with two-place precision.
func MinutesToHours(minutes int64) decimal.Decimal {
	return decimal.NewFromInt(minutes).Div(minutesPerHour).Round(2)
}

// HoursToMinutes converts decimal hours to whole minutes.
func HoursToMinutes(hours decimal.Decimal) int64 {
	return hours.Mul(minutesPerHour).Round(0).IntPart()
}
