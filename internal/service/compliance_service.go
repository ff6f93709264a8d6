package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/praxis-api/internal/compliance"
	"github.com/noah-isme/praxis-api/internal/logbook"
	"github.com/noah-isme/praxis-api/internal/models"
	"github.com/noah-isme/praxis-api/internal/observability"
	"github.com/noah-isme/praxis-api/internal/repository"
)

// ComplianceQuery parameterises one compliance calculation.
type ComplianceQuery struct {
	// AsOf bounds the entries considered; zero means today.
	AsOf time.Time
	// PriorHoursOverride replaces the trainee's declared prior hours for this
	// call only.
	PriorHoursOverride map[compliance.Bucket]decimal.Decimal
	// Actor is recorded on the audit entry of the calculation.
	Actor logbook.Actor
}

// ComplianceService aggregates trainee hours and evaluates them against the
// requirement catalog.
type ComplianceService interface {
	Aggregate(ctx context.Context, traineeID uint, query ComplianceQuery) (compliance.HourBuckets, error)
	Evaluate(ctx context.Context, traineeID uint, query ComplianceQuery) (compliance.Report, error)
	Report(ctx context.Context, traineeID uint, query ComplianceQuery) (compliance.Report, error)
	SimulatedCheck(ctx context.Context, traineeID uint, additionalMinutes int64) (compliance.SimulatedCheck, error)
	Profile(program, track string) (compliance.Profile, error)
	Authorize(ctx context.Context, actor logbook.Actor, traineeID uint) error
}

// ComplianceServiceConfig carries the optional collaborators of the service.
type ComplianceServiceConfig struct {
	Cache    *redis.Client
	CacheTTL time.Duration
	// RecencyReference pins "now" for recency checks when set.
	RecencyReference time.Time
}

type complianceService struct {
	trainees   repository.TraineeRepository
	entries    repository.EntryRepository
	audits     repository.AuditRepository
	catalog    *compliance.Catalog
	aggregator compliance.Aggregator
	cache      *redis.Client
	cacheTTL   time.Duration
	reference  time.Time
	logger     zerolog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewComplianceService wires the compliance service.
func NewComplianceService(trainees repository.TraineeRepository, entries repository.EntryRepository, audits repository.AuditRepository, catalog *compliance.Catalog, cfg ComplianceServiceConfig, logger zerolog.Logger) ComplianceService {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &complianceService{
		trainees:   trainees,
		entries:    entries,
		audits:     audits,
		catalog:    catalog,
		aggregator: compliance.NewAggregator(),
		cache:      cfg.Cache,
		cacheTTL:   ttl,
		reference:  cfg.RecencyReference,
		logger:     logger.With().Str("component", "compliance_service").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/praxis-api/internal/service/compliance"),
		now:        time.Now,
	}
}

func (s *complianceService) Profile(program, track string) (compliance.Profile, error) {
	return s.catalog.Profile(compliance.ProgramType(program), compliance.Track(track))
}

// Authorize checks that actor may read the trainee's compliance data.
func (s *complianceService) Authorize(ctx context.Context, actor logbook.Actor, traineeID uint) error {
	trainee, err := s.trainees.GetByID(ctx, traineeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTraineeNotFound
		}
		return err
	}

	participants, err := participantsOf(ctx, s.trainees, trainee)
	if err != nil {
		return err
	}
	if !canView(actor, participants) {
		return ErrForbidden
	}
	return nil
}

func (s *complianceService) Aggregate(ctx context.Context, traineeID uint, query ComplianceQuery) (compliance.HourBuckets, error) {
	_, _, buckets, err := s.aggregate(ctx, traineeID, query)
	return buckets, err
}

func (s *complianceService) Evaluate(ctx context.Context, traineeID uint, query ComplianceQuery) (compliance.Report, error) {
	ctx, span := s.tracer.Start(ctx, "compliance.evaluate", trace.WithAttributes(attribute.Int("trainee.id", int(traineeID))))
	defer span.End()

	trainee, profile, buckets, err := s.aggregate(ctx, traineeID, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate_failed")
		return compliance.Report{}, err
	}

	report := compliance.EvaluateProfile(profile, buckets)
	if err := s.record(ctx, trainee, report, query, "evaluate"); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "audit_failed")
		return compliance.Report{}, err
	}
	return report, nil
}

// Report merges the catalog evaluation with the supervision checks.
func (s *complianceService) Report(ctx context.Context, traineeID uint, query ComplianceQuery) (compliance.Report, error) {
	ctx, span := s.tracer.Start(ctx, "compliance.evaluate", trace.WithAttributes(
		attribute.Int("trainee.id", int(traineeID)),
		attribute.Bool("compliance.merged", true),
	))
	defer span.End()

	trainee, profile, buckets, err := s.aggregate(ctx, traineeID, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate_failed")
		return compliance.Report{}, err
	}

	report := compliance.EvaluateProfile(profile, buckets)
	report.Merge(compliance.NewSupervisionEvaluator().Evaluate(profile, buckets, buckets.AsOf))
	if err := s.record(ctx, trainee, report, query, "report"); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "audit_failed")
		return compliance.Report{}, err
	}
	return report, nil
}

func (s *complianceService) SimulatedCheck(ctx context.Context, traineeID uint, additionalMinutes int64) (compliance.SimulatedCheck, error) {
	_, profile, buckets, err := s.aggregate(ctx, traineeID, ComplianceQuery{})
	if err != nil {
		return compliance.SimulatedCheck{}, err
	}
	return compliance.ValidateSimulatedLimit(profile, buckets, additionalMinutes), nil
}

func (s *complianceService) asOf(query ComplianceQuery) time.Time {
	switch {
	case !query.AsOf.IsZero():
		return query.AsOf
	case !s.reference.IsZero():
		return s.reference
	default:
		return s.now()
	}
}

func (s *complianceService) aggregate(ctx context.Context, traineeID uint, query ComplianceQuery) (models.Trainee, compliance.Profile, compliance.HourBuckets, error) {
	ctx, span := s.tracer.Start(ctx, "compliance.aggregate", trace.WithAttributes(attribute.Int("trainee.id", int(traineeID))))
	defer span.End()

	trainee, err := s.trainees.GetByID(ctx, traineeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "trainee_not_found")
			return models.Trainee{}, compliance.Profile{}, compliance.HourBuckets{}, ErrTraineeNotFound
		}
		span.RecordError(err)
		return models.Trainee{}, compliance.Profile{}, compliance.HourBuckets{}, fmt.Errorf("load trainee: %w", err)
	}

	profile, err := s.catalog.Profile(compliance.ProgramType(trainee.ProgramType), compliance.Track(trainee.Track))
	if err != nil {
		span.RecordError(err)
		return trainee, compliance.Profile{}, compliance.HourBuckets{}, err
	}

	prior := query.PriorHoursOverride
	if prior == nil {
		prior, err = trainee.DeclaredPriorHours()
		if err != nil {
			return trainee, profile, compliance.HourBuckets{}, fmt.Errorf("trainee %d: %w", trainee.ID, err)
		}
	}

	asOf := s.asOf(query).UTC()
	lastModified, err := s.entries.LastModified(ctx, trainee.ID)
	if err != nil {
		span.RecordError(err)
		return trainee, profile, compliance.HourBuckets{}, fmt.Errorf("entries last modified: %w", err)
	}
	if trainee.UpdatedAt.After(lastModified) {
		lastModified = trainee.UpdatedAt
	}

	cacheKey := bucketCacheKey(trainee.ID, lastModified, asOf, profile, prior)
	if buckets, ok := s.cached(ctx, cacheKey); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return trainee, profile, buckets, nil
	}

	set, err := s.entries.ListForTrainee(ctx, trainee.ID)
	if err != nil {
		span.RecordError(err)
		return trainee, profile, compliance.HourBuckets{}, fmt.Errorf("list entries: %w", err)
	}

	buckets := s.aggregator.Aggregate(compliance.AggregateInput{
		TraineeID:          trainee.ID,
		AsOf:               asOf,
		ProgramStart:       trainee.StartDate,
		RecencyWindowWeeks: profile.RecencyWindowWeeks,
		PriorHours:         prior,
		Entries:            set.ComplianceEntries(),
	})
	s.store(ctx, cacheKey, buckets)
	return trainee, profile, buckets, nil
}

func (s *complianceService) cached(ctx context.Context, key string) (compliance.HourBuckets, bool) {
	if s.cache == nil {
		return compliance.HourBuckets{}, false
	}

	payload, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read bucket cache")
		}
		observability.ComplianceCacheLookups().WithLabelValues("miss").Inc()
		return compliance.HourBuckets{}, false
	}

	var buckets compliance.HourBuckets
	if err := json.Unmarshal([]byte(payload), &buckets); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("discarding unreadable bucket cache entry")
		observability.ComplianceCacheLookups().WithLabelValues("miss").Inc()
		return compliance.HourBuckets{}, false
	}
	observability.ComplianceCacheLookups().WithLabelValues("hit").Inc()
	return buckets, true
}

func (s *complianceService) store(ctx context.Context, key string, buckets compliance.HourBuckets) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(buckets)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store bucket cache")
	}
}

func (s *complianceService) record(ctx context.Context, trainee models.Trainee, report compliance.Report, query ComplianceQuery, mode string) error {
	observability.ComplianceEvaluations().
		WithLabelValues(string(report.Program), string(report.Track), strconv.FormatBool(report.IsValid)).
		Inc()

	failures := make([]string, 0)
	for _, res := range report.Failures() {
		failures = append(failures, res.RuleID)
	}
	warnings := make([]string, 0)
	for _, res := range report.Warnings() {
		warnings = append(warnings, res.RuleID)
	}

	role := query.Actor.Role
	if role == "" {
		role = "system"
	}
	entry := models.AuditEntry{
		TraineeID:   trainee.ID,
		ActorRole:   role,
		Action:      models.AuditActionComplianceEvaluate,
		Description: fmt.Sprintf("compliance %s against %s/%s %s", mode, report.Program, report.Track, report.Version),
		DiffSnapshot: map[string]interface{}{
			"program":      string(report.Program),
			"track":        string(report.Track),
			"version":      report.Version,
			"as_of":        report.AsOf.Format("2006-01-02"),
			"is_valid":     report.IsValid,
			"failures":     failures,
			"warnings":     warnings,
			"prior_source": priorSource(query),
		},
		CreatedAt: s.now().UTC(),
	}
	if query.Actor.ID != 0 {
		actorID := query.Actor.ID
		entry.ActorID = &actorID
	}

	if err := s.audits.Create(ctx, &entry); err != nil {
		return fmt.Errorf("record compliance audit: %w", err)
	}

	s.logger.Info().
		Uint("trainee_id", trainee.ID).
		Str("program", string(report.Program)).
		Str("track", string(report.Track)).
		Bool("valid", report.IsValid).
		Int("failures", len(failures)).
		Msg("compliance evaluated")
	return nil
}

func priorSource(query ComplianceQuery) string {
	if query.PriorHoursOverride != nil {
		return "override"
	}
	return "declared"
}

func bucketCacheKey(traineeID uint, lastModified, asOf time.Time, profile compliance.Profile, prior map[compliance.Bucket]decimal.Decimal) string {
	return fmt.Sprintf("compliance:buckets:%d:%d:%s:%s",
		traineeID, lastModified.UnixNano(), asOf.Format("2006-01-02"), overrideHash(profile, prior))
}

// overrideHash fingerprints every input that is not captured by the entry
// timestamps: the prior hours and the profile's recency window.
func overrideHash(profile compliance.Profile, prior map[compliance.Bucket]decimal.Decimal) string {
	keys := make([]string, 0, len(prior))
	for bucket := range prior {
		keys = append(keys, string(bucket))
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "window=%d;", profile.RecencyWindowWeeks)
	for _, key := range keys {
		fmt.Fprintf(&b, "%s=%s;", key, prior[compliance.Bucket(key)].String())
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:8])
}
