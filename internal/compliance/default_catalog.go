package compliance

import "github.com/shopspring/decimal"

// DefaultCatalog returns the built-in profiles: the 5+1 internship and the
// three registrar tracks.
func DefaultCatalog() *Catalog {
	profiles := append([]Profile{fivePlusOneProfile()}, registrarProfiles()...)
	catalog, err := NewCatalog(profiles...)
	if err != nil {
		panic(err)
	}
	return catalog
}

func fivePlusOneProfile() Profile {
	return Profile{
		Program:            ProgramFivePlusOne,
		Track:              TrackGeneral,
		Version:            "2024.1",
		DurationWeeks:      44,
		RecencyWindowWeeks: 52,
		Supervision: SupervisionPolicy{
			MinDistinctWeeks:    30,
			RecencyWarningWeeks: 2,
			MaxObservationGap:   4,
		},
		Requirements: []Requirement{
			minimumHours("total_practice", BucketTotalPractice, 1500, "insufficient_practice_hours",
				"Total practice is {current}h of the {required}h required ({delta}h short)."),
			minimumHours("client_contact", BucketClientContact, 500, "insufficient_client_contact",
				"Client contact is {current}h of the {required}h required ({delta}h short)."),
			maximumHours("simulated_contact_limit", BucketSimulatedContact, 60, "simulated_hours_exceeded",
				"Simulated contact is {current}h, {delta}h over the {required}h limit."),
			minimumHours("supervision_total", BucketSupervisionTotal, 80, "insufficient_supervision",
				"Supervision is {current}h of the {required}h required ({delta}h short)."),
			minimumHours("supervision_individual", BucketSupervisionIndividual, 50, "insufficient_individual_supervision",
				"Individual supervision is {current}h of the {required}h required ({delta}h short)."),
			maximumHours("supervision_group_limit", BucketSupervisionGroup, 30, "group_supervision_exceeded",
				"Group supervision is {current}h, {delta}h over the {required}h that may count."),
			maximumHours("supervision_phone_limit", BucketSupervisionPhone, 20, "phone_supervision_exceeded",
				"Phone supervision is {current}h, {delta}h over the {required}h that may count."),
			ratioPercent("supervision_practice_ratio", BucketSupervisionTotal, BucketTotalPractice, "5.88", "supervision_ratio_too_low",
				"Supervision is {current}% of practice; at least {required}% is required."),
			minimumHours("professional_development", BucketProfessionalDevelopment, 60, "insufficient_professional_development",
				"Professional development is {current}h of the {required}h required ({delta}h short)."),
			countAtLeast("observations_assessment", CounterObservationAssessment, 4, "insufficient_assessment_observations",
				"{current} observed assessment sessions recorded; {required} are required."),
			countAtLeast("observations_intervention", CounterObservationIntervention, 4, "insufficient_intervention_observations",
				"{current} observed intervention sessions recorded; {required} are required."),
			countAtLeast("program_duration", CounterProgramWeeks, 44, "program_too_short",
				"The program has run {current} weeks; at least {required} are required."),
			asWarning(minimumHours("recent_practice", BucketRecentPractice, 176, "insufficient_recent_practice",
				"Practice in the last 52 weeks is {current}h of the {required}h expected.")),
		},
	}
}

type registrarTargets struct {
	track         Track
	practice      int64
	supervision   int64
	cpd           int64
	activeCPD     int64
	durationWeeks int64
	minWeeks      int
}

func registrarProfiles() []Profile {
	targets := []registrarTargets{
		{track: TrackMasters, practice: 3000, supervision: 80, cpd: 80, activeCPD: 30, durationWeeks: 88, minWeeks: 40},
		{track: TrackCombined, practice: 2250, supervision: 60, cpd: 60, activeCPD: 25, durationWeeks: 66, minWeeks: 30},
		{track: TrackDoctoral, practice: 1500, supervision: 40, cpd: 40, activeCPD: 20, durationWeeks: 44, minWeeks: 20},
	}

	profiles := make([]Profile, 0, len(targets))
	for _, t := range targets {
		upper := decimal.NewFromInt(100)
		direct := ratioPercent("supervision_direct_share", BucketSupervisionDirect, BucketSupervisionTotal, "50", "direct_supervision_share_too_low",
			"Direct supervision is {current}% of supervision; at least {required}% is required.")
		direct.Ceiling = &upper

		profiles = append(profiles, Profile{
			Program:            ProgramRegistrar,
			Track:              t.track,
			Version:            "2024.1",
			DurationWeeks:      int(t.durationWeeks),
			RecencyWindowWeeks: 52,
			Supervision: SupervisionPolicy{
				MinDistinctWeeks:    t.minWeeks,
				RecencyWarningWeeks: 4,
			},
			Requirements: []Requirement{
				minimumHours("total_practice", BucketTotalPractice, t.practice, "insufficient_practice_hours",
					"Total practice is {current}h of the {required}h required ({delta}h short)."),
				minimumHours("supervision_total", BucketSupervisionTotal, t.supervision, "insufficient_supervision",
					"Supervision is {current}h of the {required}h required ({delta}h short)."),
				ratioPercent("supervision_principal_share", BucketSupervisionPrincipal, BucketSupervisionTotal, "50", "principal_supervision_share_too_low",
					"Principal supervisor sessions are {current}% of supervision; at least {required}% is required."),
				ratioPercent("supervision_individual_share", BucketSupervisionIndividual, BucketSupervisionTotal, "66.67", "individual_supervision_share_too_low",
					"Individual supervision is {current}% of supervision; at least {required}% is required."),
				direct,
				asWarning(minimumHours("supervision_cultural", BucketSupervisionCultural, 2, "insufficient_cultural_supervision",
					"Culturally responsive supervision is {current}h of the {required}h recommended.")),
				minimumHours("cpd_total", BucketCPDTotal, t.cpd, "insufficient_cpd",
					"CPD is {current}h of the {required}h required ({delta}h short)."),
				minimumHours("cpd_active", BucketCPDActive, t.activeCPD, "insufficient_active_cpd",
					"Active CPD is {current}h of the {required}h required ({delta}h short)."),
				countAtLeast("program_duration", CounterProgramWeeks, t.durationWeeks, "program_too_short",
					"The program has run {current} weeks; at least {required} are required."),
				asWarning(minimumHours("recent_practice", BucketRecentPractice, 176, "insufficient_recent_practice",
					"Practice in the last 52 weeks is {current}h of the {required}h expected.")),
			},
		})
	}
	return profiles
}
