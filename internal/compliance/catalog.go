package compliance

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// SupervisionPolicy holds the non-numeric supervision checks of a profile.
type SupervisionPolicy struct {
	MinDistinctWeeks    int `json:"min_distinct_weeks"`
	RecencyWarningWeeks int `json:"recency_warning_weeks"`
	MaxObservationGap   int `json:"max_observation_gap"`
}

// Profile is one versioned rule set for a program/track pair.
type Profile struct {
	Program            ProgramType       `json:"program"`
	Track              Track             `json:"track"`
	Version            string            `json:"version"`
	DurationWeeks      int               `json:"duration_weeks"`
	RecencyWindowWeeks int               `json:"recency_window_weeks"`
	Supervision        SupervisionPolicy `json:"supervision"`
	Requirements       []Requirement     `json:"requirements"`
}

// SimulatedCap returns the maximum simulated contact hours, if the profile sets one.
func (p Profile) SimulatedCap() (decimal.Decimal, bool) {
	for _, req := range p.Requirements {
		if req.Kind == KindMaximum && req.Bucket == BucketSimulatedContact {
			return req.Threshold, true
		}
	}
	return decimal.Zero, false
}

func (p Profile) clone() Profile {
	out := p
	out.Requirements = append([]Requirement(nil), p.Requirements...)
	return out
}

func (p Profile) validate() error {
	if p.Program == "" || p.Track == "" || p.Version == "" {
		return fmt.Errorf("%w: profile needs program, track and version", ErrInvalidCatalog)
	}
	seen := make(map[string]struct{}, len(p.Requirements))
	for _, req := range p.Requirements {
		if err := req.validate(); err != nil {
			return fmt.Errorf("%w: %s/%s@%s: %v", ErrInvalidCatalog, p.Program, p.Track, p.Version, err)
		}
		if _, dup := seen[req.ID]; dup {
			return fmt.Errorf("%w: %s/%s@%s: duplicate requirement %s", ErrInvalidCatalog, p.Program, p.Track, p.Version, req.ID)
		}
		seen[req.ID] = struct{}{}
	}
	return nil
}

// ProfileRef names a registered profile version.
type ProfileRef struct {
	Program ProgramType `json:"program"`
	Track   Track       `json:"track"`
	Version string      `json:"version"`
}

type profileKey struct {
	program ProgramType
	track   Track
}

// Catalog is the in-memory registry of requirement profiles. Profiles are
// immutable once registered; registering a new version of a pair makes it the
// current one without touching older versions.
type Catalog struct {
	mu       sync.RWMutex
	profiles map[profileKey][]Profile
}

// NewCatalog builds a catalog from the given profiles.
func NewCatalog(profiles ...Profile) (*Catalog, error) {
	c := &Catalog{profiles: make(map[profileKey][]Profile)}
	for _, p := range profiles {
		if err := c.Register(p); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Register adds a profile version. Re-registering an existing version fails.
func (c *Catalog) Register(p Profile) error {
	p.Program = normalizeProgram(p.Program)
	p.Track = normalizeTrack(p.Track)
	if err := p.validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasVersion(p) {
		return errVersionRegistered(p)
	}
	key := profileKey{program: p.Program, track: p.Track}
	c.profiles[key] = append(c.profiles[key], p.clone())
	return nil
}

// hasVersion must be called with c.mu held.
func (c *Catalog) hasVersion(p Profile) bool {
	for _, existing := range c.profiles[profileKey{program: p.Program, track: p.Track}] {
		if existing.Version == p.Version {
			return true
		}
	}
	return false
}

func errVersionRegistered(p Profile) error {
	return fmt.Errorf("%w: %s/%s@%s already registered", ErrInvalidCatalog, p.Program, p.Track, p.Version)
}

// Profile returns the current version registered for the pair.
func (c *Catalog) Profile(program ProgramType, track Track) (Profile, error) {
	program, track = normalizeProgram(program), normalizeTrack(track)

	c.mu.RLock()
	defer c.mu.RUnlock()

	versions := c.profiles[profileKey{program: program, track: track}]
	if len(versions) == 0 {
		return Profile{}, &UnknownProgramError{Program: program, Track: track}
	}
	return versions[len(versions)-1].clone(), nil
}

// ProfileVersion returns a pinned version of the pair.
func (c *Catalog) ProfileVersion(program ProgramType, track Track, version string) (Profile, error) {
	program, track = normalizeProgram(program), normalizeTrack(track)

	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, p := range c.profiles[profileKey{program: program, track: track}] {
		if p.Version == version {
			return p.clone(), nil
		}
	}
	return Profile{}, &UnknownProgramError{Program: program, Track: track, Version: version}
}

// Lookup returns the ordered requirements of the current profile version.
func (c *Catalog) Lookup(program ProgramType, track Track) ([]Requirement, error) {
	profile, err := c.Profile(program, track)
	if err != nil {
		return nil, err
	}
	return profile.Requirements, nil
}

// Profiles lists every registered version, sorted by program, track and registration order.
func (c *Catalog) Profiles() []ProfileRef {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]profileKey, 0, len(c.profiles))
	for key := range c.profiles {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].program != keys[j].program {
			return keys[i].program < keys[j].program
		}
		return keys[i].track < keys[j].track
	})

	refs := make([]ProfileRef, 0, len(keys))
	for _, key := range keys {
		for _, p := range c.profiles[key] {
			refs = append(refs, ProfileRef{Program: p.Program, Track: p.Track, Version: p.Version})
		}
	}
	return refs
}

func normalizeProgram(program ProgramType) ProgramType {
	return ProgramType(strings.ToLower(strings.TrimSpace(string(program))))
}

func normalizeTrack(track Track) Track {
	t := Track(strings.ToLower(strings.TrimSpace(string(track))))
	if t == "" {
		return TrackGeneral
	}
	return t
}
