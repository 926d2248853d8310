// Package match implements identity matching: nearest-profile search over the
// enrolled feature store with a two-threshold classification and an optional
// advisory fallback classifier.
package match

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/your-org/clockd/internal/feature"
)

const (
	unknownName           = "Unknown"
	unknownNoProfilesName = "Unknown (No profiles)"
)

// ProfileEntry is one enrolled (employee, vector) pair from the feature store.
type ProfileEntry struct {
	EmployeeID uuid.UUID
	Name       string
	Vector     []float64
}

// ProfileSource is the read path into the feature store.
type ProfileSource interface {
	LoadProfiles(ctx context.Context) ([]ProfileEntry, error)
}

// Thresholds classifies a best distance d into confident (d <= Low), soft
// (Low < d <= High) and unmatched (d > High). VarianceCeiling rejects a
// multi-frame capture before any comparison when the frames disagree too
// much; zero disables the gate.
type Thresholds struct {
	Low             float64
	High            float64
	VarianceCeiling float64
}

// Single collapses the soft zone for coarse single-threshold call sites:
// match iff best distance <= t.
func Single(t float64) Thresholds {
	return Thresholds{Low: t, High: t}
}

// Candidate is one scored profile owner, retained for diagnostics even when
// the match is rejected.
type Candidate struct {
	EmployeeID uuid.UUID
	Name       string
	Distance   float64
}

// Result is the decisive outcome of one match attempt. The kiosk always gets
// one of these; no failure mode escapes as an error.
type Result struct {
	Matched        bool
	SoftMatch      bool
	FallbackUsed   bool
	EmployeeID     *uuid.UUID
	DisplayName    string
	Distance       float64
	CandidateCount int
	TopCandidate   *Candidate
	Dispersion     float64
	Failed         bool
	FailureReason  string
}

// Matcher scans the feature store for the nearest enrolled vector.
type Matcher struct {
	store      ProfileSource
	thresholds Thresholds
	fallback   *Fallback
}

// New builds a matcher. fallback may be nil; when present it is consulted as
// a secondary opinion on distances beyond the high threshold.
func New(store ProfileSource, thresholds Thresholds, fallback *Fallback) *Matcher {
	return &Matcher{store: store, thresholds: thresholds, fallback: fallback}
}

// Match runs one attempt with the matcher's configured thresholds. vectors is
// the ordered frame sequence of a single capture attempt; one vector is fine.
func (m *Matcher) Match(ctx context.Context, vectors [][]float64) Result {
	return m.MatchWith(ctx, vectors, m.thresholds)
}

// MatchWith runs one attempt with caller-supplied thresholds.
func (m *Matcher) MatchWith(ctx context.Context, vectors [][]float64, th Thresholds) Result {
	centroid := feature.Centroid(vectors)
	dispersion := feature.Dispersion(vectors)

	res := Result{
		DisplayName: unknownName,
		Distance:    math.Inf(1),
		Dispersion:  dispersion,
	}

	if len(centroid) == 0 {
		return res
	}

	// Unstable captures are unreliable regardless of how close any stored
	// vector is, so reject before spending comparison work on them.
	if th.VarianceCeiling > 0 && dispersion > th.VarianceCeiling {
		return res
	}

	profiles, err := m.store.LoadProfiles(ctx)
	if err != nil {
		slog.Error("load face profiles", "error", err)
		res.Failed = true
		res.FailureReason = err.Error()
		return res
	}
	if len(profiles) == 0 {
		res.DisplayName = unknownNoProfilesName
		return res
	}

	candidates := make([]Candidate, 0, len(profiles))
	for _, p := range profiles {
		candidates = append(candidates, Candidate{
			EmployeeID: p.EmployeeID,
			Name:       p.Name,
			Distance:   feature.Distance(centroid, p.Vector),
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})

	best := candidates[0]
	res.CandidateCount = len(candidates)
	res.TopCandidate = &best
	res.Distance = best.Distance

	switch {
	case best.Distance <= th.Low:
		res.Matched = true
	case best.Distance <= th.High:
		// Uncertain distances still count as a match; the kiosk surfaces
		// the soft flag instead of looping the user through re-capture.
		res.Matched = true
		res.SoftMatch = true
	default:
		if m.fallback != nil {
			score, err := m.fallback.Score(centroid)
			if err != nil {
				slog.Warn("fallback classifier evaluation failed", "error", err)
			} else if score > m.fallback.Threshold {
				res.Matched = true
				res.FallbackUsed = true
			}
		}
	}

	if res.Matched {
		id := best.EmployeeID
		res.EmployeeID = &id
		res.DisplayName = best.Name
	}
	return res
}
