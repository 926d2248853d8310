package match

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/clockd/internal/feature"
)

type fakeStore struct {
	profiles []ProfileEntry
	err      error
}

func (f *fakeStore) LoadProfiles(ctx context.Context) ([]ProfileEntry, error) {
	return f.profiles, f.err
}

func enrolledVector(fill float64) []float64 {
	v := make([]float64, feature.Dim)
	for i := range v {
		v[i] = fill
	}
	return v
}

func TestMatchSelfIsConfident(t *testing.T) {
	v := enrolledVector(0.1)
	id := uuid.New()
	store := &fakeStore{profiles: []ProfileEntry{{EmployeeID: id, Name: "Alice", Vector: v}}}

	m := New(store, Single(0.6), nil)
	res := m.Match(context.Background(), [][]float64{v})

	require.True(t, res.Matched)
	assert.False(t, res.SoftMatch)
	assert.Equal(t, id, *res.EmployeeID)
	assert.Equal(t, "Alice", res.DisplayName)
	assert.InDelta(t, 0, res.Distance, 1e-9)
	assert.Equal(t, 1, res.CandidateCount)
}

func TestMatchFarVectorIsUnknown(t *testing.T) {
	store := &fakeStore{profiles: []ProfileEntry{
		{EmployeeID: uuid.New(), Name: "Alice", Vector: enrolledVector(0.1)},
	}}

	m := New(store, Single(0.6), nil)
	res := m.Match(context.Background(), [][]float64{enrolledVector(5)})

	assert.False(t, res.Matched)
	assert.Equal(t, "Unknown", res.DisplayName)
	require.NotNil(t, res.TopCandidate)
	assert.Equal(t, "Alice", res.TopCandidate.Name)
	assert.Greater(t, res.Distance, 0.6)
}

func TestMatchEmptyStore(t *testing.T) {
	m := New(&fakeStore{}, Single(0.6), nil)
	res := m.Match(context.Background(), [][]float64{enrolledVector(0.1)})

	assert.False(t, res.Matched)
	assert.Equal(t, "Unknown (No profiles)", res.DisplayName)
	assert.True(t, math.IsInf(res.Distance, 1))
	assert.Equal(t, 0, res.CandidateCount)
}

func TestMatchStoreFailureIsDecisiveResult(t *testing.T) {
	m := New(&fakeStore{err: fmt.Errorf("connection refused")}, Single(0.6), nil)
	res := m.Match(context.Background(), [][]float64{enrolledVector(0.1)})

	assert.False(t, res.Matched)
	assert.True(t, res.Failed)
	assert.Contains(t, res.FailureReason, "connection refused")
	assert.True(t, math.IsInf(res.Distance, 1))
}

func TestMatchDegenerateInput(t *testing.T) {
	m := New(&fakeStore{}, Single(0.6), nil)
	res := m.Match(context.Background(), nil)

	assert.False(t, res.Matched)
	assert.True(t, math.IsInf(res.Distance, 1))
}

func TestSoftZoneContainment(t *testing.T) {
	// Enrolled vector at distance 0.28 from the query: one dimension off
	// by 0.28, the rest identical.
	enrolled := enrolledVector(0.1)
	query := enrolledVector(0.1)
	query[0] += 0.28

	id := uuid.New()
	store := &fakeStore{profiles: []ProfileEntry{{EmployeeID: id, Name: "Bob", Vector: enrolled}}}

	m := New(store, Thresholds{Low: 0.25, High: 0.32}, nil)
	res := m.Match(context.Background(), [][]float64{query})

	require.True(t, res.Matched)
	assert.True(t, res.SoftMatch)
	assert.Equal(t, id, *res.EmployeeID)
	assert.Greater(t, res.Distance, 0.25)
	assert.LessOrEqual(t, res.Distance, 0.32)
}

func TestSingleThresholdHasNoSoftZone(t *testing.T) {
	enrolled := enrolledVector(0.1)
	query := enrolledVector(0.1)
	query[0] += 0.28

	store := &fakeStore{profiles: []ProfileEntry{{EmployeeID: uuid.New(), Name: "Bob", Vector: enrolled}}}

	res := New(store, Single(0.25), nil).Match(context.Background(), [][]float64{query})
	assert.False(t, res.Matched)
	assert.False(t, res.SoftMatch)
}

func TestThresholdMonotonicity(t *testing.T) {
	enrolled := enrolledVector(0.1)
	query := enrolledVector(0.1)
	query[5] += 0.3

	store := &fakeStore{profiles: []ProfileEntry{{EmployeeID: uuid.New(), Name: "Bob", Vector: enrolled}}}

	var prevMatched bool
	for _, th := range []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6} {
		res := New(store, Single(th), nil).Match(context.Background(), [][]float64{query})
		if prevMatched {
			assert.True(t, res.Matched, "raising the threshold must not unmatch (t=%v)", th)
		}
		prevMatched = res.Matched
	}
	assert.True(t, prevMatched)
}

func TestVarianceGatePrecedence(t *testing.T) {
	enrolled := enrolledVector(0.1)
	id := uuid.New()
	store := &fakeStore{profiles: []ProfileEntry{{EmployeeID: id, Name: "Alice", Vector: enrolled}}}

	// One frame is an exact hit; the other is wildly different. The gate
	// must reject before any candidate distance is considered.
	frames := [][]float64{enrolled, enrolledVector(3)}

	m := New(store, Thresholds{Low: 0.42, High: 0.6, VarianceCeiling: 0.15}, nil)
	res := m.Match(context.Background(), frames)

	assert.False(t, res.Matched)
	assert.Equal(t, "Unknown", res.DisplayName)
	assert.True(t, math.IsInf(res.Distance, 1))
	assert.Nil(t, res.TopCandidate)
	assert.Greater(t, res.Dispersion, 0.15)
}

func TestStableMultiFrameCaptureMatches(t *testing.T) {
	enrolled := enrolledVector(0.1)
	a := enrolledVector(0.1)
	b := enrolledVector(0.1)
	a[0] += 0.01
	b[0] -= 0.01

	store := &fakeStore{profiles: []ProfileEntry{{EmployeeID: uuid.New(), Name: "Alice", Vector: enrolled}}}

	m := New(store, Thresholds{Low: 0.42, High: 0.6, VarianceCeiling: 0.15}, nil)
	res := m.Match(context.Background(), [][]float64{a, b})

	assert.True(t, res.Matched)
	assert.LessOrEqual(t, res.Dispersion, 0.15)
}

func TestNearestProfileWins(t *testing.T) {
	near := uuid.New()
	store := &fakeStore{profiles: []ProfileEntry{
		{EmployeeID: uuid.New(), Name: "Far", Vector: enrolledVector(2)},
		{EmployeeID: near, Name: "Near", Vector: enrolledVector(0.11)},
		{EmployeeID: uuid.New(), Name: "Farther", Vector: enrolledVector(4)},
	}}

	res := New(store, Single(0.6), nil).Match(context.Background(), [][]float64{enrolledVector(0.1)})

	require.True(t, res.Matched)
	assert.Equal(t, near, *res.EmployeeID)
	assert.Equal(t, "Near", res.DisplayName)
	assert.Equal(t, 3, res.CandidateCount)
}

func TestFallbackOverridesRejection(t *testing.T) {
	enrolled := enrolledVector(0.1)
	id := uuid.New()
	store := &fakeStore{profiles: []ProfileEntry{{EmployeeID: id, Name: "Alice", Vector: enrolled}}}

	// Strongly positive weights make the sigmoid saturate for this query.
	fb := &Fallback{Weights: enrolledVector(10), Bias: 0, Threshold: 0.5}

	query := enrolledVector(0.1)
	query[0] += 2 // far beyond the high threshold

	m := New(store, Thresholds{Low: 0.25, High: 0.32}, fb)
	res := m.Match(context.Background(), [][]float64{query})

	require.True(t, res.Matched)
	assert.True(t, res.FallbackUsed)
	assert.False(t, res.SoftMatch)
	assert.Equal(t, id, *res.EmployeeID)
}

func TestFallbackBelowThresholdStaysUnmatched(t *testing.T) {
	store := &fakeStore{profiles: []ProfileEntry{{EmployeeID: uuid.New(), Name: "Alice", Vector: enrolledVector(0.1)}}}
	fb := &Fallback{Weights: enrolledVector(-10), Bias: 0, Threshold: 0.5}

	m := New(store, Thresholds{Low: 0.25, High: 0.32}, fb)
	res := m.Match(context.Background(), [][]float64{enrolledVector(3)})

	assert.False(t, res.Matched)
	assert.False(t, res.FallbackUsed)
	require.NotNil(t, res.TopCandidate)
}

func TestFallbackScoreSigmoid(t *testing.T) {
	fb := &Fallback{Weights: []float64{1, 1}, Bias: 0, Threshold: 0.5}

	s, err := fb.Score([]float64{0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, s, 1e-12)

	s, err = fb.Score([]float64{10, 10})
	require.NoError(t, err)
	assert.Greater(t, s, 0.99)

	_, err = fb.Score(nil)
	assert.Error(t, err)
}
