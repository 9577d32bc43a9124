package lossy

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// linearSize models a frame whose size shrinks linearly with quality loss.
func linearSize(q float64) passResult {
	return passResult{size: 1000 + 100*q, psnr: 20 + q/5}
}

func TestInitPassStats(t *testing.T) {
	ps := initPassStats(5000, 0, 75, 0, 100)
	require.True(t, ps.doSearch)
	require.True(t, ps.doSizeSearch)
	require.Equal(t, 5000.0, ps.target)
	require.Equal(t, 10.0, ps.dq)

	ps = initPassStats(0, 42, 75, 0, 100)
	require.True(t, ps.doSearch)
	require.False(t, ps.doSizeSearch)
	require.Equal(t, 42.0, ps.target)

	ps = initPassStats(0, 0, 75, 0, 100)
	require.False(t, ps.doSearch)
	require.Equal(t, float64(defaultPSNR), ps.target)

	ps = initPassStats(0, 0, 95, 10, 60)
	require.Equal(t, 60.0, ps.q, "quality clamped to qmax")
}

func TestComputeNextQFirstStep(t *testing.T) {
	ps := initPassStats(1000, 0, 50, 0, 100)
	ps.value = 2000
	require.Equal(t, 40.0, ps.computeNextQ(), "too large: step down")

	ps = initPassStats(3000, 0, 50, 0, 100)
	ps.value = 2000
	require.Equal(t, 60.0, ps.computeNextQ(), "too small: step up")
}

func TestComputeNextQClamps(t *testing.T) {
	ps := initPassStats(1e6, 0, 50, 0, 100)
	ps.value = 10
	ps.computeNextQ()
	ps.value = 11 // almost flat: the secant step explodes
	ps.computeNextQ()
	require.Equal(t, float64(dqMaxStep), ps.dq)
	require.Equal(t, 90.0, ps.q)

	ps = initPassStats(0, 99, 95, 0, 97)
	ps.value = 30
	require.Equal(t, 97.0, ps.computeNextQ(), "clamped to qmax")
}

func TestSearchConvergesOnLinearSize(t *testing.T) {
	const trueQ = 63.3
	ps := initPassStats(int(1000+100*trueQ), 0, 75, 0, 100)
	calls := 0
	passes, q, err := ps.search(10, func(q float64) (passResult, error) {
		calls++
		return linearSize(q), nil
	})
	require.NoError(t, err)
	require.Equal(t, calls, passes)
	require.LessOrEqual(t, passes, 10)
	require.InDelta(t, trueQ, q, 1)
}

func TestSearchConvergesOnPSNR(t *testing.T) {
	ps := initPassStats(0, 35, 75, 0, 100)
	passes, q, err := ps.search(6, func(q float64) (passResult, error) {
		return linearSize(q), nil
	})
	require.NoError(t, err)
	require.LessOrEqual(t, passes, 6)
	require.InDelta(t, 75.0, q, 1)
}

func TestSearchRespectsPassBudget(t *testing.T) {
	for budget := 1; budget <= 4; budget++ {
		// A non-linear target that the secant steps approach slowly.
		ps := initPassStats(1500, 0, 90, 0, 100)
		calls := 0
		passes, _, err := ps.search(budget, func(q float64) (passResult, error) {
			calls++
			return passResult{size: 1000 + math.Pow(q, 3)/100}, nil
		})
		require.NoError(t, err)
		require.LessOrEqual(t, passes, budget)
		require.Equal(t, calls, passes)
	}
}

func TestSearchWithoutTargetStopsWhenStable(t *testing.T) {
	ps := initPassStats(0, 0, 75, 0, 100)
	calls := 0
	passes, q, err := ps.search(5, func(q float64) (passResult, error) {
		calls++
		return passResult{stable: calls == 2}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, passes)
	require.Equal(t, 75.0, q)
}

func TestSearchPropagatesErrors(t *testing.T) {
	ps := initPassStats(1000, 0, 75, 0, 100)
	_, _, err := ps.search(5, func(q float64) (passResult, error) {
		return passResult{}, errors.Wrap(ErrAllocation, "token partition")
	})
	require.ErrorIs(t, err, ErrAllocation)
}
