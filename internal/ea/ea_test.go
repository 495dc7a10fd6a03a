package ea

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// php32 is the pigeonhole formula with 3 pigeons and 2 holes (1-based
// DIMACS literals). Unsatisfiable, but not by unit propagation alone.
var php32 = [][]int{
	{1, 2}, {3, 4}, {5, 6},
	{-1, -3}, {-1, -5}, {-3, -5},
	{-2, -4}, {-2, -6}, {-4, -6},
}

func TestCalculateFitness_cacheCollapsesSlotPermutations(t *testing.T) {
	s := newTestSolver(t, 6, php32...)
	alg := New(s, 42, "", testLogger())

	a := newInstance([]int{0, 3, 5}, []int{1, 2, 4})
	b := newInstance([]int{5, 0, 3}, []int{2, 4, 1})

	fitA := alg.calculateFitness(a)
	fitB := alg.calculateFitness(b)

	assert.Equal(t, fitA, fitB)
	assert.Equal(t, int64(1), alg.CacheMisses)
	assert.Equal(t, int64(1), alg.CacheHits)
}

func TestRun_emptyPool(t *testing.T) {
	s := newTestSolver(t, 6, php32...)
	alg := New(s, 42, "", testLogger())

	best := alg.Run(10, 4, nil, 42)

	assert.Equal(t, 0, best.NumVariables())
	assert.Equal(t, 4, best.Size())
}

func TestRun_poolSmallerThanInstance(t *testing.T) {
	s := newTestSolver(t, 6, php32...)
	alg := New(s, 42, filepath.Join(t.TempDir(), "backdoors.txt"), testLogger())

	best := alg.Run(20, 4, []int{0, 2}, 42)

	// Only two variables exist: the remaining slots stay empty.
	assert.Equal(t, 2, best.NumVariables())
	assert.Equal(t, 4, best.Size())
}

func TestRun_pigeonhole(t *testing.T) {
	s := newTestSolver(t, 6, php32...)
	require.True(t, s.Simplify())
	alg := New(s, 42, filepath.Join(t.TempDir(), "backdoors.txt"), testLogger())

	pool := []int{0, 1, 2, 3, 4, 5}
	best := alg.Run(500, 4, pool, 42)
	fit := best.CalculateFitness(s)

	assert.Equal(t, 4, best.NumVariables(), "all slots hold distinct variables")
	assert.Less(t, fit.Hard, uint64(16))
	assert.GreaterOrEqual(t, fit.Fitness, 0.0)
	assert.LessOrEqual(t, fit.Fitness, 1.0)

	// The solver must be back at the root level.
	assert.Equal(t, 0, s.DecisionLevel())
}

// TestRun_bestProgress checks that the best fitness never gets worse as the
// run goes on: a longer run with the same seed ends with a best at least as
// good as a shorter one.
func TestRun_bestProgress(t *testing.T) {
	s := newTestSolver(t, 6, php32...)
	require.True(t, s.Simplify())
	alg := New(s, 42, filepath.Join(t.TempDir(), "backdoors.txt"), testLogger())

	pool := []int{0, 1, 2, 3, 4, 5}
	best100 := alg.Run(100, 3, pool, 42).CalculateFitness(s)
	best500 := alg.Run(500, 3, pool, 42).CalculateFitness(s)

	// With the same seed, the longer run replays the shorter one and can
	// only improve on it.
	assert.LessOrEqual(t, best500.Fitness, best100.Fitness)
}

func TestRun_deterministicLogLines(t *testing.T) {
	out := filepath.Join(t.TempDir(), "backdoors.txt")
	s := newTestSolver(t, 6, php32...)
	require.True(t, s.Simplify())
	alg := New(s, 42, out, testLogger())

	pool := []int{0, 1, 2, 3, 4, 5}
	alg.Run(200, 4, pool, 42)
	require.NoError(t, AppendSeparator(out))
	alg.Run(200, 4, pool, 42)

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")

	require.Len(t, lines, 3)
	assert.Equal(t, lines[0], lines[2], "identical seeds must log identical lines")
	assert.Equal(t, "---", lines[1])
	assert.Regexp(t,
		`^Best fitness \S+ \(rho=\S+, hard=\d+\) on iteration \d+ with \d+ variables: \[\d+(,\d+)*\]$`,
		lines[0])
}

func TestClearCache(t *testing.T) {
	s := newTestSolver(t, 6, php32...)
	alg := New(s, 42, "", testLogger())

	alg.calculateFitness(newInstance([]int{0, 1}, nil))
	require.NotEmpty(t, alg.cache)

	alg.ClearCache()
	assert.Empty(t, alg.cache)
}

func TestEMA(t *testing.T) {
	ema := NewEMA(0.5)

	ema.Add(1)
	assert.Equal(t, 1.0, ema.Val())
	ema.Add(3)
	assert.Equal(t, 2.0, ema.Val())
}
