package ea

import (
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rhartert/rhobd/internal/sat"
)

// EvolutionaryAlgorithm is a (1+1) evolutionary search for small tree
// backdoors of the solver's formula. It owns the PRNG and a global fitness
// cache keyed on the canonical variable set, so that slot permutations of the
// same set share one evaluation.
//
// The algorithm only uses the solver transiently: every fitness evaluation
// returns it to the root level before control comes back.
type EvolutionaryAlgorithm struct {
	solver     *sat.Solver
	rng        *rand.Rand
	cache      map[string]Fitness
	outputPath string
	log        *logrus.Logger

	CacheHits   int64
	CacheMisses int64
}

// New returns an EA over the given solver. A non-negative seed initializes
// the PRNG; a negative one keeps the default stream. Best-of-run results are
// appended to outputPath.
func New(solver *sat.Solver, seed int64, outputPath string, logger *logrus.Logger) *EvolutionaryAlgorithm {
	if logger == nil {
		logger = logrus.New()
	}
	ea := &EvolutionaryAlgorithm{
		solver:     solver,
		rng:        rand.New(rand.NewSource(1)),
		cache:      map[string]Fitness{},
		outputPath: outputPath,
		log:        logger,
	}
	if seed >= 0 {
		ea.rng = rand.New(rand.NewSource(seed))
	}
	return ea
}

// ClearCache drops all memoized fitness values. Callers that run many outer
// restarts on large pools can use it to bound memory.
func (ea *EvolutionaryAlgorithm) ClearCache() {
	ea.cache = map[string]Fitness{}
}

// Run performs one (1+1) search of the given number of iterations over
// instances of instanceSize slots drawn from pool, and returns the best
// instance found. A non-negative seed resets the PRNG on entry. The best
// result is appended to the output log.
func (ea *EvolutionaryAlgorithm) Run(numIterations, instanceSize int, pool []int, seed int64) *Instance {
	if seed >= 0 {
		ea.rng = rand.New(rand.NewSource(seed))
	}

	ea.log.WithFields(logrus.Fields{
		"iterations": numIterations,
		"size":       instanceSize,
		"variables":  ea.solver.NumVariables(),
		"pool":       len(pool),
	}).Info("running EA")

	if len(pool) == 0 {
		ea.log.Warn("empty pool, cannot run")
		return NewEmptyInstance(instanceSize)
	}

	current := ea.initialize(instanceSize, pool)
	fit := ea.calculateFitness(current)
	ea.log.Infof("initial fitness %s for %d vars: %s", fit, current.NumVariables(), current)

	bestIteration := 0
	best := current
	bestFitness := fit

	evalTime := NewEMA(0.95)
	for i := 1; i <= numIterations; i++ {
		start := time.Now()

		mutated := current.Copy()
		ea.mutate(mutated)
		mutatedFitness := ea.calculateFitness(mutated)

		evalTime.Add(time.Since(start).Seconds())
		if logIteration(i) {
			ea.log.Infof(
				"[%d/%d] fitness %s for %d vars %s (%.1fms/eval)",
				i, numIterations, mutatedFitness, mutated.NumVariables(),
				mutated, evalTime.Val()*1000)
		}

		if mutatedFitness.Less(bestFitness) {
			bestIteration = i
			best = mutated
			bestFitness = mutatedFitness
		}

		// (1+1) strategy: replace 'current' if the mutant is not worse.
		if mutatedFitness.LessEq(fit) {
			current = mutated
			fit = mutatedFitness
		}
	}

	line := fmt.Sprintf(
		"Best fitness %v (rho=%v, hard=%d) on iteration %d with %d variables: %s",
		bestFitness.Fitness, bestFitness.Rho, bestFitness.Hard,
		bestIteration, best.NumVariables(), best)
	ea.log.Info(line)
	ea.log.Infof("cache hits: %d, misses: %d", ea.CacheHits, ea.CacheMisses)

	if err := appendLine(ea.outputPath, line); err != nil {
		ea.log.Errorf("could not write backdoor log: %s", err)
	}

	return best
}

// logIteration thins the progress output as the run gets longer.
func logIteration(i int) bool {
	switch {
	case i <= 10:
		return true
	case i < 1000:
		return i%100 == 0
	case i < 10000:
		return i%1000 == 0
	default:
		return i%10000 == 0
	}
}

// initialize draws an instance of the given size from the pool, without
// replacement, by swapping empty slots with random pool entries. If the pool
// holds fewer variables than there are slots, the remaining slots stay
// empty.
func (ea *EvolutionaryAlgorithm) initialize(instanceSize int, pool []int) *Instance {
	data := make([]int, instanceSize)
	for i := range data {
		data[i] = emptySlot
	}
	p := append([]int(nil), pool...)

	remaining := len(p)
	for i := 0; i < instanceSize && remaining > 0; i++ {
		for data[i] == emptySlot {
			j := ea.rng.Intn(len(p))
			if p[j] != emptySlot {
				data[i], p[j] = p[j], data[i]
			}
		}
		remaining--
	}

	// Drop the sentinels swapped into the pool.
	j := 0
	for _, v := range p {
		if v != emptySlot {
			p[j] = v
			j++
		}
	}
	return newInstance(data, p[:j])
}

// mutate swaps each slot, with probability 1/size, with a uniformly random
// pool entry. Swapping with an empty pool entry removes the slot's variable;
// the data ∪ pool multiset is preserved either way.
func (ea *EvolutionaryAlgorithm) mutate(instance *Instance) {
	if len(instance.pool) == 0 {
		return
	}
	rate := 1.0 / float64(len(instance.data))
	for i := range instance.data {
		if ea.rng.Float64() < rate {
			j := ea.rng.Intn(len(instance.pool))
			instance.data[i], instance.pool[j] = instance.pool[j], instance.data[i]
		}
	}
	instance.cached = nil
}

// calculateFitness returns the memoized fitness of the instance's variable
// set, computing and caching it on a miss.
func (ea *EvolutionaryAlgorithm) calculateFitness(instance *Instance) Fitness {
	key := cacheKey(instance.Variables())
	if fit, ok := ea.cache[key]; ok {
		ea.CacheHits++
		cached := fit
		instance.cached = &cached
		return fit
	}
	ea.CacheMisses++

	fit := instance.CalculateFitness(ea.solver)
	ea.cache[key] = fit
	return fit
}

// cacheKey canonicalizes a sorted variable set. Distinct sets always map to
// distinct keys.
func cacheKey(vars []int) string {
	sb := strings.Builder{}
	for i, v := range vars {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(v))
	}
	return sb.String()
}

// AppendSeparator appends a marker line to the output log, delimiting
// consecutive runs on the same solver state.
func AppendSeparator(path string) error {
	return appendLine(path, "---")
}

// appendLine appends a single line to the given file, creating it if needed.
func appendLine(path string, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(f, line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
