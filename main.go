// Command rhobd searches a CNF formula for small tree backdoors: variable
// sets whose sign assignments are mostly decided by unit propagation alone.
// Best backdoors are appended to an output log, one line per run.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rhartert/rhobd/internal/ea"
	"github.com/rhartert/rhobd/internal/intervals"
	"github.com/rhartert/rhobd/internal/sat"
	"github.com/rhartert/rhobd/parsers"
)

var flagCPUProfile = flag.Bool(
	"cpuprof",
	false,
	"save pprof CPU profile in cpuprof",
)

var flagMemProfile = flag.Bool(
	"memprof",
	false,
	"save pprof memory profile in memprof",
)

var flagVerbosity = flag.Int(
	"verb",
	1,
	"verbosity level (0=silent, 1=some, 2=more)",
)

var flagSeed = flag.Int64(
	"ea-seed",
	42,
	"RNG seed for the EA (a negative seed keeps the default stream)",
)

var flagNumRuns = flag.Int(
	"ea-num-runs",
	1,
	"number of EA runs",
)

var flagNumIters = flag.Int(
	"ea-num-iters",
	1000,
	"number of EA iterations in each run",
)

var flagInstanceSize = flag.Int(
	"ea-instance-size",
	10,
	"number of variable slots per EA instance (backdoor target size)",
)

var flagVars = flag.String(
	"ea-vars",
	"",
	"comma/range list of 0-based variable ids to restrict the pool to",
)

var flagBans = flag.String(
	"ea-bans",
	"",
	"comma/range list of 0-based variable ids to exclude from the pool",
)

var flagOutputPath = flag.String(
	"ea-output-path",
	"backdoors.txt",
	"output file with the best backdoor of each run (truncated at startup)",
)

type config struct {
	instanceFile string
	memProfile   bool
	cpuProfile   bool
	verbosity    int
	seed         int64
	numRuns      int
	numIters     int
	instanceSize int
	vars         []int
	bans         []int
	outputPath   string
}

func parseConfig() (*config, error) {
	flag.Parse()

	if flag.NArg() == 0 || flag.Arg(0) == "" {
		return nil, fmt.Errorf("missing instance file")
	}
	cfg := &config{
		instanceFile: flag.Arg(0),
		memProfile:   *flagMemProfile,
		cpuProfile:   *flagCPUProfile,
		verbosity:    *flagVerbosity,
		seed:         *flagSeed,
		numRuns:      *flagNumRuns,
		numIters:     *flagNumIters,
		instanceSize: *flagInstanceSize,
		outputPath:   *flagOutputPath,
	}
	if cfg.instanceSize <= 0 || cfg.instanceSize >= 64 {
		return nil, fmt.Errorf("instance size must be in [1, 63], got %d", cfg.instanceSize)
	}

	var err error
	if *flagVars != "" {
		if cfg.vars, err = intervals.Parse(*flagVars); err != nil {
			return nil, fmt.Errorf("invalid -ea-vars: %w", err)
		}
	}
	if *flagBans != "" {
		if cfg.bans, err = intervals.Parse(*flagBans); err != nil {
			return nil, fmt.Errorf("invalid -ea-bans: %w", err)
		}
	}
	return cfg, nil
}

// errUnsat reports a formula refuted by root-level propagation alone.
var errUnsat = errors.New("unsatisfiable")

// buildPool returns the sorted list of variables eligible for the backdoor
// search: the candidates (all variables when nil), minus the "holes" that
// occur in no problem clause, minus the variables already assigned at the
// root level, minus the banned ones.
func buildPool(s *sat.Solver, candidates, bans []int, logger *logrus.Logger, verbosity int) ([]int, error) {
	n := s.NumVariables()

	banned := make([]bool, n)
	for _, v := range bans {
		if v < 0 || v >= n {
			return nil, fmt.Errorf("banned variable %d out of range [0, %d)", v, n)
		}
		banned[v] = true
	}

	if candidates == nil {
		candidates = make([]int, n)
		for v := range candidates {
			candidates[v] = v
		}
	} else {
		// Interval lists may overlap; keep each candidate once, sorted.
		seen := sat.NewResetSet(n)
		deduped := make([]int, 0, len(candidates))
		for _, v := range candidates {
			if v < 0 || v >= n {
				return nil, fmt.Errorf("candidate variable %d out of range [0, %d)", v, n)
			}
			if !seen.Contains(v) {
				seen.Add(v)
				deduped = append(deduped, v)
			}
		}
		sort.Ints(deduped)
		candidates = deduped
	}

	occurring := s.Occurring()
	pool := make([]int, 0, len(candidates))
	for _, v := range candidates {
		switch {
		case !occurring[v] && s.VarValue(v) == sat.Unknown:
			if verbosity > 1 {
				logger.Debugf("skipping hole %d", v)
			}
		case banned[v]:
			if verbosity > 1 {
				logger.Debugf("skipping banned variable %d", v)
			}
		case s.VarValue(v) != sat.Unknown:
			if verbosity > 1 {
				logger.Debugf("skipping variable %d already assigned to %s", v, s.VarValue(v))
			}
		default:
			pool = append(pool, v)
		}
	}
	return pool, nil
}

func newLogger(verbosity int) *logrus.Logger {
	logger := logrus.New()
	switch {
	case verbosity <= 0:
		logger.SetLevel(logrus.ErrorLevel)
	case verbosity == 1:
		logger.SetLevel(logrus.InfoLevel)
	default:
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

func run(cfg *config, logger *logrus.Logger) error {
	options := sat.DefaultOptions
	options.Verbosity = cfg.verbosity
	s := sat.NewSolver(options)
	gzipped := strings.HasSuffix(cfg.instanceFile, ".gz")
	if err := parsers.LoadDIMACS(cfg.instanceFile, gzipped, s); err != nil {
		return fmt.Errorf("could not parse instance: %w", err)
	}
	if !s.Simplify() {
		return errUnsat
	}

	if cfg.verbosity > 0 {
		s.PrintStats()
	}

	// Truncate the backdoor log beforehand; runs append to it.
	f, err := os.Create(cfg.outputPath)
	if err != nil {
		return fmt.Errorf("could not truncate %q: %w", cfg.outputPath, err)
	}
	f.Close()

	pool, err := buildPool(s, cfg.vars, cfg.bans, logger, cfg.verbosity)
	if err != nil {
		return err
	}
	logger.Infof("pool size: %d", len(pool))

	search := ea.New(s, cfg.seed, cfg.outputPath, logger)

	start := time.Now()
	for r := 1; r <= cfg.numRuns; r++ {
		if r > 1 {
			if err := ea.AppendSeparator(cfg.outputPath); err != nil {
				logger.Errorf("could not write backdoor log: %s", err)
			}
		}
		logger.Infof("=== [%d/%d]", r, cfg.numRuns)
		search.Run(cfg.numIters, cfg.instanceSize, pool, cfg.seed)
	}
	logger.Infof("done %d EA runs in %.3fs", cfg.numRuns, time.Since(start).Seconds())

	if cfg.verbosity > 0 {
		s.PrintStats()
	}
	return nil
}

func main() {
	cfg, err := parseConfig()
	if err != nil {
		log.Fatal(err)
	}

	if cfg.cpuProfile {
		f, err := os.Create("cpuprof")
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	logger := newLogger(cfg.verbosity)
	if err := run(cfg, logger); err != nil {
		if errors.Is(err, errUnsat) {
			fmt.Println("UNSATISFIABLE")
			os.Exit(20)
		}
		log.Fatal(err)
	}

	if cfg.memProfile {
		f, err := os.Create("memprof")
		if err != nil {
			log.Fatal(err)
		}
		pprof.WriteHeapProfile(f)
		f.Close()
	}
}
