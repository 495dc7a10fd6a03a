package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/rhartert/rhobd/internal/ea"
	"github.com/rhartert/rhobd/internal/sat"
	"github.com/rhartert/rhobd/parsers"
)

// This test suite exercises the backdoor search end to end: parse a DIMACS
// instance, simplify, build the candidate pool, and run the EA against the
// solver's root-level state. Instances live in testdata/.

func loadSolver(t *testing.T, instanceFile string) *sat.Solver {
	t.Helper()
	s := sat.NewDefaultSolver()
	if err := parsers.LoadDIMACS(instanceFile, false, s); err != nil {
		t.Fatalf("Instance parsing error: %s", err)
	}
	if !s.Simplify() {
		t.Fatalf("instance %s refuted by unit propagation", instanceFile)
	}
	return s
}

func TestBuildPool_skipsHolesAndAssigned(t *testing.T) {
	s := loadSolver(t, filepath.Join("testdata", "implied.cnf"))

	pool, err := buildPool(s, nil, nil, newLogger(0), 0)
	if err != nil {
		t.Fatalf("buildPool(): %s", err)
	}

	// Variable 0 is assigned at the root, variable 3 occurs in no clause.
	if diff := cmp.Diff([]int{1, 2}, pool); diff != "" {
		t.Errorf("pool mismatch (-want, +got):\n%s", diff)
	}
}

func TestBuildPool_bansAndCandidates(t *testing.T) {
	s := loadSolver(t, filepath.Join("testdata", "php32.cnf"))

	pool, err := buildPool(s, []int{4, 0, 2, 2, 0}, []int{2}, newLogger(0), 0)
	if err != nil {
		t.Fatalf("buildPool(): %s", err)
	}

	if diff := cmp.Diff([]int{0, 4}, pool); diff != "" {
		t.Errorf("pool mismatch (-want, +got):\n%s", diff)
	}
}

func TestBuildPool_outOfRange(t *testing.T) {
	s := loadSolver(t, filepath.Join("testdata", "php32.cnf"))

	if _, err := buildPool(s, []int{99}, nil, newLogger(0), 0); err == nil {
		t.Errorf("buildPool(): want error for out-of-range candidate")
	}
	if _, err := buildPool(s, nil, []int{-1}, newLogger(0), 0); err == nil {
		t.Errorf("buildPool(): want error for out-of-range ban")
	}
}

// TestSearch_identicalRunsLogIdenticalLines runs the EA twice with the same
// seed on the same solver state and verifies the append-only log: two equal
// best-of-run lines separated by the run marker.
func TestSearch_identicalRunsLogIdenticalLines(t *testing.T) {
	s := loadSolver(t, filepath.Join("testdata", "php32.cnf"))
	out := filepath.Join(t.TempDir(), "backdoors.txt")

	pool, err := buildPool(s, nil, nil, newLogger(0), 0)
	if err != nil {
		t.Fatalf("buildPool(): %s", err)
	}
	if len(pool) != 6 {
		t.Fatalf("pool size = %d, want 6", len(pool))
	}

	search := ea.New(s, 42, out, newLogger(0))
	search.Run(300, 4, pool, 42)
	if err := ea.AppendSeparator(out); err != nil {
		t.Fatalf("AppendSeparator(): %s", err)
	}
	search.Run(300, 4, pool, 42)

	content, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading log: %s", err)
	}
	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("log has %d lines, want 3:\n%s", len(lines), content)
	}
	if lines[0] != lines[2] {
		t.Errorf("log lines differ:\n%s\n%s", lines[0], lines[2])
	}
	if lines[1] != "---" {
		t.Errorf("separator = %q, want %q", lines[1], "---")
	}
	if !strings.HasPrefix(lines[0], "Best fitness ") {
		t.Errorf("unexpected log line: %q", lines[0])
	}
}

// TestSearch_unsatInstanceIsReported verifies that a formula refuted by
// root-level propagation puts the solver in the terminal not-ok state.
func TestSearch_unsatInstanceIsReported(t *testing.T) {
	s := sat.NewDefaultSolver()
	for i := 0; i < 2; i++ {
		s.AddVariable()
	}
	for _, c := range [][]sat.Literal{
		{sat.PositiveLiteral(0)},
		{sat.NegativeLiteral(0), sat.PositiveLiteral(1)},
		{sat.NegativeLiteral(1)},
	} {
		if err := s.AddClause(c); err != nil {
			t.Fatalf("AddClause(): %s", err)
		}
	}

	if s.Simplify() {
		t.Errorf("Simplify() = true, want false")
	}
	if !s.Unsat() {
		t.Errorf("Unsat() = false, want true")
	}
}
