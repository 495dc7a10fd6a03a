// Package parsers loads DIMACS CNF formulas into a SAT solver.
package parsers

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/rhartert/dimacs"

	"github.com/rhartert/rhobd/internal/sat"
)

type SATSolver interface {
	AddVariable() int
	AddClause([]sat.Literal) error
}

func reader(filename string, gzipped bool) (io.ReadCloser, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	rc := io.ReadCloser(file)
	if gzipped {
		rc, err = gzip.NewReader(rc)
		if err != nil {
			return nil, err
		}
	}
	return rc, nil
}

// LoadDIMACS parses the DIMACS CNF file and loads its CNF formula in the
// given SAT solver. Variables are 1-based in the file and 0-based in the
// solver; every literal is validated against the variable count declared on
// the problem line, since the solver indexes its watcher and assignment
// tables by variable id.
func LoadDIMACS(filename string, gzipped bool, solver SATSolver) error {
	reader, err := reader(filename, gzipped)
	if err != nil {
		return fmt.Errorf("error reading file %q: %w", filename, err)
	}
	defer reader.Close()

	b := &builder{solver: solver}
	return dimacs.ReadBuilder(reader, b)
}

// builder wraps the solver to implement dimacs.Builder.
type builder struct {
	solver   SATSolver
	numVars  int
	seenProb bool
}

func (b *builder) Problem(problem string, nVars int, nClauses int) error {
	if problem != "cnf" {
		return fmt.Errorf("not a CNF problem")
	}
	if b.seenProb {
		return fmt.Errorf("found a second problem line")
	}
	if nVars < 0 {
		return fmt.Errorf("negative variable count %d", nVars)
	}
	b.seenProb = true
	b.numVars = nVars
	for i := 0; i < nVars; i++ {
		b.solver.AddVariable()
	}
	return nil
}

func (b *builder) Clause(tmpClause []int) error {
	if !b.seenProb {
		return fmt.Errorf("found a clause before the problem line")
	}
	clause := make([]sat.Literal, len(tmpClause))
	for i, l := range tmpClause {
		v := l
		if v < 0 {
			v = -v
		}
		if v == 0 || v > b.numVars {
			return fmt.Errorf("literal %d outside the declared %d variables", l, b.numVars)
		}
		if l < 0 {
			clause[i] = sat.NegativeLiteral(v - 1)
		} else {
			clause[i] = sat.PositiveLiteral(v - 1)
		}
	}
	return b.solver.AddClause(clause)
}

func (b *builder) Comment(_ string) error {
	return nil // ignore comments
}
