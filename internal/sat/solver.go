package sat

import (
	"fmt"
	"log"
	"sort"
)

// litUndef is an invalid literal used as a scan sentinel.
const litUndef Literal = -2

// varData records how a variable got its current assignment: the clause that
// unit-propagated it (RefUndef for decisions and top-level units) and the
// decision level it was enqueued at.
type varData struct {
	reason ClauseRef
	level  int
}

// watcher represents a clause attached to the watch list of a literal.
type watcher struct {
	// The watching clause to be propagated when the watched literal becomes
	// true.
	clause ClauseRef

	// Guard is one of the clause's literals. If it is true, then there is
	// no need to propagate the clause. Note that the guard literal must be
	// different from the watcher literal.
	guard Literal
}

type Solver struct {
	// Clause database.
	ca      *ClauseAllocator
	clauses []ClauseRef

	// Propagation and watchers.
	watchers [][]watcher

	// Value assigned to each literal.
	assigns []LBool

	// Last saved polarity of each variable, recorded when its assignment is
	// undone (only if phase saving is enabled).
	phases      []LBool
	phaseSaving bool

	// Trail. qhead is the index of the first trail literal whose watchers
	// have not been scanned yet.
	trail    []Literal
	trailLim []int
	vardata  []varData
	qhead    int

	// Whether the problem has reached a top level conflict. Once set, every
	// operation short-circuits.
	unsat bool

	// Garbage collection trigger: fraction of wasted arena words.
	garbageFrac float64

	Verbosity int

	// Statistics.
	TotalPropagations int64
	TotalEnqueues     int64
	TotalGCs          int64
}

type Options struct {
	PhaseSaving bool

	// Trigger arena garbage collection when this fraction of it is wasted.
	GarbageFrac float64

	// Store a variable-id abstraction bitmap on problem clauses (used to
	// prune subsumption checks).
	ExtraClauseFields bool

	Verbosity int
}

var DefaultOptions = Options{
	PhaseSaving: false,
	GarbageFrac: 0.20,
}

// NewDefaultSolver returns a solver configured with default options. This is
// equivalent to calling NewSolver with DefaultOptions.
func NewDefaultSolver() *Solver {
	return NewSolver(DefaultOptions)
}

func NewSolver(ops Options) *Solver {
	gf := ops.GarbageFrac
	if gf <= 0 {
		gf = DefaultOptions.GarbageFrac
	}
	ca := NewClauseAllocator(1024)
	ca.extraClauseField = ops.ExtraClauseFields
	return &Solver{
		ca:          ca,
		phaseSaving: ops.PhaseSaving,
		garbageFrac: gf,
		Verbosity:   ops.Verbosity,
	}
}

func (s *Solver) NumVariables() int {
	return len(s.assigns) / 2
}

func (s *Solver) NumAssigns() int {
	return len(s.trail)
}

func (s *Solver) NumClauses() int {
	return len(s.clauses)
}

// Unsat returns true if the solver has derived a top level conflict.
func (s *Solver) Unsat() bool {
	return s.unsat
}

func (s *Solver) VarValue(x int) LBool {
	return s.assigns[PositiveLiteral(x)]
}

func (s *Solver) LitValue(l Literal) LBool {
	return s.assigns[l]
}

// SavedPhase returns the polarity the variable had when its assignment was
// last undone, or Unknown if it was never assigned or phase saving is off.
func (s *Solver) SavedPhase(x int) LBool {
	return s.phases[x]
}

// AddVariable allocates a fresh unassigned variable and returns its ID.
func (s *Solver) AddVariable() int {
	index := s.NumVariables()

	// One for each literal.
	s.watchers = append(s.watchers, nil)
	s.watchers = append(s.watchers, nil)
	s.assigns = append(s.assigns, Unknown)
	s.assigns = append(s.assigns, Unknown)

	s.vardata = append(s.vardata, varData{RefUndef, -1})
	s.phases = append(s.phases, Unknown)
	return index
}

// Watch registers clause c to be awaken when Literal watch is assigned to
// true.
func (s *Solver) Watch(c ClauseRef, watch Literal, guard Literal) {
	s.watchers[watch] = append(s.watchers[watch], watcher{
		clause: c,
		guard:  guard,
	})
}

// Unwatch removes clause c from the list of watchers.
func (s *Solver) Unwatch(c ClauseRef, watch Literal) {
	j := 0
	for i := 0; i < len(s.watchers[watch]); i++ {
		if s.watchers[watch][i].clause != c {
			s.watchers[watch][j] = s.watchers[watch][i]
			j++
		}
	}
	s.watchers[watch] = s.watchers[watch][:j]
}

func (s *Solver) attachClause(ref ClauseRef) {
	c := s.ca.Clause(ref)
	s.Watch(ref, c.Lit(0).Opposite(), c.Lit(1))
	s.Watch(ref, c.Lit(1).Opposite(), c.Lit(0))
}

func (s *Solver) detachClause(ref ClauseRef) {
	c := s.ca.Clause(ref)
	s.Unwatch(ref, c.Lit(0).Opposite())
	s.Unwatch(ref, c.Lit(1).Opposite())
}

// locked returns true if the clause is the reason of its first literal's
// assignment.
func (s *Solver) locked(ref ClauseRef) bool {
	c := s.ca.Clause(ref)
	return s.vardata[c.Lit(0).VarID()].reason == ref
}

func (s *Solver) removeClause(ref ClauseRef) {
	s.detachClause(ref)
	if s.locked(ref) {
		c := s.ca.Clause(ref)
		s.vardata[c.Lit(0).VarID()].reason = RefUndef
	}
	s.ca.Clause(ref).SetMark(MarkRemoved)
	s.ca.Free(ref)
}

// AddClause adds a problem clause. Clauses can only be added at the root
// level. Tautological and already-satisfied clauses are dropped; an empty or
// immediately conflicting clause makes the problem unsatisfiable.
func (s *Solver) AddClause(clause []Literal) error {
	if s.DecisionLevel() != 0 {
		return fmt.Errorf("can only add clauses at the root level")
	}
	if s.unsat {
		return nil
	}

	ps := append([]Literal(nil), clause...)
	if len(ps) > 2 {
		sort.Slice(ps, func(i, j int) bool { return ps[i] < ps[j] })
	}

	// Drop duplicate and falsified literals. Sorted input makes duplicates
	// and opposites adjacent; a two-literal clause has them adjacent without
	// sorting.
	j, prev := 0, litUndef
	for _, p := range ps {
		if s.LitValue(p) == True || p == prev.Opposite() {
			return nil // clause is always true
		}
		if s.LitValue(p) != False && p != prev {
			ps[j] = p
			j++
			prev = p
		}
	}
	ps = ps[:j]

	switch len(ps) {
	case 0:
		s.unsat = true
	case 1:
		// Directly enqueue unit facts.
		if !s.Enqueue(ps[0], RefUndef) || s.Propagate() != RefUndef {
			s.unsat = true
		}
	default:
		ref := s.ca.Alloc(ps, false)
		s.clauses = append(s.clauses, ref)
		s.attachClause(ref)
	}

	return nil
}

func (s *Solver) DecisionLevel() int {
	return len(s.trailLim)
}

// NewDecisionLevel opens a new decision level.
func (s *Solver) NewDecisionLevel() {
	s.trailLim = append(s.trailLim, len(s.trail))
}

// UncheckedEnqueue assigns literal l with the given reason clause and puts it
// on the trail. The literal must be unassigned.
func (s *Solver) UncheckedEnqueue(l Literal, from ClauseRef) {
	if s.LitValue(l).Known() {
		log.Fatalf("enqueueing already assigned literal %s", l)
	}
	s.assigns[l] = True
	s.assigns[l.Opposite()] = False
	s.vardata[l.VarID()] = varData{from, s.DecisionLevel()}
	s.trail = append(s.trail, l)
	s.TotalEnqueues++
}

// Enqueue assigns literal l unless it already is. It returns false if the
// literal is falsified by the current assignment.
func (s *Solver) Enqueue(l Literal, from ClauseRef) bool {
	switch s.LitValue(l) {
	case False:
		return false // conflicting assignment
	case True:
		return true // already assigned
	default:
		s.UncheckedEnqueue(l, from)
		return true
	}
}

// Propagate performs unit propagation over all unprocessed trail literals.
// It returns the conflicting clause, or RefUndef if propagation completes
// without conflict. On conflict, the remaining queue is drained.
func (s *Solver) Propagate() ClauseRef {
	confl := RefUndef

	for s.qhead < len(s.trail) {
		p := s.trail[s.qhead] // p is the literal that became true
		s.qhead++
		s.TotalPropagations++
		falseLit := p.Opposite()

		ws := s.watchers[p]
		i, j := 0, 0
	nextWatcher:
		for i < len(ws) {
			w := ws[i]

			// No need to load the clause if its guard is already true.
			if s.LitValue(w.guard) == True {
				ws[j] = w
				i++
				j++
				continue
			}
			i++

			// Make sure the false literal is in position 1.
			c := s.ca.Clause(w.clause)
			if c.Lit(0) == falseLit {
				c.SetLit(0, c.Lit(1))
				c.SetLit(1, falseLit)
			}

			// If the first watched literal is true, then the clause is
			// already satisfied.
			first := c.Lit(0)
			if first != w.guard && s.LitValue(first) == True {
				ws[j] = watcher{w.clause, first}
				j++
				continue
			}

			// Look for a new literal to watch.
			for k := 2; k < c.Len(); k++ {
				if s.LitValue(c.Lit(k)) != False {
					c.SetLit(1, c.Lit(k))
					c.SetLit(k, falseLit)
					s.Watch(w.clause, c.Lit(1).Opposite(), first)
					continue nextWatcher
				}
			}

			// The clause is unit under the current assignment: the first
			// watched literal must be true if all other literals are false.
			ws[j] = watcher{w.clause, first}
			j++
			if s.LitValue(first) == False {
				confl = w.clause
				s.qhead = len(s.trail)
				// Copy the remaining watchers and stop.
				for i < len(ws) {
					ws[j] = ws[i]
					i++
					j++
				}
			} else {
				s.UncheckedEnqueue(first, w.clause)
			}
		}
		s.watchers[p] = ws[:j]

		if confl != RefUndef {
			break
		}
	}

	return confl
}

func (s *Solver) undoOne() {
	l := s.trail[len(s.trail)-1]
	v := l.VarID()

	if s.phaseSaving {
		s.phases[v] = s.VarValue(v)
	}
	s.assigns[l] = Unknown
	s.assigns[l.Opposite()] = Unknown
	s.vardata[v] = varData{RefUndef, -1}

	s.trail = s.trail[:len(s.trail)-1]
}

// Assume opens a new decision level and enqueues l as a decision.
func (s *Solver) Assume(l Literal) bool {
	s.NewDecisionLevel()
	return s.Enqueue(l, RefUndef)
}

func (s *Solver) cancel() {
	c := len(s.trail) - s.trailLim[len(s.trailLim)-1]
	for ; c != 0; c-- {
		s.undoOne()
	}
	s.trailLim = s.trailLim[:len(s.trailLim)-1]
}

// CancelUntil undoes all trail entries above the given decision level and
// resets the propagation frontier.
func (s *Solver) CancelUntil(level int) {
	for s.DecisionLevel() > level {
		s.cancel()
	}
	s.qhead = len(s.trail)
}

// Simplify propagates pending root-level facts and removes clauses that are
// satisfied at the root level. It returns false if the problem is
// unsatisfiable.
func (s *Solver) Simplify() bool {
	if l := s.DecisionLevel(); l != 0 {
		log.Fatalf("Simplify called on non root-level: %d", l)
	}

	if s.unsat || s.Propagate() != RefUndef {
		s.unsat = true
		return false
	}

	s.removeSatisfied(&s.clauses)
	s.checkGarbage()

	return true
}

// removeSatisfied removes the clauses of the given list that are satisfied at
// the root level.
func (s *Solver) removeSatisfied(refsPtr *[]ClauseRef) {
	refs := *refsPtr
	j := 0
	for i := 0; i < len(refs); i++ {
		if s.satisfied(refs[i]) {
			s.removeClause(refs[i])
		} else {
			refs[j] = refs[i]
			j++
		}
	}
	*refsPtr = refs[:j]
}

func (s *Solver) satisfied(ref ClauseRef) bool {
	c := s.ca.Clause(ref)
	for i := 0; i < c.Len(); i++ {
		if s.LitValue(c.Lit(i)) == True {
			return true
		}
	}
	return false
}

// Occurring reports, per variable, whether it occurs in at least one problem
// clause. Variables whose every occurrence was a root-level unit do not count
// as occurring; they are assigned and filtered out by pool construction
// anyway.
func (s *Solver) Occurring() []bool {
	occ := make([]bool, s.NumVariables())
	for _, ref := range s.clauses {
		c := s.ca.Clause(ref)
		for i := 0; i < c.Len(); i++ {
			occ[c.Lit(i).VarID()] = true
		}
	}
	return occ
}

func (s *Solver) checkGarbage() {
	if float64(s.ca.Wasted()) > float64(s.ca.Len())*s.garbageFrac {
		s.garbageCollect()
	}
}

// garbageCollect relocates every live clause into a fresh allocator and
// updates all watcher, reason, and clause list references in lockstep.
func (s *Solver) garbageCollect() {
	to := NewClauseAllocator(s.ca.Len() - s.ca.Wasted())
	to.extraClauseField = s.ca.extraClauseField

	for lit := range s.watchers {
		for i := range s.watchers[lit] {
			s.ca.Reloc(&s.watchers[lit][i].clause, to)
		}
	}

	for _, l := range s.trail {
		v := l.VarID()
		if r := s.vardata[v].reason; r != RefUndef {
			if s.ca.Clause(r).Removed() {
				s.vardata[v].reason = RefUndef
			} else {
				s.ca.Reloc(&s.vardata[v].reason, to)
			}
		}
	}

	for i := range s.clauses {
		s.ca.Reloc(&s.clauses[i], to)
	}

	if s.Verbosity >= 2 {
		fmt.Printf("c garbage collection: %d -> %d words\n", s.ca.Len(), to.Len())
	}
	s.ca = to
	s.TotalGCs++
}

// PrintStats writes kernel counters to stdout as DIMACS comment lines.
func (s *Solver) PrintStats() {
	fmt.Printf("c variables:    %12d\n", s.NumVariables())
	fmt.Printf("c clauses:      %12d\n", s.NumClauses())
	fmt.Printf("c enqueues:     %12d\n", s.TotalEnqueues)
	fmt.Printf("c propagations: %12d\n", s.TotalPropagations)
	fmt.Printf("c collections:  %12d\n", s.TotalGCs)
}
