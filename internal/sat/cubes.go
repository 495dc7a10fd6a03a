package sat

import "log"

// A cube is a sign assignment to an ordered list of variables, represented as
// a slice of 0/1 ints where 1 means the variable is assumed true. Cube
// index 0 is the highest-order position: cubes enumerate in lexicographic
// order with 0 before 1.
//
// A cube is hard when propagating its literals, one decision level each on
// top of the root-level state, produces no conflict yet leaves at least one
// variable of the formula unassigned. Every other cube is decided by
// propagation alone: either some prefix conflicts (or forces the opposite
// polarity of a later literal), or the propagated assignment is complete.

// walk states of the assumption-tree enumerator.
type walkState uint8

const (
	descending walkState = iota
	ascending
	propagating
)

// HardCubes counts the hard cubes over the given ordered variables and
// returns the first min(limit, count) of them in lexicographic order. It
// walks the binary tree of sign assignments depth first, reusing the trail
// across cubes that share a prefix: a conflict at depth d prunes the 2^(k-d)
// leaves below it in one stroke.
//
// An empty variable list reports the single empty cube as hard. The solver is
// left at the root level on return; a solver in the unsat state reports no
// cubes. len(vars) must be below 64.
func (s *Solver) HardCubes(vars []int, limit int) (uint64, [][]int) {
	if len(vars) >= 64 {
		log.Fatalf("cube enumeration over %d variables overflows the count", len(vars))
	}
	if s.unsat {
		return 0, nil
	}
	s.CancelUntil(0)

	k := len(vars)
	if k == 0 {
		if limit > 0 {
			return 1, [][]int{{}}
		}
		return 1, nil
	}

	// assumps[i] is the literal the walk places at depth i+1 for the current
	// cube. All-zeros means all variables assumed false.
	assumps := make([]Literal, k)
	for i, v := range vars {
		assumps[i] = NegativeLiteral(v)
	}
	cube := make([]int, k)

	var total uint64
	var cubes [][]int

	state := descending
	for {
		switch state {
		case descending:
			if s.DecisionLevel() == k {
				// Reached a leaf without conflict. The cube is hard unless
				// propagation assigned every variable of the formula.
				if s.NumAssigns() < s.NumVariables() {
					if len(cubes) < limit {
						cubes = append(cubes, append([]int(nil), cube...))
					}
					total++
				}
				state = ascending
				break
			}
			for s.DecisionLevel() < k && state == descending {
				s.NewDecisionLevel()
				p := assumps[s.DecisionLevel()-1]
				switch s.LitValue(p) {
				case True:
					// Already implied by an earlier level; keep descending.
				case False:
					// An earlier level forced the opposite polarity: the
					// whole branch is decided.
					state = ascending
				case Unknown:
					s.UncheckedEnqueue(p, RefUndef)
					state = propagating
				default:
					log.Fatalf("bad value for literal %s", p)
				}
			}

		case ascending:
			// Find the rightmost 0 among the first DecisionLevel() sign
			// bits; it is the deepest branch with an unvisited sibling.
			i := s.DecisionLevel() // 1-based index
			for i > 0 && cube[i-1] == 1 {
				i--
			}
			if i == 0 {
				s.CancelUntil(0)
				return total, cubes
			}

			cube[i-1] = 1
			for j := i; j < k; j++ {
				cube[j] = 0
			}
			for j := i; j <= k; j++ {
				assumps[j-1] = MakeLiteral(vars[j-1], cube[j-1] == 1)
			}

			// Undo levels i..d; level i is re-decided with the new sign.
			s.CancelUntil(i - 1)
			state = descending

		case propagating:
			if s.Propagate() != RefUndef {
				state = ascending
			} else {
				state = descending
			}

		default:
			log.Fatalf("bad enumerator state: %d", state)
		}
	}
}

// HardCubesPropCheck is the independent oracle for HardCubes: it enumerates
// all 2^k sign assignments and checks each one from scratch with PropCheck.
// It must report exactly the same count and cubes as the tree walk; it is
// kept only for cross-checking and is exponentially slower on formulas where
// propagation prunes whole subtrees.
func (s *Solver) HardCubesPropCheck(vars []int, limit int) (uint64, [][]int) {
	if len(vars) >= 64 {
		log.Fatalf("cube enumeration over %d variables overflows the count", len(vars))
	}
	if s.unsat {
		return 0, nil
	}
	s.CancelUntil(0)

	k := len(vars)
	if k == 0 {
		if limit > 0 {
			return 1, [][]int{{}}
		}
		return 1, nil
	}

	aux := make([]int, k)
	assumps := make([]Literal, k)

	var total uint64
	var cubes [][]int

	for {
		for j := 0; j < k; j++ {
			assumps[j] = MakeLiteral(vars[j], aux[j] == 1)
		}

		props, ok := s.PropCheck(assumps)
		if ok && s.NumAssigns()+len(props) < s.NumVariables() {
			if len(cubes) < limit {
				cubes = append(cubes, append([]int(nil), aux...))
			}
			total++
		}

		// Advance to the next sign assignment in lexicographic order.
		g := k - 1
		for g >= 0 && aux[g] == 1 {
			g--
		}
		if g < 0 {
			return total, cubes
		}
		aux[g] = 1
		for j := g + 1; j < k; j++ {
			aux[j] = 0
		}
	}
}

// PropCheck propagates the given assumptions, one decision level each, on top
// of the root-level state. It returns the literals assigned beyond the
// current level (the assumptions' propagated extension, plus the asserting
// literal of the conflicting clause when propagation conflicts) and whether
// the assumptions survived: true when no assumption was found falsified and
// no conflict was derived.
//
// Phase saving is suspended for the duration of the check so that the probe
// does not disturb the saved polarities. The trail is restored before
// returning.
func (s *Solver) PropCheck(assumps []Literal) ([]Literal, bool) {
	if s.unsat {
		return nil, false
	}

	level := s.DecisionLevel()
	confl := RefUndef
	ok := true

	savedPhaseSaving := s.phaseSaving
	s.phaseSaving = false

	for i := 0; ok && confl == RefUndef && i < len(assumps); i++ {
		p := assumps[i]
		switch s.LitValue(p) {
		case False:
			ok = false
		case True:
			// Already implied; no new decision level needed.
		default:
			s.NewDecisionLevel()
			s.UncheckedEnqueue(p, RefUndef)
			confl = s.Propagate()
		}
	}

	var props []Literal
	if s.DecisionLevel() > level {
		for c := s.trailLim[level]; c < len(s.trail); c++ {
			props = append(props, s.trail[c])
		}
		if confl != RefUndef {
			props = append(props, s.ca.Clause(confl).Lit(0))
		}
		s.CancelUntil(level)
	}

	s.phaseSaving = savedPhaseSaving
	return props, ok && confl == RefUndef
}
