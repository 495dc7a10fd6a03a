package ea

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rhartert/rhobd/internal/sat"
)

// emptySlot marks a slot (or pool entry) that holds no variable.
const emptySlot = -1

// Instance is a candidate backdoor: a fixed-length vector of variable slots
// plus the pool of candidate variables not currently used. Mutation only ever
// swaps a slot with a pool entry, so the multiset data ∪ pool is invariant
// and a variable can never occupy two slots at once.
type Instance struct {
	data []int
	pool []int

	// Fitness of the current slot assignment, if it has been computed.
	// Invalidated by Copy and by mutation.
	cached *Fitness
}

func newInstance(data, pool []int) *Instance {
	return &Instance{data: data, pool: pool}
}

// NewEmptyInstance returns an instance with the given number of empty slots
// and no pool. Its fitness is infinite.
func NewEmptyInstance(size int) *Instance {
	data := make([]int, size)
	for i := range data {
		data[i] = emptySlot
	}
	return newInstance(data, nil)
}

// Copy returns a deep copy of the instance. The copy starts with no cached
// fitness.
func (in *Instance) Copy() *Instance {
	return newInstance(
		append([]int(nil), in.data...),
		append([]int(nil), in.pool...),
	)
}

// Size returns the number of slots.
func (in *Instance) Size() int {
	return len(in.data)
}

// NumVariables returns the number of slots holding a variable.
func (in *Instance) NumVariables() int {
	count := 0
	for _, x := range in.data {
		if x != emptySlot {
			count++
		}
	}
	return count
}

// Variables returns the canonical form of the instance: its variables as a
// sorted slice.
func (in *Instance) Variables() []int {
	variables := make([]int, 0, len(in.data))
	for _, x := range in.data {
		if x != emptySlot {
			variables = append(variables, x)
		}
	}
	sort.Ints(variables)
	return variables
}

// Bitmask projects the instance's variables on a bitset over [0, numVars).
func (in *Instance) Bitmask(numVars int) []bool {
	bits := make([]bool, numVars)
	for _, x := range in.data {
		if x != emptySlot {
			bits[x] = true
		}
	}
	return bits
}

// CalculateFitness scores the instance against the solver's root-level state
// by enumerating the hard cubes of its variable set. An instance with no
// variables scores +Inf so that the search never drifts to the empty set.
// The result is cached on the instance.
func (in *Instance) CalculateFitness(solver *sat.Solver) Fitness {
	if in.cached != nil {
		return *in.cached
	}

	vars := in.Variables()
	var fit Fitness
	if len(vars) == 0 {
		fit = Fitness{Fitness: math.Inf(1), Rho: 0, Hard: 0}
	} else {
		hard, _ := solver.HardCubes(vars, 0)
		total := float64(uint64(1) << uint(len(vars)))
		rho := 1 - float64(hard)/total
		fit = Fitness{Fitness: 1 - rho, Rho: rho, Hard: hard}
	}

	in.cached = &fit
	return fit
}

func (in *Instance) String() string {
	vars := in.Variables()
	sb := strings.Builder{}
	sb.WriteByte('[')
	for i, v := range vars {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(v))
	}
	sb.WriteByte(']')
	return sb.String()
}
