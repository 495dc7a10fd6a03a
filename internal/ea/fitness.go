package ea

import "fmt"

// Fitness scores a candidate backdoor. Rho is the fraction of sign
// assignments to the backdoor that unit propagation decides on its own; Hard
// counts the remaining ones. The scalar is 1 - Rho, so smaller is better and
// the search minimizes.
type Fitness struct {
	Fitness float64
	Rho     float64
	Hard    uint64
}

// Less orders fitness records by their scalar, ascending.
func (f Fitness) Less(other Fitness) bool {
	return f.Fitness < other.Fitness
}

// LessEq is the non-strict counterpart of Less. The (1+1) acceptance rule
// uses it so that neutral mutations still replace the current candidate.
func (f Fitness) LessEq(other Fitness) bool {
	return f.Fitness <= other.Fitness
}

func (f Fitness) String() string {
	return fmt.Sprintf("%v (rho=%v, hard=%d)", f.Fitness, f.Rho, f.Hard)
}
