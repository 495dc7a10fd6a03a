package sat

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func clauseLits(c Clause) []Literal {
	lits := make([]Literal, c.Len())
	for i := range lits {
		lits[i] = c.Lit(i)
	}
	return lits
}

func TestClauseAllocator_roundTrip(t *testing.T) {
	ca := NewClauseAllocator(0)
	lits := mkLits(1, -2, 3)

	ref := ca.Alloc(lits, false)
	c := ca.Clause(ref)

	if got, want := c.Len(), 3; got != want {
		t.Errorf("Len() = %d, want %d", got, want)
	}
	if c.Learnt() {
		t.Errorf("Learnt() = true, want false")
	}
	if c.Removed() {
		t.Errorf("Removed() = true, want false")
	}
	if diff := cmp.Diff(lits, clauseLits(c)); diff != "" {
		t.Errorf("literals mismatch (-want, +got):\n%s", diff)
	}
}

func TestClauseAllocator_learntActivity(t *testing.T) {
	ca := NewClauseAllocator(0)

	ref := ca.Alloc(mkLits(1, 2), true)
	c := ca.Clause(ref)

	if !c.Learnt() {
		t.Errorf("Learnt() = false, want true")
	}
	if got := c.Activity(); got != 0 {
		t.Errorf("Activity() = %f, want 0", got)
	}
	c.SetActivity(1.5)
	if got := c.Activity(); got != 1.5 {
		t.Errorf("Activity() = %f, want 1.5", got)
	}
	// The activity word must not leak into the literals.
	if diff := cmp.Diff(mkLits(1, 2), clauseLits(c)); diff != "" {
		t.Errorf("literals mismatch (-want, +got):\n%s", diff)
	}
}

func TestClauseAllocator_abstraction(t *testing.T) {
	ca := NewClauseAllocator(0)
	ca.extraClauseField = true

	// Variables 0, 1 and 33: 33 aliases bit 1 of the bitmap.
	ref := ca.Alloc([]Literal{PositiveLiteral(0), NegativeLiteral(1), PositiveLiteral(33)}, false)
	c := ca.Clause(ref)

	if got, want := c.Abstraction(), uint32(1<<0|1<<1); got != want {
		t.Errorf("Abstraction() = %#x, want %#x", got, want)
	}
	if diff := cmp.Diff([]Literal{PositiveLiteral(0), NegativeLiteral(1), PositiveLiteral(33)}, clauseLits(c)); diff != "" {
		t.Errorf("literals mismatch (-want, +got):\n%s", diff)
	}
}

func TestClauseAllocator_freeAccountsWastedWords(t *testing.T) {
	ca := NewClauseAllocator(0)

	ref := ca.Alloc(mkLits(1, 2, 3), false)
	ca.Alloc(mkLits(-1, -2), false)

	ca.Clause(ref).SetMark(MarkRemoved)
	ca.Free(ref)

	if got, want := ca.Wasted(), 4; got != want { // header + 3 literals
		t.Errorf("Wasted() = %d, want %d", got, want)
	}
}

func TestClauseAllocator_relocForwardsOnce(t *testing.T) {
	ca := NewClauseAllocator(0)
	to := NewClauseAllocator(0)

	ref := ca.Alloc(mkLits(1, -2, 3), true)
	ca.Clause(ref).SetActivity(2.5)

	ref1, ref2 := ref, ref
	ca.Reloc(&ref1, to)
	ca.Reloc(&ref2, to) // second relocation must reuse the forward pointer

	if ref1 != ref2 {
		t.Errorf("relocated references differ: %d vs %d", ref1, ref2)
	}
	c := to.Clause(ref1)
	if diff := cmp.Diff(mkLits(1, -2, 3), clauseLits(c)); diff != "" {
		t.Errorf("literals mismatch (-want, +got):\n%s", diff)
	}
	if got := c.Activity(); got != 2.5 {
		t.Errorf("Activity() = %f, want 2.5", got)
	}
	if got, want := to.Len(), 5; got != want { // one clause, no duplicate copy
		t.Errorf("to.Len() = %d, want %d", got, want)
	}
}
