package sat

import (
	"log"
	"math"
)

// ClauseRef is an opaque handle to a clause stored in a ClauseAllocator. A
// reference remains valid until the allocator is garbage collected; a
// relocation pass rewrites every live reference in lockstep.
type ClauseRef uint32

// RefUndef is the null clause reference. It marks decisions and top-level
// units on the trail (no reason clause).
const RefUndef ClauseRef = math.MaxUint32

// Clause header layout, packed in a single uint32:
//
//	bits 0..1   mark (MarkLive = live, MarkRemoved = reclaimable)
//	bit  2      learnt
//	bit  3      has-extra (an extra word follows the header)
//	bit  4      relocated (the word after the header holds the new reference)
//	bits 5..31  size
const (
	hdrMarkMask  uint32 = 0x3
	hdrLearnt    uint32 = 1 << 2
	hdrHasExtra  uint32 = 1 << 3
	hdrRelocated uint32 = 1 << 4
	hdrSizeShift        = 5

	maxClauseSize = 1<<27 - 1
)

// Clause marks.
const (
	MarkLive    uint32 = 0
	MarkRemoved uint32 = 1
)

// ClauseAllocator is a bump allocator for clauses. Clauses are stored as
// consecutive uint32 words (header, optional extra word, literals) and are
// referenced by their offset in the region. Freeing a clause only accounts
// for the wasted words; the space is reclaimed when the solver relocates all
// live clauses into a fresh allocator.
type ClauseAllocator struct {
	data   []uint32
	wasted int

	// If true, problem clauses also carry an extra word holding a bitmap
	// abstraction of their variable ids (learnt clauses always carry an
	// extra word for their activity).
	extraClauseField bool
}

func NewClauseAllocator(capa int) *ClauseAllocator {
	if capa < 0 {
		capa = 0
	}
	return &ClauseAllocator{data: make([]uint32, 0, capa)}
}

// Len returns the number of words currently held by the allocator.
func (ca *ClauseAllocator) Len() int {
	return len(ca.data)
}

// Wasted returns the number of words occupied by freed clauses.
func (ca *ClauseAllocator) Wasted() int {
	return ca.wasted
}

// clauseWords returns the total footprint in words of a clause of the given
// size.
func clauseWords(size int, extra bool) int {
	n := 1 + size
	if extra {
		n++
	}
	return n
}

// abstraction returns a 32-bit bitmap of the clause's variable ids (modulo
// 32). Two clauses can only subsume each other if the abstraction of one is a
// superset of the other's.
func abstraction(lits []Literal) uint32 {
	abs := uint32(0)
	for _, l := range lits {
		abs |= 1 << (uint32(l.VarID()) & 31)
	}
	return abs
}

// Alloc stores a new clause and returns its reference. The literals are
// copied; the caller keeps ownership of the slice.
func (ca *ClauseAllocator) Alloc(lits []Literal, learnt bool) ClauseRef {
	if len(lits) > maxClauseSize {
		log.Fatalf("clause of size %d overflows the arena header", len(lits))
	}
	extra := learnt || ca.extraClauseField

	ref := ClauseRef(len(ca.data))
	if int(ref)+clauseWords(len(lits), extra) >= int(RefUndef) {
		log.Fatalf("clause allocator overflow: %d words", len(ca.data))
	}

	hdr := uint32(len(lits)) << hdrSizeShift
	if learnt {
		hdr |= hdrLearnt
	}
	if extra {
		hdr |= hdrHasExtra
	}
	ca.data = append(ca.data, hdr)
	if extra {
		if learnt {
			ca.data = append(ca.data, math.Float32bits(0))
		} else {
			ca.data = append(ca.data, abstraction(lits))
		}
	}
	for _, l := range lits {
		ca.data = append(ca.data, uint32(l))
	}
	return ref
}

// Clause returns an accessor for the referenced clause.
func (ca *ClauseAllocator) Clause(ref ClauseRef) Clause {
	if int(ref) >= len(ca.data) {
		log.Fatalf("clause reference %d outside allocator of %d words", ref, len(ca.data))
	}
	return Clause{ca: ca, ref: ref}
}

// Free marks the referenced clause's words as wasted. The clause must have
// been marked removed first; its words remain readable until the next
// garbage collection.
func (ca *ClauseAllocator) Free(ref ClauseRef) {
	c := ca.Clause(ref)
	if c.Mark() != MarkRemoved {
		log.Fatalf("freeing clause %d which is not marked removed", ref)
	}
	ca.wasted += clauseWords(c.Len(), c.HasExtra())
}

// Reloc moves the referenced clause into allocator to (unless it has already
// been moved) and updates the reference in place. Relocating every live
// reference of a solver and swapping allocators is the garbage collection
// step.
func (ca *ClauseAllocator) Reloc(ref *ClauseRef, to *ClauseAllocator) {
	c := ca.Clause(*ref)
	if c.relocated() {
		*ref = c.forward()
		return
	}

	lits := make([]Literal, c.Len())
	for i := range lits {
		lits[i] = c.Lit(i)
	}
	newRef := to.Alloc(lits, c.Learnt())
	if c.Learnt() {
		to.Clause(newRef).SetActivity(c.Activity())
	}
	c.setForward(newRef)
	*ref = newRef
}
