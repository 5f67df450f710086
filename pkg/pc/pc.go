// Package pc implements the program-counter scheme that synchronises
// players without explicit message IDs: every send or expected receive is
// labelled with a deterministic snapshot of a hierarchical counter stack,
// and both ends of a message derive the same snapshot independently
// because the computation that produces it is otherwise identical at every
// honest player.
package pc

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Tag is an immutable snapshot of a ProgramCounter, usable as a map key.
type Tag string

// String renders the tag as dot-separated counters, e.g. "0.3.1".
func (t Tag) String() string { return string(t) }

// Bytes returns the big-endian u32 encoding of the tag's counters, as used
// in the wire frame layout (pkg/transport).
func (t Tag) Bytes() []byte {
	parts := strings.Split(string(t), ".")
	buf := make([]byte, 4*len(parts))
	for i, p := range parts {
		var v uint32
		fmt.Sscanf(p, "%d", &v)
		binary.BigEndian.PutUint32(buf[4*i:], v)
	}
	return buf
}

// ProgramCounter is a stack of unsigned counters, mutated by Increment,
// Fork and Unfork. It is never accessed from more than one goroutine at a
// time inside a single Runtime (see pkg/runtime), so no locking is
// required here; ProgramCounter itself is not safe for concurrent use.
type ProgramCounter struct {
	stack []uint32
}

// New returns a fresh program counter starting at [0].
func New() *ProgramCounter {
	return &ProgramCounter{stack: []uint32{0}}
}

// Increment advances the top counter. Every operation that sends or expects
// network data must call Increment before taking a Tag.
func (p *ProgramCounter) Increment() {
	p.stack[len(p.stack)-1]++
}

// Fork pushes a new, zeroed counter level. Every compound operation whose
// body issues nested sends must Fork before the body so that sibling calls
// at the outer level get distinct tags regardless of how many sends each
// child issues.
func (p *ProgramCounter) Fork() {
	p.stack = append(p.stack, 0)
}

// Unfork pops the top counter level. Must be paired with a prior Fork.
func (p *ProgramCounter) Unfork() {
	if len(p.stack) == 1 {
		panic("pc: Unfork called with no matching Fork")
	}
	p.stack = p.stack[:len(p.stack)-1]
}

// Tag snapshots the current stack.
func (p *ProgramCounter) Tag() Tag {
	parts := make([]string, len(p.stack))
	for i, v := range p.stack {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return Tag(strings.Join(parts, "."))
}

// Clone returns an independent copy of p, used to fork a private PC for a
// suspended/resumable operation (pkg/runtime's spawnPC and childPC): save
// the clone at suspend time, restore it, advance one step, and save again.
func (p *ProgramCounter) Clone() *ProgramCounter {
	stack := make([]uint32, len(p.stack))
	copy(stack, p.stack)
	return &ProgramCounter{stack: stack}
}

// Restore replaces p's stack with other's, for resuming a suspended
// operation from its saved snapshot.
func (p *ProgramCounter) Restore(other *ProgramCounter) {
	p.stack = make([]uint32, len(other.stack))
	copy(p.stack, other.stack)
}
