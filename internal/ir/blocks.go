package ir

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// BasicBlock is a run of instructions of one method that is entered only
// at its first instruction.
//
// The opcode stream itself has no blocks; they are recovered from the jump
// slots for the debug dump. A block starts at the first instruction of a
// method, at every jump target and after every control opcode.
type BasicBlock struct {
	// Label is "B<n>", numbered in code order.
	Label string

	// Start and End delimit the block: Code[Start:End].
	Start, End int

	// Successors are blocks that can execute after this one.
	Successors []*BasicBlock

	// Predecessors are blocks that can continue into this one.
	Predecessors []*BasicBlock
}

// AddSuccessor adds a successor block and updates its predecessor list.
func (bb *BasicBlock) AddSuccessor(succ *BasicBlock) {
	for _, s := range bb.Successors {
		if s == succ {
			return
		}
	}
	bb.Successors = append(bb.Successors, succ)
	succ.Predecessors = append(succ.Predecessors, bb)
}

// Blocks splits the instructions of method into basic blocks.
func (u *Unit) Blocks(method string) []*BasicBlock {
	var idx []int
	for i := range u.Code {
		if u.Code[i].Method == method {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return nil
	}

	leaders := map[int]bool{idx[0]: true}
	for n, i := range idx {
		js := u.Code[i].Jumps()
		for _, j := range js {
			leaders[j] = true
		}
		if len(js) > 0 && n+1 < len(idx) {
			leaders[idx[n+1]] = true
		}
	}

	starts := make([]int, 0, len(leaders))
	for i := range leaders {
		starts = append(starts, i)
	}
	sort.Ints(starts)

	last := idx[len(idx)-1] + 1
	blocks := make([]*BasicBlock, len(starts))
	byStart := make(map[int]*BasicBlock, len(starts))
	for n, s := range starts {
		end := last
		if n+1 < len(starts) {
			end = starts[n+1]
		}
		blocks[n] = &BasicBlock{Label: fmt.Sprintf("B%d", n), Start: s, End: end}
		byStart[s] = blocks[n]
	}

	for n, bb := range blocks {
		tail := &u.Code[bb.End-1]
		for _, j := range tail.Jumps() {
			if succ, ok := byStart[j]; ok {
				bb.AddSuccessor(succ)
			}
		}
		if n+1 < len(blocks) && tail.Op != "exit" {
			bb.AddSuccessor(blocks[n+1])
		}
	}
	return blocks
}

// String returns the block header, e.g. "B2: ; predecessors: B0, B1".
func (bb *BasicBlock) String() string {
	var sb strings.Builder
	sb.WriteString(bb.Label)
	sb.WriteString(":")
	if len(bb.Predecessors) > 0 {
		sb.WriteString(" ; predecessors: ")
		for i, pred := range bb.Predecessors {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(pred.Label)
		}
	}
	return sb.String()
}

// Print writes a readable listing of every method, split into blocks.
func (u *Unit) Print(w io.Writer) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", u.Kind, u.Name)
	for _, m := range u.Methods() {
		fmt.Fprintf(&sb, "method %s\n", m)
		for _, bb := range u.Blocks(m) {
			fmt.Fprintf(&sb, "  %s\n", bb)
			for i := bb.Start; i < bb.End; i++ {
				fmt.Fprintf(&sb, "    %3d: %s\n", i, u.Code[i].String())
			}
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
