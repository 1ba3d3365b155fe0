package logi

import (
	"fmt"
	"strconv"
	"strings"
)

// Addr is a heap address. The heap is an arena of tagged cells addressed by
// integer index, so addresses are trivially comparable and a backtrack can
// discard cells by lowering a high-water mark.
type Addr int

// InvalidAddr is the zero-value-adjacent sentinel for "no cell".
const InvalidAddr Addr = -1

// Tag discriminates the kind of a heap cell.
type Tag uint8

const (
	// TagUnbound marks a variable cell that has not been bound yet.
	TagUnbound Tag = iota
	// TagRef marks a variable cell bound to another cell.
	TagRef
	// TagAtom marks a constant symbol cell.
	TagAtom
	// TagInt marks a constant integer cell.
	TagInt
	// TagFunctor marks the head cell of a compound term; its arguments
	// occupy the immediately following cells as references.
	TagFunctor
)

func (t Tag) String() string {
	switch t {
	case TagUnbound:
		return "unbound"
	case TagRef:
		return "ref"
	case TagAtom:
		return "atom"
	case TagInt:
		return "int"
	case TagFunctor:
		return "functor"
	default:
		return "tag(" + strconv.Itoa(int(t)) + ")"
	}
}

// Cell is one tagged heap cell.
type Cell struct {
	Tag   Tag
	Ref   Addr   // TagRef target
	Atom  string // TagAtom, TagFunctor name
	Int   int64  // TagInt value
	Arity int    // TagFunctor argument count
}

func (c Cell) String() string {
	switch c.Tag {
	case TagUnbound:
		return "_"
	case TagRef:
		return "@" + strconv.Itoa(int(c.Ref))
	case TagAtom:
		return c.Atom
	case TagInt:
		return strconv.FormatInt(c.Int, 10)
	case TagFunctor:
		return c.Atom + "/" + strconv.Itoa(c.Arity)
	default:
		return fmt.Sprintf("cell(%s)", c.Tag)
	}
}

// Const is a constant term value carried by instructions: a string becomes an
// atom cell, an int64 an integer cell.
type Const interface{}

// readback renders the term rooted at addr as text, following references.
// Unbound variables print as _N where N is their heap address.
func (h *heap) readback(addr Addr) string {
	var sb strings.Builder
	h.readbackTo(&sb, addr, 0)
	return sb.String()
}

func (h *heap) readbackTo(sb *strings.Builder, addr Addr, depth int) {
	if depth > maxReadbackDepth {
		sb.WriteString("...")
		return
	}
	addr = h.deref(addr)
	c := h.at(addr)
	switch c.Tag {
	case TagUnbound:
		sb.WriteString("_")
		sb.WriteString(strconv.Itoa(int(addr)))
	case TagAtom:
		sb.WriteString(c.Atom)
	case TagInt:
		sb.WriteString(strconv.FormatInt(c.Int, 10))
	case TagFunctor:
		sb.WriteString(c.Atom)
		sb.WriteByte('(')
		for i := 0; i < c.Arity; i++ {
			if i > 0 {
				sb.WriteString(", ")
			}
			h.readbackTo(sb, addr+1+Addr(i), depth+1)
		}
		sb.WriteByte(')')
	default:
		sb.WriteString(c.String())
	}
}

// Cyclic terms cannot be built by the instruction set, but a depth limit keeps
// readback safe against corrupted heaps reported in fatal diagnostics.
const maxReadbackDepth = 64
