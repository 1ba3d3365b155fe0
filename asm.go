package logi

import (
	"fmt"
	"strconv"
)

// Assembler builds a Program instruction by instruction, resolving label
// references in a final pass so code can jump forward. The reserved entry
// names ("do_fail", "do_redo", "do_succeed", "do_reset_hp_fail",
// "do_reset_framevar0_fail", "do_not_reached") resolve to their entry
// addresses, and a decimal operand names a code address directly, so code
// the disassembler prints reassembles as is.
type Assembler struct {
	code   []instr
	labels map[string]CodeAddr
	refs   []labelRef
}

type labelRef struct {
	pc    CodeAddr
	label string
}

var entryLabels = map[string]CodeAddr{
	"do_fail":                 DoFail,
	"do_redo":                 DoRedo,
	"do_succeed":              DoSucceed,
	"do_reset_hp_fail":        DoResetHPFail,
	"do_reset_framevar0_fail": DoResetFramevar0Fail,
	"do_not_reached":          DoNotReached,
}

// NewAssembler creates an empty assembler.
func NewAssembler() *Assembler {
	return &Assembler{labels: map[string]CodeAddr{}}
}

func (a *Assembler) pc() CodeAddr {
	return CodeAddr(len(a.code))
}

func (a *Assembler) emit(op opcode, v interface{}) {
	a.code = append(a.code, instr{op, v})
}

func (a *Assembler) ref(label string) {
	a.refs = append(a.refs, labelRef{a.pc(), label})
}

// Label defines name at the current address.
func (a *Assembler) Label(name string) *Assembler {
	a.labels[name] = a.pc()
	return a
}

func (a *Assembler) Nop() *Assembler {
	a.emit(opnop, nil)
	return a
}

// Call transfers control to label, setting the success continuation to the
// following instruction.
func (a *Assembler) Call(label string) *Assembler {
	a.ref(label)
	a.emit(opcall, label)
	return a
}

// Proceed returns to the success continuation.
func (a *Assembler) Proceed() *Assembler {
	a.emit(opproceed, nil)
	return a
}

func (a *Assembler) Jump(label string) *Assembler {
	a.ref(label)
	a.emit(opjump, label)
	return a
}

// JumpUnbound jumps to label when the term in slot dereferences to an unbound
// variable.
func (a *Assembler) JumpUnbound(slot Slot, label string) *Assembler {
	a.ref(label)
	a.emit(opjumpunbound, jumpUnboundArgs{slot: slot})
	return a
}

// Allocate pushes an environment frame with n slots.
func (a *Assembler) Allocate(n int) *Assembler {
	a.emit(opallocate, n)
	return a
}

// Deallocate pops the current environment frame.
func (a *Assembler) Deallocate() *Assembler {
	a.emit(opdeallocate, nil)
	return a
}

// Try pushes a choicepoint with the given framevar count whose next
// alternative starts at retry.
func (a *Assembler) Try(slots int, retry string) *Assembler {
	a.ref(retry)
	a.emit(optry, tryArgs{slots: slots})
	return a
}

// Cut commits to the current alternative by discarding the newest
// choicepoint without restoring its snapshot.
func (a *Assembler) Cut() *Assembler {
	a.emit(opcut, nil)
	return a
}

// NewVar allocates a fresh unbound variable and stores its address in slot.
func (a *Assembler) NewVar(slot Slot) *Assembler {
	a.emit(opnewvar, slot)
	return a
}

// Const allocates a constant cell (string atom or int64) into slot.
func (a *Assembler) Const(slot Slot, val Const) *Assembler {
	a.emit(opconst, constArgs{slot, val})
	return a
}

// Compound allocates a compound term whose arguments reference the terms in
// args, storing the functor address in slot.
func (a *Assembler) Compound(slot Slot, name string, args ...Slot) *Assembler {
	a.emit(opcompound, compoundArgs{slot, name, args})
	return a
}

// GetConst unifies the term in slot with a constant: binds an unbound
// variable (recording the binding on the trail), succeeds on an equal
// constant, and fails otherwise.
func (a *Assembler) GetConst(slot Slot, val Const) *Assembler {
	a.emit(opgetconst, constArgs{slot, val})
	return a
}

// Unify unifies the terms held in the two slots.
func (a *Assembler) Unify(x, y Slot) *Assembler {
	a.emit(opunify, [2]Slot{x, y})
	return a
}

// Move copies the address in src into dst.
func (a *Assembler) Move(dst, src Slot) *Assembler {
	a.emit(opmove, [2]Slot{dst, src})
	return a
}

// MarkHP records the current heap pointer as the solution watermark used by
// reset_hp_fail.
func (a *Assembler) MarkHP() *Assembler {
	a.emit(opmarkhp, nil)
	return a
}

func (a *Assembler) Succeed() *Assembler {
	a.emit(opsucceed, nil)
	return a
}

func (a *Assembler) Fail() *Assembler {
	a.emit(opfail, nil)
	return a
}

func (a *Assembler) Redo() *Assembler {
	a.emit(opredo, nil)
	return a
}

func (a *Assembler) ResetHPFail() *Assembler {
	a.emit(opresethpfail, nil)
	return a
}

func (a *Assembler) ResetFramevar0Fail() *Assembler {
	a.emit(opresetfv0fail, nil)
	return a
}

func (a *Assembler) NotReached() *Assembler {
	a.emit(opnotreached, nil)
	return a
}

// Assemble resolves all label references and returns the program.
func (a *Assembler) Assemble() (*Program, error) {
	for _, ref := range a.refs {
		addr, err := a.resolve(ref.label)
		if err != nil {
			return nil, err
		}
		c := &a.code[ref.pc]
		switch v := c.v.(type) {
		case string:
			c.v = addr
		case tryArgs:
			v.retry = addr
			c.v = v
		case jumpUnboundArgs:
			v.addr = addr
			c.v = v
		default:
			return nil, fmt.Errorf("unresolvable operand at %d: %v", ref.pc, c.v)
		}
	}
	labels := make(map[string]CodeAddr, len(a.labels))
	for name, addr := range a.labels {
		labels[name] = addr
	}
	return &Program{code: append([]instr(nil), a.code...), labels: labels}, nil
}

func (a *Assembler) resolve(label string) (CodeAddr, error) {
	if addr, ok := a.labels[label]; ok {
		return addr, nil
	}
	if addr, ok := entryLabels[label]; ok {
		return addr, nil
	}
	if n, err := strconv.Atoi(label); err == nil && n >= 0 {
		return CodeAddr(n), nil
	}
	return 0, &unknownLabelError{label}
}
