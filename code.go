package logi

import (
	"fmt"
	"io"
	"strings"
)

type instr struct {
	op opcode
	v  interface{}
}

type opcode int

const (
	opnop opcode = iota
	opcall
	opproceed
	opjump
	opjumpunbound
	opallocate
	opdeallocate
	optry
	opcut
	opnewvar
	opconst
	opcompound
	opgetconst
	opunify
	opmove
	opmarkhp
	opsucceed
	opfail
	opredo
	opresethpfail
	opresetfv0fail
	opnotreached
)

func (op opcode) String() string {
	switch op {
	case opnop:
		return "nop"
	case opcall:
		return "call"
	case opproceed:
		return "proceed"
	case opjump:
		return "jump"
	case opjumpunbound:
		return "jumpunbound"
	case opallocate:
		return "allocate"
	case opdeallocate:
		return "deallocate"
	case optry:
		return "try"
	case opcut:
		return "cut"
	case opnewvar:
		return "newvar"
	case opconst:
		return "const"
	case opcompound:
		return "compound"
	case opgetconst:
		return "getconst"
	case opunify:
		return "unify"
	case opmove:
		return "move"
	case opmarkhp:
		return "markhp"
	case opsucceed:
		return "succeed"
	case opfail:
		return "fail"
	case opredo:
		return "redo"
	case opresethpfail:
		return "reset_hp_fail"
	case opresetfv0fail:
		return "reset_framevar0_fail"
	case opnotreached:
		return "not_reached"
	default:
		panic(op)
	}
}

// Slot names a machine slot operand: an environment frame slot of the current
// deterministic frame, or a framevar of the newest choicepoint.
type Slot struct {
	Framevar bool
	Index    int
}

// EnvSlot names slot i of the current environment frame.
func EnvSlot(i int) Slot { return Slot{Index: i} }

// Framevar names framevar i of the newest choicepoint.
func Framevar(i int) Slot { return Slot{Framevar: true, Index: i} }

func (s Slot) String() string {
	if s.Framevar {
		return fmt.Sprintf("fv%d", s.Index)
	}
	return fmt.Sprintf("ev%d", s.Index)
}

// Instruction operand payloads. The dispatch loop casts instr.v to the type
// the opcode documents.
type (
	// tryArgs is the operand of optry: number of framevars the new
	// choicepoint owns and the retry address for its next alternative.
	tryArgs struct {
		slots int
		retry CodeAddr
	}
	// constArgs is the operand of opconst and opgetconst.
	constArgs struct {
		slot Slot
		val  Const
	}
	// compoundArgs is the operand of opcompound.
	compoundArgs struct {
		slot Slot
		name string
		args []Slot
	}
	// jumpUnboundArgs is the operand of opjumpunbound.
	jumpUnboundArgs struct {
		slot Slot
		addr CodeAddr
	}
)

// Program is an executable instruction sequence with a symbol table mapping
// labels to code addresses.
type Program struct {
	code   []instr
	labels map[string]CodeAddr
}

// Lookup resolves a label to its code address.
func (p *Program) Lookup(label string) (CodeAddr, bool) {
	addr, ok := p.labels[label]
	return addr, ok
}

// Len returns the instruction count.
func (p *Program) Len() int {
	return len(p.code)
}

// Disasm writes a textual disassembly of the whole program.
func (p *Program) Disasm(w io.Writer) {
	byAddr := make(map[CodeAddr][]string)
	for name, addr := range p.labels {
		byAddr[addr] = append(byAddr[addr], name)
	}
	for pc := range p.code {
		for _, name := range byAddr[CodeAddr(pc)] {
			fmt.Fprintf(w, "%s:\n", name)
		}
		fmt.Fprintf(w, "\t%d\t%s\n", pc, p.disasmInstr(CodeAddr(pc)))
	}
}

func (p *Program) disasmInstr(pc CodeAddr) string {
	c := p.code[pc]
	switch v := c.v.(type) {
	case nil:
		return c.op.String()
	case CodeAddr:
		return fmt.Sprintf("%s %s", c.op, v)
	case int:
		return fmt.Sprintf("%s %d", c.op, v)
	case Slot:
		return fmt.Sprintf("%s %s", c.op, v)
	case [2]Slot:
		return fmt.Sprintf("%s %s, %s", c.op, v[0], v[1])
	case tryArgs:
		return fmt.Sprintf("%s %d, %s", c.op, v.slots, v.retry)
	case constArgs:
		return fmt.Sprintf("%s %s, %s", c.op, v.slot, formatConst(v.val))
	case compoundArgs:
		args := make([]string, len(v.args))
		for i, s := range v.args {
			args[i] = s.String()
		}
		return fmt.Sprintf("%s %s, %s(%s)", c.op, v.slot, v.name, strings.Join(args, ", "))
	case jumpUnboundArgs:
		return fmt.Sprintf("%s %s, %s", c.op, v.slot, v.addr)
	default:
		return fmt.Sprintf("%s %v", c.op, v)
	}
}

func formatConst(v Const) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
