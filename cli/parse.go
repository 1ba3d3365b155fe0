package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/logi-lang/logi"
)

// parseProgram assembles textual machine code. The syntax is the one the
// disassembler prints: one instruction per line, labels suffixed with a
// colon, operands separated by commas, comments from "#" to end of line.
// Jump targets may be labels, reserved entry names, or bare code addresses,
// so a disassembly reassembles unchanged.
func parseProgram(fname, src string) (*logi.Program, error) {
	a := logi.NewAssembler()
	for i, line := range strings.Split(src, "\n") {
		p := &lineParser{fname: fname, lnum: i + 1, line: line}
		if err := p.parse(a); err != nil {
			return nil, err
		}
	}
	prog, err := a.Assemble()
	if err != nil {
		return nil, fmt.Errorf("invalid program: %s: %s", fname, err)
	}
	return prog, nil
}

type lineParser struct {
	fname string
	lnum  int
	line  string
}

func (p *lineParser) parse(a *logi.Assembler) error {
	text := p.line
	if i := strings.IndexByte(text, '#'); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if nm, ok := strings.CutSuffix(text, ":"); ok {
		if !isIdent(nm) {
			return p.errorAt(0, "invalid label %q", nm)
		}
		a.Label(nm)
		return nil
	}
	// Disassembly listings carry a leading address column; no instruction
	// starts with a digit, so it can be dropped.
	if i := strings.IndexAny(text, " \t"); i > 0 && isNumber(text[:i]) {
		text = strings.TrimSpace(text[i:])
	}
	op, rest, _ := strings.Cut(text, " ")
	var operands []string
	if rest = strings.TrimSpace(rest); rest != "" {
		operands = splitOperands(rest)
	}
	return p.instr(a, op, operands)
}

// splitOperands splits on commas outside parentheses, so a compound operand
// like "f(ev0, ev1)" stays whole.
func splitOperands(s string) []string {
	var operands []string
	depth, start := 0, 0
	for i, c := range s {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				operands = append(operands, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(operands, strings.TrimSpace(s[start:]))
}

func (p *lineParser) instr(a *logi.Assembler, op string, operands []string) error {
	arity := func(n int) error {
		if len(operands) != n {
			return p.errorAt(0, "%s expects %d operand(s), got %d", op, n, len(operands))
		}
		return nil
	}
	switch op {
	case "nop":
		if err := arity(0); err != nil {
			return err
		}
		a.Nop()
	case "call":
		if err := arity(1); err != nil {
			return err
		}
		a.Call(operands[0])
	case "proceed":
		if err := arity(0); err != nil {
			return err
		}
		a.Proceed()
	case "jump":
		if err := arity(1); err != nil {
			return err
		}
		a.Jump(operands[0])
	case "jumpunbound":
		if err := arity(2); err != nil {
			return err
		}
		slot, err := p.slot(operands[0])
		if err != nil {
			return err
		}
		a.JumpUnbound(slot, operands[1])
	case "allocate":
		if err := arity(1); err != nil {
			return err
		}
		n, err := p.count(operands[0])
		if err != nil {
			return err
		}
		a.Allocate(n)
	case "deallocate":
		if err := arity(0); err != nil {
			return err
		}
		a.Deallocate()
	case "try":
		if err := arity(2); err != nil {
			return err
		}
		n, err := p.count(operands[0])
		if err != nil {
			return err
		}
		a.Try(n, operands[1])
	case "cut":
		if err := arity(0); err != nil {
			return err
		}
		a.Cut()
	case "newvar":
		if err := arity(1); err != nil {
			return err
		}
		slot, err := p.slot(operands[0])
		if err != nil {
			return err
		}
		a.NewVar(slot)
	case "const", "getconst":
		if err := arity(2); err != nil {
			return err
		}
		slot, err := p.slot(operands[0])
		if err != nil {
			return err
		}
		val, err := p.constVal(operands[1])
		if err != nil {
			return err
		}
		if op == "const" {
			a.Const(slot, val)
		} else {
			a.GetConst(slot, val)
		}
	case "compound":
		if err := arity(2); err != nil {
			return err
		}
		slot, err := p.slot(operands[0])
		if err != nil {
			return err
		}
		nm, args, err := p.compound(operands[1])
		if err != nil {
			return err
		}
		a.Compound(slot, nm, args...)
	case "unify", "move":
		if err := arity(2); err != nil {
			return err
		}
		x, err := p.slot(operands[0])
		if err != nil {
			return err
		}
		y, err := p.slot(operands[1])
		if err != nil {
			return err
		}
		if op == "unify" {
			a.Unify(x, y)
		} else {
			a.Move(x, y)
		}
	case "markhp":
		if err := arity(0); err != nil {
			return err
		}
		a.MarkHP()
	case "succeed":
		if err := arity(0); err != nil {
			return err
		}
		a.Succeed()
	case "fail":
		if err := arity(0); err != nil {
			return err
		}
		a.Fail()
	case "redo":
		if err := arity(0); err != nil {
			return err
		}
		a.Redo()
	case "reset_hp_fail":
		if err := arity(0); err != nil {
			return err
		}
		a.ResetHPFail()
	case "reset_framevar0_fail":
		if err := arity(0); err != nil {
			return err
		}
		a.ResetFramevar0Fail()
	case "not_reached":
		if err := arity(0); err != nil {
			return err
		}
		a.NotReached()
	default:
		return p.errorAt(strings.Index(p.line, op), "unknown instruction %q", op)
	}
	return nil
}

func (p *lineParser) slot(s string) (logi.Slot, error) {
	var framevar bool
	switch {
	case strings.HasPrefix(s, "ev"):
	case strings.HasPrefix(s, "fv"):
		framevar = true
	default:
		return logi.Slot{}, p.errorAt(strings.Index(p.line, s), "invalid slot %q", s)
	}
	i, err := strconv.Atoi(s[2:])
	if err != nil || i < 0 {
		return logi.Slot{}, p.errorAt(strings.Index(p.line, s), "invalid slot %q", s)
	}
	if framevar {
		return logi.Framevar(i), nil
	}
	return logi.EnvSlot(i), nil
}

func (p *lineParser) count(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, p.errorAt(strings.Index(p.line, s), "invalid count %q", s)
	}
	return n, nil
}

func (p *lineParser) constVal(s string) (logi.Const, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	if !isIdent(s) {
		return nil, p.errorAt(strings.Index(p.line, s), "invalid constant %q", s)
	}
	return s, nil
}

// compound parses "f(ev0, ev1)". Argument slots may be separated by commas,
// spaces, or both.
func (p *lineParser) compound(s string) (string, []logi.Slot, error) {
	i := strings.IndexByte(s, '(')
	if i < 0 || !strings.HasSuffix(s, ")") || !isIdent(s[:i]) {
		return "", nil, p.errorAt(strings.Index(p.line, s), "invalid compound %q", s)
	}
	var args []logi.Slot
	for _, f := range strings.FieldsFunc(s[i+1:len(s)-1], func(r rune) bool {
		return r == ',' || r == ' '
	}) {
		slot, err := p.slot(f)
		if err != nil {
			return "", nil, err
		}
		args = append(args, slot)
	}
	return s[:i], args, nil
}

func isNumber(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c == '_' ||
			i > 0 && '0' <= c && c <= '9') {
			return false
		}
	}
	return true
}

func (p *lineParser) errorAt(col int, format string, args ...interface{}) error {
	if col < 0 {
		col = 0
	}
	return &parseError{p.fname, p.lnum, p.line, col, fmt.Sprintf(format, args...)}
}

type parseError struct {
	fname string
	lnum  int
	line  string
	col   int
	msg   string
}

func (err *parseError) Error() string {
	l := strconv.Itoa(err.lnum)
	caret := runewidth.StringWidth(err.line[:err.col]) + len(l) + 4
	return fmt.Sprintf("invalid program: %s:%d\n    %s | %s\n    %*c  %s",
		err.fname, err.lnum, l, err.line, caret, '^', err.msg)
}
