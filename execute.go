package logi

// execute runs the instruction at PC. Ordinary instructions advance or jump;
// control primitives hand over to perform. Everything here mutates heap,
// trail, and stacks only through the machine's own accessors so that every
// touch point can emit its debug diagnostics.
func (m *Machine) execute() (Status, error) {
	c := m.prog.code[m.pc]
	m.debugProg(m.pc, c)
	switch c.op {
	case opnop:
		m.pc++
	case opcall:
		target := c.v.(CodeAddr)
		m.succip = m.pc + 1
		m.debugCall(target)
		m.pc = target
	case opproceed:
		m.debugGoto(m.succip, "proceed")
		if m.succip == doEngineDone {
			return m.succeedEngine()
		}
		m.pc = m.succip
	case opjump:
		target := c.v.(CodeAddr)
		m.debugGoto(target, "jump")
		m.pc = target
	case opjumpunbound:
		v := c.v.(jumpUnboundArgs)
		a, err := m.slotRaw(v.slot)
		if err != nil {
			return m.fatal(err)
		}
		if a != InvalidAddr {
			if a, err = m.derefChecked(a); err != nil {
				return m.fatal(err)
			}
		}
		if a == InvalidAddr || m.heap.at(a).Tag == TagUnbound {
			m.debugGoto(v.addr, "jumpunbound")
			m.pc = v.addr
		} else {
			m.pc++
		}
	case opallocate:
		n := c.v.(int)
		if m.det.full(n) {
			return m.fatal(&stackOverflowError{m.errState(), "det stack", m.det.limit})
		}
		m.det.push(m.succip, n)
		m.debugDetStack("push", n)
		m.pc++
	case opdeallocate:
		if m.det.empty() {
			return m.fatal(&noFrameError{m.errState(), c.op})
		}
		m.succip = m.det.pop()
		m.debugDetStack("pop", 0)
		m.pc++
	case optry:
		v := c.v.(tryArgs)
		if m.nond.full() {
			return m.fatal(&stackOverflowError{m.errState(), "nondet stack", m.nond.limit})
		}
		cp := choicepoint{
			redoip: v.retry,
			hp:     m.heap.hp(),
			solhp:  m.solhp,
			tr:     m.trail.tr(),
			sp:     m.det.sp(),
			succip: m.succip,
			slots:  newSlots(v.slots),
			prevfv: m.curfv,
		}
		m.nond.push(cp)
		m.curfv = m.nond.top().slots
		m.debugNondStack("push", m.nond.top())
		m.pc++
	case opcut:
		if m.nond.empty() {
			return m.fatal(&noChoicepointError{m.errState(), c.op})
		}
		cp := m.nond.pop()
		m.curfv = cp.prevfv
		m.debugNondStack("cut", &cp)
		m.pc++
	case opnewvar:
		slot := c.v.(Slot)
		addr, err := m.allocCells(1)
		if err != nil {
			return m.fatal(err)
		}
		if err := m.slotSet(slot, addr); err != nil {
			return m.fatal(err)
		}
		m.pc++
	case opconst:
		v := c.v.(constArgs)
		addr, err := m.allocCells(1)
		if err != nil {
			return m.fatal(err)
		}
		m.heap.set(addr, constCell(v.val))
		if err := m.slotSet(v.slot, addr); err != nil {
			return m.fatal(err)
		}
		m.pc++
	case opcompound:
		v := c.v.(compoundArgs)
		addr, err := m.allocCells(1 + len(v.args))
		if err != nil {
			return m.fatal(err)
		}
		m.heap.set(addr, Cell{Tag: TagFunctor, Atom: v.name, Arity: len(v.args)})
		for i, s := range v.args {
			arg, err := m.slotGet(s)
			if err != nil {
				return m.fatal(err)
			}
			if _, err = m.derefChecked(arg); err != nil {
				return m.fatal(err)
			}
			m.heap.set(addr+1+Addr(i), Cell{Tag: TagRef, Ref: arg})
		}
		if err := m.slotSet(v.slot, addr); err != nil {
			return m.fatal(err)
		}
		m.pc++
	case opgetconst:
		v := c.v.(constArgs)
		a, err := m.slotGet(v.slot)
		if err != nil {
			return m.fatal(err)
		}
		if a, err = m.derefChecked(a); err != nil {
			return m.fatal(err)
		}
		cell := m.heap.at(a)
		want := constCell(v.val)
		switch {
		case cell.Tag == TagUnbound:
			if err := m.bind(a, want); err != nil {
				return m.fatal(err)
			}
			m.pc++
		case cell.Tag == want.Tag && cell.Atom == want.Atom && cell.Int == want.Int:
			m.pc++
		default:
			return m.perform(contFail)
		}
	case opunify:
		v := c.v.([2]Slot)
		x, err := m.slotGet(v[0])
		if err != nil {
			return m.fatal(err)
		}
		y, err := m.slotGet(v[1])
		if err != nil {
			return m.fatal(err)
		}
		if _, err = m.derefChecked(x); err != nil {
			return m.fatal(err)
		}
		if _, err = m.derefChecked(y); err != nil {
			return m.fatal(err)
		}
		ok, uerr := m.unify(x, y)
		if uerr != nil {
			return m.fatal(uerr)
		}
		if !ok {
			return m.perform(contFail)
		}
		m.pc++
	case opmove:
		v := c.v.([2]Slot)
		src, err := m.slotGet(v[1])
		if err != nil {
			return m.fatal(err)
		}
		if err := m.slotSet(v[0], src); err != nil {
			return m.fatal(err)
		}
		m.pc++
	case opmarkhp:
		m.solhp = m.heap.hp()
		m.pc++
	case opsucceed:
		return m.perform(contSucceed)
	case opfail:
		return m.perform(contFail)
	case opredo:
		return m.perform(contRedo)
	case opresethpfail:
		return m.perform(contResetHPFail)
	case opresetfv0fail:
		return m.perform(contResetFramevar0Fail)
	case opnotreached:
		return m.perform(contNotReached)
	default:
		panic(c.op)
	}
	return m.status, nil
}

func newSlots(n int) []Addr {
	slots := make([]Addr, n)
	for i := range slots {
		slots[i] = InvalidAddr
	}
	return slots
}

func constCell(v Const) Cell {
	switch v := v.(type) {
	case string:
		return Cell{Tag: TagAtom, Atom: v}
	case int64:
		return Cell{Tag: TagInt, Int: v}
	case int:
		return Cell{Tag: TagInt, Int: int64(v)}
	default:
		panic(v)
	}
}

// derefChecked follows reference chains like deref but reports a dangling
// address as a fatal engine error instead of panicking. Slots are not
// trailed, so a slot surviving a backtrack can hold an address above the
// rewound heap pointer; code that reads such a slot is malformed.
func (m *Machine) derefChecked(a Addr) (Addr, EngineError) {
	if a < 0 || int(a) >= len(m.heap.cells) {
		return InvalidAddr, &badHeapAddrError{m.errState(), a}
	}
	return m.heap.deref(a), nil
}

// allocCells bump-allocates n cells, reporting heap exhaustion as fatal.
func (m *Machine) allocCells(n int) (Addr, EngineError) {
	if m.heap.full(n) {
		return InvalidAddr, &heapOverflowError{m.errState(), m.heap.limit}
	}
	addr := m.heap.alloc(n)
	m.debugHeap(addr, n)
	return addr, nil
}

// bind destructively binds the cell at addr. The binding is recorded on the
// trail whenever a live choicepoint exists, so backtracking can undo it.
func (m *Machine) bind(addr Addr, cell Cell) EngineError {
	if !m.nond.empty() {
		if m.trail.full() {
			return &stackOverflowError{m.errState(), "trail", m.trail.limit}
		}
		m.trail.push(addr)
		m.debugTrail(addr)
	}
	m.heap.set(addr, cell)
	m.debugBind(addr, cell)
	return nil
}

// unify unifies the terms rooted at x and y without an occurs check, binding
// unbound variables (younger to older) and trailing every binding. It uses an
// explicit worklist rather than recursion.
func (m *Machine) unify(x, y Addr) (bool, EngineError) {
	work := [][2]Addr{{x, y}}
	for len(work) > 0 {
		pair := work[len(work)-1]
		work = work[:len(work)-1]
		a, b := m.heap.deref(pair[0]), m.heap.deref(pair[1])
		if a == b {
			continue
		}
		ca, cb := m.heap.at(a), m.heap.at(b)
		switch {
		case ca.Tag == TagUnbound && cb.Tag == TagUnbound:
			// Bind the younger variable to the older one so the
			// binding survives as long as possible.
			if a < b {
				a, b = b, a
			}
			if err := m.bind(a, Cell{Tag: TagRef, Ref: b}); err != nil {
				return false, err
			}
		case ca.Tag == TagUnbound:
			if err := m.bind(a, Cell{Tag: TagRef, Ref: b}); err != nil {
				return false, err
			}
		case cb.Tag == TagUnbound:
			if err := m.bind(b, Cell{Tag: TagRef, Ref: a}); err != nil {
				return false, err
			}
		case ca.Tag == TagAtom && cb.Tag == TagAtom:
			if ca.Atom != cb.Atom {
				return false, nil
			}
		case ca.Tag == TagInt && cb.Tag == TagInt:
			if ca.Int != cb.Int {
				return false, nil
			}
		case ca.Tag == TagFunctor && cb.Tag == TagFunctor:
			if ca.Atom != cb.Atom || ca.Arity != cb.Arity {
				return false, nil
			}
			for i := 0; i < ca.Arity; i++ {
				work = append(work, [2]Addr{a + 1 + Addr(i), b + 1 + Addr(i)})
			}
		default:
			return false, nil
		}
	}
	return true, nil
}

// slotGet reads a slot, requiring it to have been written.
func (m *Machine) slotGet(s Slot) (Addr, EngineError) {
	v, err := m.slotRaw(s)
	if err != nil {
		return InvalidAddr, err
	}
	if v == InvalidAddr {
		return InvalidAddr, &emptySlotError{m.errState(), s}
	}
	return v, nil
}

// slotRaw reads a slot without the written check; an unwritten slot reads as
// InvalidAddr.
func (m *Machine) slotRaw(s Slot) (Addr, EngineError) {
	if s.Framevar {
		if m.curfv == nil {
			return InvalidAddr, &noSlotStorageError{m.errState(), s}
		}
		if s.Index < 0 || s.Index >= len(m.curfv) {
			return InvalidAddr, &badSlotError{m.errState(), s}
		}
		return m.curfv[s.Index], nil
	}
	f := m.det.top()
	if f == nil {
		return InvalidAddr, &noSlotStorageError{m.errState(), s}
	}
	if s.Index < 0 || s.Index >= f.size {
		return InvalidAddr, &badSlotError{m.errState(), s}
	}
	return m.det.slot(f, s.Index), nil
}

func (m *Machine) slotSet(s Slot, v Addr) EngineError {
	if s.Framevar {
		if m.curfv == nil {
			return &noSlotStorageError{m.errState(), s}
		}
		if s.Index < 0 || s.Index >= len(m.curfv) {
			return &badSlotError{m.errState(), s}
		}
		m.curfv[s.Index] = v
		return nil
	}
	f := m.det.top()
	if f == nil {
		return &noSlotStorageError{m.errState(), s}
	}
	if s.Index < 0 || s.Index >= f.size {
		return &badSlotError{m.errState(), s}
	}
	m.det.setSlot(f, s.Index, v)
	return nil
}
