package logi

// Iter is an interface for a solution iterator.
type Iter interface {
	Next() (interface{}, bool)
}

// Solution is one successful outcome of a computation, yielded by the
// iterator returned from Run. Inspect the machine between Next calls for
// bindings.
type Solution struct {
	// Seq is the 1-based solution number.
	Seq int
}

// Run transfers control to entry and returns an iterator over the
// computation's solutions. The first Next calls the engine; every further
// Next performs redo, resuming search at the newest live choicepoint. Next
// yields *Solution values, or an error on a fatal invariant violation, and
// reports false once the alternatives are exhausted.
func (m *Machine) Run(entry CodeAddr) Iter {
	return &solutionIter{m: m, entry: entry}
}

// RunEntry resolves a label and runs the engine at its address.
func (m *Machine) RunEntry(label string) Iter {
	entry, ok := m.prog.Lookup(label)
	if !ok {
		return &errorIter{&unknownEntryError{label}}
	}
	return m.Run(entry)
}

type solutionIter struct {
	m       *Machine
	entry   CodeAddr
	started bool
	done    bool
}

func (iter *solutionIter) Next() (interface{}, bool) {
	if iter.done {
		return nil, false
	}
	var (
		st  Status
		err error
	)
	if !iter.started {
		iter.started = true
		st, err = iter.m.CallEngine(iter.entry)
	} else {
		st, err = iter.m.Redo()
	}
	if err != nil {
		iter.done = true
		return err, true
	}
	switch st {
	case StatusSuccess:
		return &Solution{Seq: iter.m.Solutions()}, true
	default:
		iter.done = true
		return nil, false
	}
}

type errorIter struct {
	err error
}

func (iter *errorIter) Next() (interface{}, bool) {
	if iter.err == nil {
		return nil, false
	}
	err := iter.err
	iter.err = nil
	return err, true
}
