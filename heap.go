package logi

// heap is the term arena. Allocation is sequential bump allocation; nothing is
// reclaimed in place. Backtracking rewinds hp to a choicepoint's saved mark,
// which logically discards every cell above it.
type heap struct {
	cells []Cell
	limit int
}

func newHeap(limit int) *heap {
	return &heap{cells: make([]Cell, 0, min(limit, initialHeapCap)), limit: limit}
}

const initialHeapCap = 1024

// hp returns the heap pointer: the address the next allocation will use.
func (h *heap) hp() Addr {
	return Addr(len(h.cells))
}

// alloc bump-allocates n cells and returns the address of the first.
// The caller checks the limit via full() before allocating.
func (h *heap) alloc(n int) Addr {
	addr := Addr(len(h.cells))
	for i := 0; i < n; i++ {
		h.cells = append(h.cells, Cell{Tag: TagUnbound})
	}
	return addr
}

func (h *heap) full(n int) bool {
	return len(h.cells)+n > h.limit
}

func (h *heap) at(addr Addr) Cell {
	return h.cells[addr]
}

func (h *heap) set(addr Addr, c Cell) {
	h.cells[addr] = c
}

// deref follows reference chains to the representative cell of a term.
func (h *heap) deref(addr Addr) Addr {
	for {
		c := h.cells[addr]
		if c.Tag != TagRef || c.Ref == addr {
			return addr
		}
		addr = c.Ref
	}
}

// rewind lowers the heap pointer back to mark. Cells above the mark are
// logically discarded; their storage is reused by later allocations.
func (h *heap) rewind(mark Addr) {
	if int(mark) < len(h.cells) {
		h.cells = h.cells[:mark]
	}
}

func (h *heap) reset() {
	h.cells = h.cells[:0]
}

// trail is the undo log of destructive bindings. Each entry names a cell that
// was unbound when the newest live choicepoint was created and has been bound
// since. Entries are undone in reverse creation order on backtracking.
type trail struct {
	entries []Addr
	limit   int
}

func newTrail(limit int) *trail {
	return &trail{limit: limit}
}

// tr returns the trail pointer.
func (t *trail) tr() int {
	return len(t.entries)
}

func (t *trail) full() bool {
	return len(t.entries) >= t.limit
}

func (t *trail) push(addr Addr) {
	t.entries = append(t.entries, addr)
}

// unwind undoes every entry above mark in strict reverse creation order,
// resetting each recorded cell to unbound, then truncates the log to mark.
// Entries at or below mark are never touched. An entry naming a cell at or
// above the heap pointer is dangling (the cell was discarded by a rewind
// past it); unwind stops there and reports the address so the engine can
// abort instead of writing out of bounds.
func (t *trail) unwind(h *heap, mark int) (Addr, bool) {
	for i := len(t.entries) - 1; i >= mark; i-- {
		addr := t.entries[i]
		if int(addr) >= len(h.cells) {
			return addr, false
		}
		h.set(addr, Cell{Tag: TagUnbound})
	}
	t.entries = t.entries[:mark]
	return InvalidAddr, true
}

func (t *trail) reset() {
	t.entries = t.entries[:0]
}
