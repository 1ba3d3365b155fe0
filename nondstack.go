package logi

// choicepoint is a nondeterministic-stack frame: the register snapshot needed
// to retry an unexplored alternative, the retry address, and the framevar
// slots owned by the nondeterministic call that pushed it.
//
// The slots outlive the frame's presence on the stack: failing into the frame
// consumes it as a backtracking target, but the retried alternative still
// runs with the frame's slots as its current framevars.
type choicepoint struct {
	redoip CodeAddr // code address of the next alternative
	hp     Addr     // heap pointer at creation
	solhp  Addr     // solution heap watermark at creation
	tr     int      // trail pointer at creation
	sp     int      // deterministic stack pointer at creation
	succip CodeAddr // success continuation at creation
	slots  []Addr   // framevars; slot 0 is the reset_framevar0_fail target
	prevfv []Addr   // framevars current before this frame was pushed
}

// nondStack is the stack of choicepoints. It grows on choicepoint creation
// and shrinks when a choicepoint is consumed, either by failing into it or by
// being cut away on a deterministic commit.
type nondStack struct {
	cps   []choicepoint
	limit int
}

func newNondStack(limit int) *nondStack {
	return &nondStack{limit: limit}
}

// maxfr returns the nondeterministic stack pointer: the live choicepoint
// count.
func (s *nondStack) maxfr() int {
	return len(s.cps)
}

func (s *nondStack) empty() bool {
	return len(s.cps) == 0
}

func (s *nondStack) full() bool {
	return len(s.cps) >= s.limit
}

func (s *nondStack) push(cp choicepoint) {
	s.cps = append(s.cps, cp)
}

// top returns the newest live choicepoint, or nil when none remains.
func (s *nondStack) top() *choicepoint {
	if len(s.cps) == 0 {
		return nil
	}
	return &s.cps[len(s.cps)-1]
}

// pop removes and returns the newest choicepoint.
func (s *nondStack) pop() choicepoint {
	cp := s.cps[len(s.cps)-1]
	s.cps = s.cps[:len(s.cps)-1]
	return cp
}

func (s *nondStack) reset() {
	s.cps = s.cps[:0]
}
