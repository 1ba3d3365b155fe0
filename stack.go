package logi

// envFrame is a deterministic-stack frame: local slot storage for a call with
// at most one solution. It owns no backtracking state.
type envFrame struct {
	succip CodeAddr // success continuation to restore on deallocate
	prev   int      // index of the previous frame, -1 at the bottom
	base   int      // first slot index in the shared slot arena
	size   int
}

// detStack holds environment frames. Frames are pushed on allocate and popped
// on deallocate; overflow is a configuration error, not a logical failure.
type detStack struct {
	frames []envFrame
	slots  []Addr
	cur    int // index of the current frame, -1 when empty
	limit  int // maximum slot count
}

func newDetStack(limit int) *detStack {
	return &detStack{cur: -1, limit: limit}
}

// sp returns the deterministic stack pointer: the current frame index plus
// one, so it grows on call and shrinks on return.
func (s *detStack) sp() int {
	return s.cur + 1
}

func (s *detStack) empty() bool {
	return s.cur < 0
}

func (s *detStack) full(n int) bool {
	return len(s.slots)+n > s.limit
}

func (s *detStack) push(succip CodeAddr, n int) {
	f := envFrame{succip: succip, prev: s.cur, base: len(s.slots), size: n}
	s.cur = len(s.frames)
	s.frames = append(s.frames, f)
	for i := 0; i < n; i++ {
		s.slots = append(s.slots, InvalidAddr)
	}
}

// pop removes the current frame and returns its saved success continuation.
func (s *detStack) pop() CodeAddr {
	f := s.frames[s.cur]
	s.frames = s.frames[:s.cur]
	s.slots = s.slots[:f.base]
	s.cur = f.prev
	return f.succip
}

// top returns the current frame, or nil when the stack is empty.
func (s *detStack) top() *envFrame {
	if s.cur < 0 {
		return nil
	}
	return &s.frames[s.cur]
}

func (s *detStack) slot(f *envFrame, i int) Addr {
	return s.slots[f.base+i]
}

func (s *detStack) setSlot(f *envFrame, i int, v Addr) {
	s.slots[f.base+i] = v
}

// truncate discards every frame above the frame index sp-1. Used when a
// choicepoint restores its saved deterministic stack pointer.
func (s *detStack) truncate(sp int) {
	if sp-1 < s.cur {
		s.cur = sp - 1
	}
	if s.cur+1 < len(s.frames) {
		s.frames = s.frames[:s.cur+1]
	}
	if s.cur >= 0 {
		f := s.frames[s.cur]
		s.slots = s.slots[:f.base+f.size]
	} else {
		s.slots = s.slots[:0]
	}
}

func (s *detStack) reset() {
	s.frames = s.frames[:0]
	s.slots = s.slots[:0]
	s.cur = -1
}
