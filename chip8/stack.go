package chip8

const (
	STACK_LIMIT = 16 // Maximum call depth
)

// Stack holds subroutine return addresses.
type Stack struct {
	Data []uint16
}

func (s *Stack) Push(addr uint16) {
	s.Data = append(s.Data, addr)
}

func (s *Stack) Pop() (addr uint16, ok bool) {
	addr, ok = s.Peek()
	if ok {
		s.Data = s.Data[:len(s.Data)-1]
	}
	return
}

func (s *Stack) Empty() bool {
	return len(s.Data) == 0
}

func (s *Stack) Full() bool {
	return len(s.Data) == STACK_LIMIT
}

func (s *Stack) Peek() (addr uint16, ok bool) {
	if s.Empty() {
		return
	}

	return s.Data[len(s.Data)-1], true
}

func (s *Stack) Reset() {
	if len(s.Data) > 0 {
		s.Data = s.Data[:0]
	}
}
