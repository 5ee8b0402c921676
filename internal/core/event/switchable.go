package event

// Switchable is a double buffer. Writers always target Current(); the owner
// drains Other() and calls Switch() to rotate the pair. The buffers themselves
// are never reallocated, so pointers handed out by Current() stay valid.
type Switchable[T any] struct {
	buffers [2]T
	current int
}

func NewSwitchable[T any](front, back T) *Switchable[T] {
	return &Switchable[T]{buffers: [2]T{front, back}}
}

// Current returns the buffer that receives new writes.
func (s *Switchable[T]) Current() T { return s.buffers[s.current] }

// Other returns the buffer that is drained.
func (s *Switchable[T]) Other() T { return s.buffers[s.current^1] }

// Switch rotates current and other.
func (s *Switchable[T]) Switch() { s.current ^= 1 }

// Each calls fn for both buffers, current first.
func (s *Switchable[T]) Each(fn func(T)) {
	fn(s.buffers[s.current])
	fn(s.buffers[s.current^1])
}
