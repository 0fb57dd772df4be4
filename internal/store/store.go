package store

import "sync"

// Store owns the current State. Every mutation goes through Dispatch or
// Update, which apply Reduce under one lock so transitions never interleave.
type Store struct {
	mu     sync.Mutex
	state  State
	subs   map[int]chan State
	nextID int
}

// New creates a store holding initial.
func New(initial State) *Store {
	return &Store{state: initial, subs: make(map[int]chan State)}
}

// Dispatch applies a to the current state.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(a)
}

// Update computes an action from the current state and applies it
// atomically. fn must not call back into the store. A nil action is a no-op.
func (s *Store) Update(fn func(State) Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := fn(s.state); a != nil {
		s.apply(a)
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe returns a channel receiving the latest state after each change.
// Slow readers see only the most recent state; intermediate ones are dropped.
// The returned func unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan State, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	ch := make(chan State, 1)
	ch <- s.state
	s.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

func (s *Store) apply(a Action) {
	s.state = Reduce(s.state, a)
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s.state
	}
}
