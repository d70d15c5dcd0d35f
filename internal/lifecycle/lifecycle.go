// Package lifecycle broadcasts application foreground/background
// transitions to interested subsystems.
package lifecycle

import "sync"

// State is the application's visibility state.
type State string

const (
	StateForeground State = "foreground"
	StateBackground State = "background"
)

// Signal fans lifecycle transitions out to subscribers. Each subscriber
// channel holds only the latest state: a slow consumer sees the newest
// transition, not a backlog of stale ones.
type Signal struct {
	mu    sync.Mutex
	state State
	subs  []chan State
}

// NewSignal starts in the foreground state.
func NewSignal() *Signal {
	return &Signal{state: StateForeground}
}

// State returns the current state.
func (s *Signal) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers a listener. The channel is never closed.
func (s *Signal) Subscribe() <-chan State {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan State, 1)
	s.subs = append(s.subs, ch)
	return ch
}

// Set records a transition and notifies subscribers. Setting the current
// state again is a no-op.
func (s *Signal) Set(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state == s.state {
		return
	}
	s.state = state
	for _, ch := range s.subs {
		select {
		case ch <- state:
		default:
			// Replace the stale pending state with the newest one.
			select {
			case <-ch:
			default:
			}
			ch <- state
		}
	}
}
