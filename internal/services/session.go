package services

import (
	"context"
	"sync"

	"flight-stats/internal/models"
)

// Listener receives the recomputed result after every selection change.
// Listeners run synchronously and must not call back into the Session.
type Listener func(Result)

// Session tracks the selection of one interactive client. Each change
// recomputes the view and summary in full and pushes the result to listeners.
type Session struct {
	svc *QueryService

	mu        sync.Mutex
	current   Result
	nextID    int
	listeners map[int]Listener
}

// NewSession starts a session on the default selection.
func NewSession(ctx context.Context, svc *QueryService) *Session {
	return &Session{
		svc:       svc,
		current:   svc.Query(ctx, svc.DefaultSelection()),
		listeners: make(map[int]Listener),
	}
}

// Current returns the result for the current selection.
func (s *Session) Current() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Selection returns a copy of the current selection.
func (s *Session) Selection() models.FilterSelection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Selection.Clone()
}

// Subscribe registers l and returns a function that removes it.
func (s *Session) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// SetSelection replaces the selection, recomputes, and notifies listeners in
// registration order.
func (s *Session) SetSelection(ctx context.Context, sel models.FilterSelection) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = s.svc.Query(ctx, sel)

	for id := 0; id < s.nextID; id++ {
		if l, ok := s.listeners[id]; ok {
			l(s.current)
		}
	}
	return s.current
}

// Reset goes back to the default selection.
func (s *Session) Reset(ctx context.Context) Result {
	return s.SetSelection(ctx, s.svc.DefaultSelection())
}
