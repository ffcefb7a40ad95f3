package ai

import (
	"errors"
	"fmt"
	"sync"
)

// ErrModelNotReady is returned when the model could not be loaded.
var ErrModelNotReady = errors.New("model not ready")

// State is the lifecycle of a Session.
type State int

const (
	Uninitialized State = iota
	Loading
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Session owns a lazily loaded model resource. The first Use loads it; calls
// arriving while it loads wait for the outcome. A failed load is retried by
// the next Use.
type Session[T any] struct {
	path  string
	load  func(path string) (T, error)
	close func(T) error

	mu    sync.Mutex
	cond  *sync.Cond
	state State
	res   T
	err   error

	useMu sync.Mutex // the resource is used by one caller at a time
}

// NewSession creates a session that loads the resource at path with load.
func NewSession[T any](path string, load func(string) (T, error), close func(T) error) *Session[T] {
	s := &Session[T]{path: path, load: load, close: close}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// State reports the current lifecycle state.
func (s *Session[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Warmup loads the resource now instead of on first use.
func (s *Session[T]) Warmup() error {
	_, err := s.acquire()
	return err
}

// Use runs fn with the loaded resource, loading it first if needed.
func (s *Session[T]) Use(fn func(T) error) error {
	res, err := s.acquire()
	if err != nil {
		return err
	}

	s.useMu.Lock()
	defer s.useMu.Unlock()
	return fn(res)
}

func (s *Session[T]) acquire() (T, error) {
	s.mu.Lock()
	waited := false
	for s.state == Loading {
		waited = true
		s.cond.Wait()
	}
	switch {
	case s.state == Ready:
		res := s.res
		s.mu.Unlock()
		return res, nil
	case s.state == Failed && waited:
		// share the outcome of the load we waited for
		err := s.err
		s.mu.Unlock()
		var zero T
		return zero, fmt.Errorf("%w: %v", ErrModelNotReady, err)
	}
	s.state = Loading
	s.mu.Unlock()

	res, err := s.load(s.path)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state, s.err = Failed, err
	} else {
		s.state, s.res, s.err = Ready, res, nil
	}
	s.cond.Broadcast()

	if err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %v", ErrModelNotReady, err)
	}
	return res, nil
}

// Err returns the error of the last failed load.
func (s *Session[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close releases a loaded resource and returns the session to Uninitialized.
func (s *Session[T]) Close() error {
	s.useMu.Lock()
	defer s.useMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	for s.state == Loading {
		s.cond.Wait()
	}
	if s.state != Ready {
		s.state = Uninitialized
		return nil
	}

	var zero T
	res := s.res
	s.res, s.state = zero, Uninitialized
	if s.close != nil {
		return s.close(res)
	}
	return nil
}
