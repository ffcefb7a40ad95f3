package ai

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeModel struct {
	id     int
	closed bool
}

func TestSession_LazyLoad(t *testing.T) {
	var loads int32
	s := NewSession("model.onnx", func(path string) (*fakeModel, error) {
		if path != "model.onnx" {
			t.Errorf("got path %q, expected model.onnx", path)
		}
		return &fakeModel{id: int(atomic.AddInt32(&loads, 1))}, nil
	}, func(m *fakeModel) error {
		m.closed = true
		return nil
	})

	if s.State() != Uninitialized {
		t.Fatalf("got %v, expected %v", s.State(), Uninitialized)
	}

	for i := 0; i < 3; i++ {
		err := s.Use(func(m *fakeModel) error {
			if m.id != 1 {
				t.Errorf("got model %d, expected 1", m.id)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Use failed: %v", err)
		}
	}

	if s.State() != Ready {
		t.Errorf("got %v, expected %v", s.State(), Ready)
	}
	if atomic.LoadInt32(&loads) != 1 {
		t.Errorf("got %d loads, expected 1", loads)
	}
}

func TestSession_FailedLoadIsRetried(t *testing.T) {
	attempts := 0
	s := NewSession("missing.onnx", func(string) (int, error) {
		attempts++
		if attempts == 1 {
			return 0, errors.New("no such file")
		}
		return 42, nil
	}, nil)

	err := s.Warmup()
	if !errors.Is(err, ErrModelNotReady) {
		t.Fatalf("got %v, expected ErrModelNotReady", err)
	}
	if s.State() != Failed {
		t.Errorf("got %v, expected %v", s.State(), Failed)
	}
	if s.Err() == nil {
		t.Error("expected the load error to be kept")
	}

	var got int
	if err := s.Use(func(v int) error { got = v; return nil }); err != nil {
		t.Fatalf("Use after failure failed: %v", err)
	}
	if got != 42 || s.State() != Ready {
		t.Errorf("got %d in state %v, expected 42 in %v", got, s.State(), Ready)
	}
}

func TestSession_ConcurrentCallersShareOneLoad(t *testing.T) {
	var loads int32
	release := make(chan struct{})
	s := NewSession("model.onnx", func(string) (int, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return 7, nil
	}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Use(func(v int) error {
				if v != 7 {
					t.Errorf("got %d, expected 7", v)
				}
				return nil
			}); err != nil {
				t.Errorf("Use failed: %v", err)
			}
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	for s.State() != Loading && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(release)
	wg.Wait()

	if atomic.LoadInt32(&loads) != 1 {
		t.Errorf("got %d loads, expected 1", loads)
	}
}

func TestSession_CloseResets(t *testing.T) {
	m := &fakeModel{}
	s := NewSession("model.onnx", func(string) (*fakeModel, error) { return m, nil }, func(m *fakeModel) error {
		m.closed = true
		return nil
	})

	if err := s.Close(); err != nil {
		t.Fatalf("Close of unloaded session failed: %v", err)
	}
	if err := s.Warmup(); err != nil {
		t.Fatalf("Warmup failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !m.closed {
		t.Error("expected the model to be closed")
	}
	if s.State() != Uninitialized {
		t.Errorf("got %v, expected %v", s.State(), Uninitialized)
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		Uninitialized: "uninitialized",
		Loading:       "loading",
		Ready:         "ready",
		Failed:        "failed",
		State(9):      "state(9)",
	}
	for s, expected := range tests {
		if s.String() != expected {
			t.Errorf("got %q, expected %q", s.String(), expected)
		}
	}
}
