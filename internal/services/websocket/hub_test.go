package websocket

import (
	"errors"
	"sync"
	"testing"
	"time"

	"resistorserver/internal/logger"
)

type fakeClient struct {
	mu       sync.Mutex
	messages []string
	closed   bool
	fail     bool
}

func (c *fakeClient) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("broken pipe")
	}
	c.messages = append(c.messages, string(data))
	return nil
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeClient) snapshot() ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.messages...), c.closed
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubService_BroadcastReachesViewers(t *testing.T) {
	hub := NewHubService(logger.NewDiscard())
	go hub.Run()
	defer hub.Stop()

	good := &fakeClient{}
	broken := &fakeClient{fail: true}
	hub.Register(good)
	hub.Register(broken)

	if err := hub.BroadcastJSON(map[string]float64{"resistance": 4700}); err != nil {
		t.Fatalf("BroadcastJSON failed: %v", err)
	}

	waitFor(t, func() bool {
		msgs, _ := good.snapshot()
		return len(msgs) == 1
	})
	msgs, _ := good.snapshot()
	if msgs[0] != `{"resistance":4700}` {
		t.Errorf("got %s, expected resistance message", msgs[0])
	}

	waitFor(t, func() bool { return hub.GetClientCount() == 1 })
	if _, closed := broken.snapshot(); !closed {
		t.Error("Expected failing viewer to be closed")
	}
}

func TestHubService_Unregister(t *testing.T) {
	hub := NewHubService(logger.NewDiscard())
	go hub.Run()
	defer hub.Stop()

	client := &fakeClient{}
	hub.Register(client)
	hub.Unregister(client)

	waitFor(t, func() bool { return hub.GetClientCount() == 0 })
	if _, closed := client.snapshot(); !closed {
		t.Error("Expected unregistered viewer to be closed")
	}
}

func TestHubService_BroadcastDoesNotBlockWithoutRun(t *testing.T) {
	hub := NewHubService(logger.NewDiscard())

	for i := 0; i < 200; i++ {
		hub.Broadcast([]byte("x"))
	}
}
