package backplane

import (
	"context"
	"sync"
	"testing"

	"github.com/darshan601/StudyHub-Backend/internal/config"
)

func configWith(backplane string) config.Config {
	return config.Config{Backplane: backplane}
}

type recorder struct {
	mu     sync.Mutex
	events [][]byte
}

func (r *recorder) handler(roomID string, payload []byte) {
	r.mu.Lock()
	r.events = append(r.events, payload)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestMemory_PublishReachesAllAttachedNodes(t *testing.T) {
	bus := NewBus()
	nodeA := bus.Attach()
	nodeB := bus.Attach()

	var recA, recB recorder
	if err := nodeA.Subscribe("room-1", recA.handler); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if err := nodeB.Subscribe("room-1", recB.handler); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := nodeA.Publish(context.Background(), "room-1", []byte("hello")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if recA.count() != 1 {
		t.Errorf("node A received %d events, want 1", recA.count())
	}
	if recB.count() != 1 {
		t.Errorf("node B received %d events, want 1", recB.count())
	}
}

func TestMemory_RoomIsolation(t *testing.T) {
	bus := NewBus()
	node := bus.Attach()

	var rec recorder
	if err := node.Subscribe("room-1", rec.handler); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := node.Publish(context.Background(), "room-2", []byte("other room")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if rec.count() != 0 {
		t.Errorf("received %d events for a room not subscribed to, want 0", rec.count())
	}
}

func TestMemory_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()
	node := bus.Attach()

	var rec recorder
	_ = node.Subscribe("room-1", rec.handler)
	_ = node.Publish(context.Background(), "room-1", []byte("one"))
	_ = node.Unsubscribe("room-1")
	_ = node.Publish(context.Background(), "room-1", []byte("two"))

	if rec.count() != 1 {
		t.Errorf("received %d events, want 1 (delivery after unsubscribe)", rec.count())
	}
}

func TestMemory_CloseDetachesNode(t *testing.T) {
	bus := NewBus()
	nodeA := bus.Attach()
	nodeB := bus.Attach()

	var rec recorder
	_ = nodeB.Subscribe("room-1", rec.handler)
	if err := nodeB.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	_ = nodeA.Publish(context.Background(), "room-1", []byte("after close"))

	if rec.count() != 0 {
		t.Errorf("closed node received %d events, want 0", rec.count())
	}
}

func TestNew_UnknownBackplane(t *testing.T) {
	_, err := New(configWith("kafka"))
	if err == nil {
		t.Fatal("New() with unknown backplane should fail")
	}
}

func TestNew_Memory(t *testing.T) {
	bp, err := New(configWith("memory"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := bp.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
	if err := bp.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
