package backplane

import (
	"context"
	"sync"
)

// Bus is an in-process relay. Every Attach call yields an independent
// Backplane, so tests can stand up several "nodes" sharing one bus.
type Bus struct {
	mu    sync.RWMutex
	nodes map[*Memory]struct{}
}

func NewBus() *Bus {
	return &Bus{nodes: make(map[*Memory]struct{})}
}

// Attach 把一个新节点挂到总线上。
func (b *Bus) Attach() *Memory {
	m := &Memory{bus: b, subs: make(map[string]Handler)}
	b.mu.Lock()
	b.nodes[m] = struct{}{}
	b.mu.Unlock()
	return m
}

func (b *Bus) publish(roomID string, payload []byte) {
	b.mu.RLock()
	nodes := make([]*Memory, 0, len(b.nodes))
	for n := range b.nodes {
		nodes = append(nodes, n)
	}
	b.mu.RUnlock()
	for _, n := range nodes {
		n.dispatch(roomID, payload)
	}
}

// Memory is one node's view of the shared bus.
type Memory struct {
	bus  *Bus
	mu   sync.RWMutex
	subs map[string]Handler
}

func (m *Memory) Publish(ctx context.Context, roomID string, payload []byte) error {
	m.bus.publish(roomID, payload)
	return nil
}

func (m *Memory) Subscribe(roomID string, h Handler) error {
	m.mu.Lock()
	m.subs[roomID] = h
	m.mu.Unlock()
	return nil
}

func (m *Memory) Unsubscribe(roomID string) error {
	m.mu.Lock()
	delete(m.subs, roomID)
	m.mu.Unlock()
	return nil
}

func (m *Memory) dispatch(roomID string, payload []byte) {
	m.mu.RLock()
	h := m.subs[roomID]
	m.mu.RUnlock()
	if h != nil {
		h(roomID, payload)
	}
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error {
	m.bus.mu.Lock()
	delete(m.bus.nodes, m)
	m.bus.mu.Unlock()
	return nil
}
