package ws

import (
	"sync"
	"testing"
)

func newFakeClient() *Client {
	return &Client{
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

func TestRegistry_SubscribeIdempotent(t *testing.T) {
	r := NewRegistry()
	c := newFakeClient()

	added, first := r.Subscribe(c, "room-1")
	if !added || !first {
		t.Errorf("first Subscribe() = (%v, %v), want (true, true)", added, first)
	}
	added, first = r.Subscribe(c, "room-1")
	if added || first {
		t.Errorf("repeat Subscribe() = (%v, %v), want (false, false)", added, first)
	}
	if got := r.Count("room-1"); got != 1 {
		t.Errorf("Count() = %d, want 1", got)
	}
}

func TestRegistry_SecondClientIsNotFirst(t *testing.T) {
	r := NewRegistry()
	c1 := newFakeClient()
	c2 := newFakeClient()

	r.Subscribe(c1, "room-1")
	added, first := r.Subscribe(c2, "room-1")
	if !added || first {
		t.Errorf("Subscribe() = (%v, %v), want (true, false)", added, first)
	}
	if got := r.Count("room-1"); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}
}

func TestRegistry_UnsubscribeIdempotent(t *testing.T) {
	r := NewRegistry()
	c := newFakeClient()

	removed, last := r.Unsubscribe(c, "room-1")
	if removed || last {
		t.Errorf("Unsubscribe() on empty registry = (%v, %v), want (false, false)", removed, last)
	}

	r.Subscribe(c, "room-1")
	removed, last = r.Unsubscribe(c, "room-1")
	if !removed || !last {
		t.Errorf("Unsubscribe() = (%v, %v), want (true, true)", removed, last)
	}
	removed, last = r.Unsubscribe(c, "room-1")
	if removed || last {
		t.Errorf("repeat Unsubscribe() = (%v, %v), want (false, false)", removed, last)
	}
}

func TestRegistry_UnsubscribeLastOnlyWhenEmpty(t *testing.T) {
	r := NewRegistry()
	c1 := newFakeClient()
	c2 := newFakeClient()
	r.Subscribe(c1, "room-1")
	r.Subscribe(c2, "room-1")

	_, last := r.Unsubscribe(c1, "room-1")
	if last {
		t.Error("Unsubscribe() with another subscriber left should not report last")
	}
	_, last = r.Unsubscribe(c2, "room-1")
	if !last {
		t.Error("Unsubscribe() of final subscriber should report last")
	}
}

func TestRegistry_Drop(t *testing.T) {
	r := NewRegistry()
	c1 := newFakeClient()
	c2 := newFakeClient()
	r.Subscribe(c1, "room-1")
	r.Subscribe(c1, "room-2")
	r.Subscribe(c2, "room-2")

	rooms, emptied := r.Drop(c1)
	if len(rooms) != 2 {
		t.Errorf("Drop() rooms = %v, want 2 entries", rooms)
	}
	if len(emptied) != 1 || emptied[0] != "room-1" {
		t.Errorf("Drop() emptied = %v, want [room-1]", emptied)
	}
	if got := r.Count("room-1"); got != 0 {
		t.Errorf("Count(room-1) = %d, want 0", got)
	}
	if got := r.Count("room-2"); got != 1 {
		t.Errorf("Count(room-2) = %d, want 1", got)
	}

	rooms, emptied = r.Drop(c1)
	if rooms != nil || emptied != nil {
		t.Errorf("repeat Drop() = (%v, %v), want (nil, nil)", rooms, emptied)
	}
}

func TestRegistry_Clients(t *testing.T) {
	r := NewRegistry()
	c1 := newFakeClient()
	c2 := newFakeClient()
	r.Subscribe(c1, "room-1")
	r.Subscribe(c2, "room-1")
	r.Subscribe(c2, "room-2")

	got := r.Clients("room-1")
	if len(got) != 2 {
		t.Errorf("Clients(room-1) = %d clients, want 2", len(got))
	}
	got = r.Clients("room-2")
	if len(got) != 1 || got[0] != c2 {
		t.Errorf("Clients(room-2) should contain only c2")
	}
	if got := r.Clients("room-3"); len(got) != 0 {
		t.Errorf("Clients(room-3) = %d clients, want 0", len(got))
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	numClients := 50

	var wg sync.WaitGroup
	clients := make([]*Client, numClients)
	for i := 0; i < numClients; i++ {
		clients[i] = newFakeClient()
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			r.Subscribe(c, "room-1")
			r.Subscribe(c, "room-2")
		}(clients[i])
	}
	wg.Wait()

	if got := r.Count("room-1"); got != numClients {
		t.Errorf("Count(room-1) after concurrent subscribe = %d, want %d", got, numClients)
	}

	for i := 0; i < numClients; i++ {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			r.Drop(c)
		}(clients[i])
	}
	wg.Wait()

	if got := r.Count("room-1"); got != 0 {
		t.Errorf("Count(room-1) after concurrent drop = %d, want 0", got)
	}
	if got := r.Count("room-2"); got != 0 {
		t.Errorf("Count(room-2) after concurrent drop = %d, want 0", got)
	}
}
