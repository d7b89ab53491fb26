package backplane

import (
	"context"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Nats 用 core NATS 做跨节点分发，每个房间一个 subject。
// 持久化由 Postgres 承担，这里只需要尽力而为的实时转发。
type Nats struct {
	nc   *nats.Conn
	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

func NewNats(url string) (*Nats, error) {
	nc, err := nats.Connect(url,
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &Nats{nc: nc, subs: make(map[string]*nats.Subscription)}, nil
}

func (n *Nats) Publish(ctx context.Context, roomID string, payload []byte) error {
	return n.nc.Publish(channelFor(roomID), payload)
}

func (n *Nats) Subscribe(roomID string, h Handler) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if old, ok := n.subs[roomID]; ok {
		_ = old.Unsubscribe()
	}
	sub, err := n.nc.Subscribe(channelFor(roomID), func(m *nats.Msg) {
		h(roomID, m.Data)
	})
	if err != nil {
		return err
	}
	n.subs[roomID] = sub
	return nil
}

func (n *Nats) Unsubscribe(roomID string) error {
	n.mu.Lock()
	sub, ok := n.subs[roomID]
	if ok {
		delete(n.subs, roomID)
	}
	n.mu.Unlock()
	if !ok {
		return nil
	}
	return sub.Unsubscribe()
}

func (n *Nats) Ping(ctx context.Context) error {
	return n.nc.FlushWithContext(ctx)
}

func (n *Nats) Close() error {
	n.mu.Lock()
	for roomID, sub := range n.subs {
		if err := sub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Str("room_id", roomID).Msg("backplane unsubscribe")
		}
		delete(n.subs, roomID)
	}
	n.mu.Unlock()
	n.nc.Close()
	return nil
}
