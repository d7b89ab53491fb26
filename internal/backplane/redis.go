package backplane

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Redis 用 Redis pub/sub 做跨节点分发，每个房间一个 channel。
type Redis struct {
	rdb  *redis.Client
	mu   sync.Mutex
	subs map[string]*redis.PubSub
}

func NewRedis(addr string) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &Redis{rdb: rdb, subs: make(map[string]*redis.PubSub)}, nil
}

func (r *Redis) Publish(ctx context.Context, roomID string, payload []byte) error {
	return r.rdb.Publish(ctx, channelFor(roomID), payload).Err()
}

func (r *Redis) Subscribe(roomID string, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.subs[roomID]; ok {
		_ = old.Close()
	}
	ps := r.rdb.Subscribe(context.Background(), channelFor(roomID))
	// 等待订阅确认，避免刚加入房间就丢事件。
	if _, err := ps.Receive(context.Background()); err != nil {
		_ = ps.Close()
		return err
	}
	r.subs[roomID] = ps
	go func() {
		for msg := range ps.Channel() {
			h(roomID, []byte(msg.Payload))
		}
	}()
	return nil
}

func (r *Redis) Unsubscribe(roomID string) error {
	r.mu.Lock()
	ps, ok := r.subs[roomID]
	if ok {
		delete(r.subs, roomID)
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return ps.Close()
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	r.mu.Lock()
	for roomID, ps := range r.subs {
		if err := ps.Close(); err != nil {
			log.Warn().Err(err).Str("room_id", roomID).Msg("backplane close subscription")
		}
		delete(r.subs, roomID)
	}
	r.mu.Unlock()
	return r.rdb.Close()
}
