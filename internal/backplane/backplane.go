// Package backplane relays room-addressed events between server processes.
// Each process subscribes to a room's channel while it has local listeners
// and publishes exactly once; the relay fans out to every subscribed process.
package backplane

import (
	"context"
	"fmt"

	"github.com/darshan601/StudyHub-Backend/internal/config"
)

// Handler 在收到房间事件时被调用，payload 是已编码好的出站帧。
type Handler func(roomID string, payload []byte)

type Backplane interface {
	Publish(ctx context.Context, roomID string, payload []byte) error
	// Subscribe 注册房间事件回调。同一房间重复订阅会替换回调。
	Subscribe(roomID string, h Handler) error
	Unsubscribe(roomID string) error
	Ping(ctx context.Context) error
	Close() error
}

// New 按配置选择 backplane 实现。memory 仅限单节点部署。
func New(cfg config.Config) (Backplane, error) {
	switch cfg.Backplane {
	case "memory":
		return NewBus().Attach(), nil
	case "redis":
		return NewRedis(cfg.RedisAddr)
	case "nats":
		return NewNats(cfg.NatsURL)
	default:
		return nil, fmt.Errorf("unknown backplane %q", cfg.Backplane)
	}
}

func channelFor(roomID string) string {
	return "chat.room." + roomID
}
