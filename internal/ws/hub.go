package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/darshan601/StudyHub-Backend/internal/backplane"
	"github.com/darshan601/StudyHub-Backend/internal/config"
	"github.com/darshan601/StudyHub-Backend/internal/metrics"
	"github.com/darshan601/StudyHub-Backend/internal/service"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// 广播管线的错误分类，client 映射为错误帧下发给调用方。
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrForbidden          = errors.New("not a room member")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrBackplaneJoin      = errors.New("backplane unavailable")
)

// Hub 驱动每条入站事件的处理：校验 → 鉴权 → 落库 → 扇出。
// 本地订阅关系在 Registry，跨节点分发走 Backplane。
type Hub struct {
	cfg      config.Config
	rooms    *service.RoomService
	messages *service.MessageService
	registry *Registry
	bp       backplane.Backplane

	// mu 串行化 backplane 订阅的挂载与摘除，保证引用计数
	// 不会在还有本地订阅者时把共享 channel 退掉。
	mu sync.Mutex
}

func NewHub(cfg config.Config, rooms *service.RoomService, messages *service.MessageService, registry *Registry, bp backplane.Backplane) *Hub {
	return &Hub{
		cfg:      cfg,
		rooms:    rooms,
		messages: messages,
		registry: registry,
		bp:       bp,
	}
}

// Registry 暴露给路由层查询在线人数。
func (h *Hub) Registry() *Registry { return h.registry }

func validRoomID(roomID string) bool {
	_, err := uuid.Parse(roomID)
	return err == nil
}

// Join 为连接订阅房间。未入会的用户在这里按需自助登记成员关系。
func (h *Hub) Join(ctx context.Context, c *Client, roomID string) error {
	if !validRoomID(roomID) {
		return ErrInvalidInput
	}
	member, err := h.rooms.IsMember(roomID, c.identity.UserID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if !member {
		if err := h.rooms.Join(roomID, c.identity.UserID); err != nil {
			if errors.Is(err, service.ErrRoomNotFound) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
	}

	h.mu.Lock()
	added, first := h.registry.Subscribe(c, roomID)
	if first {
		if err := h.bp.Subscribe(roomID, h.deliver); err != nil {
			h.registry.Unsubscribe(c, roomID)
			h.mu.Unlock()
			return fmt.Errorf("%w: %v", ErrBackplaneJoin, err)
		}
	}
	h.mu.Unlock()

	if added {
		h.notice(ctx, roomID, c.identity.Username+" joined the room")
	}
	return nil
}

// Leave 只解除实时订阅，存储中的成员关系保持不变。
func (h *Hub) Leave(ctx context.Context, c *Client, roomID string) error {
	if !validRoomID(roomID) {
		return ErrInvalidInput
	}
	h.mu.Lock()
	removed, last := h.registry.Unsubscribe(c, roomID)
	if last {
		if err := h.bp.Unsubscribe(roomID); err != nil {
			log.Warn().Err(err).Str("room_id", roomID).Msg("backplane unsubscribe")
		}
	}
	h.mu.Unlock()

	if removed {
		h.notice(ctx, roomID, c.identity.Username+" left the room")
	}
	return nil
}

// Send 每次都重新做成员鉴权，落库成功后才扇出。
// 扇出失败不回报给发送方：消息已经持久化，补偿靠 history。
func (h *Hub) Send(ctx context.Context, c *Client, roomID, content string) error {
	if !validRoomID(roomID) || content == "" || len(content) > h.cfg.MaxMessageBytes {
		return ErrInvalidInput
	}
	member, err := h.rooms.IsMember(roomID, c.identity.UserID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if !member {
		return ErrForbidden
	}

	dto, err := h.messages.Append(roomID, c.identity.UserID, c.identity.Username, content)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	metrics.WsMessagesTotal.Inc()

	payload, err := json.Marshal(dto)
	if err != nil {
		return err
	}
	if err := h.bp.Publish(ctx, roomID, payload); err != nil {
		metrics.DegradedDeliveries.Inc()
		log.Error().Err(err).Str("room_id", roomID).Str("message_id", dto.ID).Msg("degraded delivery: publish after persist")
	}
	return nil
}

// History 直接查存储，越过注册表和 backplane。
func (h *Hub) History(ctx context.Context, c *Client, roomID string, count int) error {
	if !validRoomID(roomID) {
		return ErrInvalidInput
	}
	msgs, err := h.messages.Recent(roomID, count, time.Time{})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	frame := HistoryFrame{Type: "history", RoomID: roomID, Messages: msgs}
	b, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	c.trySend(b)
	return nil
}

// Drop 在连接终止时调用，无论正常关闭还是异常断开。
// 把连接从所有房间摘掉，本节点归零的房间同步退掉 backplane 订阅。
func (h *Hub) Drop(c *Client) {
	h.mu.Lock()
	rooms, emptied := h.registry.Drop(c)
	for _, roomID := range emptied {
		if err := h.bp.Unsubscribe(roomID); err != nil {
			log.Warn().Err(err).Str("room_id", roomID).Msg("backplane unsubscribe on drop")
		}
	}
	h.mu.Unlock()
	c.close()

	for _, roomID := range rooms {
		h.notice(context.Background(), roomID, c.identity.Username+" left the room")
	}
}

// notice 广播系统通知。尽力而为：失败只记日志，绝不让调用方的
// 操作因此失败。
func (h *Hub) notice(ctx context.Context, roomID, text string) {
	frame := SystemFrame{Type: "system", RoomID: roomID, Text: text}
	b, err := json.Marshal(frame)
	if err != nil {
		return
	}
	if err := h.bp.Publish(ctx, roomID, b); err != nil {
		metrics.DegradedDeliveries.Inc()
		log.Warn().Err(err).Str("room_id", roomID).Msg("system notice dropped")
	}
}

// deliver 是 backplane 的本地扇出回调：把事件推给房间的每个订阅者。
// 发送缓冲已满的慢客户端直接踢掉，防止拖垮整体。
func (h *Hub) deliver(roomID string, payload []byte) {
	for _, c := range h.registry.Clients(roomID) {
		if !c.trySend(payload) {
			go h.Drop(c)
		}
	}
}
