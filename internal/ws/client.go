package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/darshan601/StudyHub-Backend/internal/auth"
	"github.com/darshan601/StudyHub-Backend/internal/service"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
	writeWait    = 10 * time.Second
	sendBuffer   = 256
	opTimeout    = 10 * time.Second
	readOverhead = 1024
)

// Client 是一条带身份的活动连接。身份在升级时绑定一次，
// 连接存续期间不再重新推导。
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	identity auth.Identity

	send chan []byte
	done chan struct{}
	once sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, identity auth.Identity) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		identity: identity,
		send:     make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}
}

// trySend 非阻塞投递。连接已关闭或缓冲已满时返回 false。
func (c *Client) trySend(b []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Drop(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(int64(c.hub.cfg.MaxMessageBytes + readOverhead))
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			c.sendError(Inbound{}, ErrInvalidInput)
			continue
		}
		c.handle(in)
	}
}

// handle 分发一条入站操作。同一连接上的操作由读循环天然串行，
// 单个操作的失败只影响该连接自身。
func (c *Client) handle(in Inbound) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var err error
	switch in.Type {
	case opJoin:
		err = c.hub.Join(ctx, c, in.RoomID)
	case opLeave:
		err = c.hub.Leave(ctx, c, in.RoomID)
	case opSend:
		err = c.hub.Send(ctx, c, in.RoomID, in.Content)
	case opHistory:
		err = c.hub.History(ctx, c, in.RoomID, in.Count)
	default:
		err = ErrInvalidInput
	}
	if err != nil {
		c.sendError(in, err)
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, service.ErrRoomNotFound):
		return "not_found"
	case errors.Is(err, ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, ErrBackplaneJoin):
		return "backplane_unavailable"
	default:
		return "internal"
	}
}

func (c *Client) sendError(in Inbound, err error) {
	frame := ErrorFrame{
		Type:    "error",
		Op:      in.Type,
		RoomID:  in.RoomID,
		Code:    errorCode(err),
		Message: err.Error(),
	}
	b, merr := json.Marshal(frame)
	if merr != nil {
		return
	}
	if !c.trySend(b) {
		log.Debug().Str("user_id", c.identity.UserID).Msg("error frame dropped, client gone")
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			_ = w.Close()
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
