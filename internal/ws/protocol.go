package ws

import (
	"github.com/darshan601/StudyHub-Backend/internal/service"
)

// Inbound is the tagged request union a client sends over the socket.
// A client waits for the outcome of one operation before issuing the
// next, so the read loop processes these strictly in order.
type Inbound struct {
	Type    string `json:"type"`
	RoomID  string `json:"room_id"`
	Content string `json:"content"`
	Count   int    `json:"count"`
}

const (
	opJoin    = "join"
	opLeave   = "leave"
	opSend    = "send"
	opHistory = "history"
)

// SystemFrame announces joins and leaves. Best effort, never persisted.
type SystemFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
	Text   string `json:"text"`
}

// HistoryFrame answers a history request, newest first.
type HistoryFrame struct {
	Type     string               `json:"type"`
	RoomID   string               `json:"room_id"`
	Messages []service.MessageDTO `json:"messages"`
}

// ErrorFrame reports an operation failure back to the caller only.
type ErrorFrame struct {
	Type    string `json:"type"`
	Op      string `json:"op"`
	RoomID  string `json:"room_id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
