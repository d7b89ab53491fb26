package ws

import "sync"

// Registry 维护本进程内 连接⇄房间 的双向索引。
// 订阅状态只存在于内存，进程重启后由客户端重新 join 重建。
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
	conns map[*Client]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[*Client]struct{}),
		conns: make(map[*Client]map[string]struct{}),
	}
}

// Subscribe 登记订阅。幂等：重复订阅时 added 为 false。
// first 表示该房间在本节点上从无到有，调用方据此挂 backplane 订阅。
func (r *Registry) Subscribe(c *Client, roomID string) (added, first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room := r.rooms[roomID]
	if room == nil {
		room = make(map[*Client]struct{})
		r.rooms[roomID] = room
		first = true
	}
	if _, ok := room[c]; ok {
		return false, false
	}
	room[c] = struct{}{}
	if r.conns[c] == nil {
		r.conns[c] = make(map[string]struct{})
	}
	r.conns[c][roomID] = struct{}{}
	return true, first
}

// Unsubscribe 解除订阅。幂等：未订阅时 removed 为 false。
// last 表示该房间在本节点上已无订阅者，调用方据此摘 backplane 订阅。
func (r *Registry) Unsubscribe(c *Client, roomID string) (removed, last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room := r.rooms[roomID]
	if room == nil {
		return false, false
	}
	if _, ok := room[c]; !ok {
		return false, false
	}
	delete(room, c)
	if len(room) == 0 {
		delete(r.rooms, roomID)
		last = true
	}
	if set := r.conns[c]; set != nil {
		delete(set, roomID)
		if len(set) == 0 {
			delete(r.conns, c)
		}
	}
	return true, last
}

// Drop 把连接从所有房间移除，连接关闭时调用一次。
// 返回该连接曾订阅的房间，以及其中本节点订阅数归零的房间。
func (r *Registry) Drop(c *Client) (rooms, emptied []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.conns[c]
	if set == nil {
		return nil, nil
	}
	for roomID := range set {
		rooms = append(rooms, roomID)
		room := r.rooms[roomID]
		delete(room, c)
		if len(room) == 0 {
			delete(r.rooms, roomID)
			emptied = append(emptied, roomID)
		}
	}
	delete(r.conns, c)
	return rooms, emptied
}

// Clients 返回房间当前订阅者的快照。
func (r *Registry) Clients(roomID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room := r.rooms[roomID]
	out := make([]*Client, 0, len(room))
	for c := range room {
		out = append(out, c)
	}
	return out
}

// Count 返回房间在本节点上的订阅者数量，供 REST 接口复用。
func (r *Registry) Count(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}
