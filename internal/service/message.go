package service

import (
	"time"

	"github.com/darshan601/StudyHub-Backend/internal/models"

	"gorm.io/gorm"
)

// MessageService 封装消息追加与历史查询。
type MessageService struct {
	db *gorm.DB
}

func NewMessageService(db *gorm.DB) *MessageService {
	return &MessageService{db: db}
}

// MessageDTO 是对外输出的消息数据，同时用作 websocket 消息帧。
type MessageDTO struct {
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Append 持久化一条消息。id 和时间戳在这一步分配，先落库后广播。
func (s *MessageService) Append(roomID, userID, username, content string) (*MessageDTO, error) {
	msg := models.Message{RoomID: roomID, UserID: userID, Content: content}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, err
	}
	return &MessageDTO{
		Type:      "message",
		ID:        msg.ID,
		RoomID:    msg.RoomID,
		UserID:    msg.UserID,
		Username:  username,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}, nil
}

// Recent 返回房间最近的消息，按持久化顺序新到旧排列。
// limit 非法时取默认 50，超过上限时截到 200。
// before 非零时只返回该时刻之前的消息，用于向前翻页。
func (s *MessageService) Recent(roomID string, limit int, before time.Time) ([]MessageDTO, error) {
	if limit <= 0 {
		limit = 50
	} else if limit > 200 {
		limit = 200
	}

	q := s.db.Where("room_id = ?", roomID)
	if !before.IsZero() {
		q = q.Where("created_at < ?", before)
	}

	var msgs []models.Message
	if err := q.Order("created_at desc, id desc").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, err
	}

	usernames, err := s.resolveUsernames(msgs)
	if err != nil {
		return nil, err
	}

	out := make([]MessageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, MessageDTO{
			Type:      "message",
			ID:        m.ID,
			RoomID:    m.RoomID,
			UserID:    m.UserID,
			Username:  usernames[m.UserID],
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
		})
	}
	return out, nil
}

// resolveUsernames 批量获取消息涉及的用户名。
func (s *MessageService) resolveUsernames(msgs []models.Message) (map[string]string, error) {
	seen := make(map[string]struct{}, len(msgs))
	userIDs := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if _, ok := seen[m.UserID]; ok {
			continue
		}
		seen[m.UserID] = struct{}{}
		userIDs = append(userIDs, m.UserID)
	}

	usernames := make(map[string]string, len(userIDs))
	if len(userIDs) > 0 {
		var users []models.User
		if err := s.db.Select("id", "username").Where("id IN ?", userIDs).Find(&users).Error; err != nil {
			return nil, err
		}
		for _, u := range users {
			usernames[u.ID] = u.Username
		}
	}
	return usernames, nil
}
