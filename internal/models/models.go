package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 用户角色，控制房间创建等管理操作。
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

type User struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"size:16;not null;default:student"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

type Room struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Slug      string `gorm:"uniqueIndex;size:128;not null"`
	Title     string `gorm:"size:256;not null"`
	OwnerID   string `gorm:"type:uuid;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *Room) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// RoomMember 只记录 (room, user) 关系本身，存在与否即为事实。
type RoomMember struct {
	RoomID    string `gorm:"type:uuid;primaryKey"`
	UserID    string `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
}

type Message struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	RoomID    string    `gorm:"type:uuid;index:idx_msg_room_created;not null"`
	UserID    string    `gorm:"type:uuid;index;not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"index:idx_msg_room_created"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    string    `gorm:"type:uuid;index;not null"`
	Token     string    `gorm:"uniqueIndex;size:128;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	RevokedAt *time.Time
	CreatedAt time.Time
}
