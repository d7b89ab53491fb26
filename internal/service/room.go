package service

import (
	"errors"

	"github.com/darshan601/StudyHub-Backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OnlineCounter 报告某房间在本节点上的在线连接数。
type OnlineCounter interface {
	Count(roomID string) int
}

// RoomService 封装房间与成员关系的业务逻辑。
type RoomService struct {
	db     *gorm.DB
	online OnlineCounter
}

func NewRoomService(db *gorm.DB, online OnlineCounter) *RoomService {
	return &RoomService{db: db, online: online}
}

// RoomDTO 是对外输出的房间数据。
type RoomDTO struct {
	ID      string `json:"id"`
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	OwnerID string `json:"owner_id"`
	Online  int    `json:"online"`
}

// Create 创建新房间，slug 全局唯一，创建者自动成为 owner 和成员。
func (s *RoomService) Create(slug, title, ownerID string) (*RoomDTO, error) {
	var count int64
	if err := s.db.Model(&models.Room{}).Where("slug = ?", slug).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugTaken
	}
	room := models.Room{Slug: slug, Title: title, OwnerID: ownerID}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&room).Error; err != nil {
			return err
		}
		member := models.RoomMember{RoomID: room.ID, UserID: ownerID}
		return tx.Create(&member).Error
	})
	if err != nil {
		return nil, err
	}
	return &RoomDTO{ID: room.ID, Slug: room.Slug, Title: room.Title, OwnerID: room.OwnerID}, nil
}

// ByID 按 id 查询房间。
func (s *RoomService) ByID(roomID string) (*models.Room, error) {
	var room models.Room
	if err := s.db.First(&room, "id = ?", roomID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

// IsMember 检查成员关系，每次发送消息前都会重新检查。
func (s *RoomService) IsMember(roomID, userID string) (bool, error) {
	var count int64
	err := s.db.Model(&models.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Join 为用户登记成员关系。插入是幂等的：重复加入不报错。
// 房间必须存在，不存在时返回 ErrRoomNotFound。
func (s *RoomService) Join(roomID, userID string) error {
	if _, err := s.ByID(roomID); err != nil {
		return err
	}
	member := models.RoomMember{RoomID: roomID, UserID: userID}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error
}

// RemoveMember 删除成员关系，不存在时也不报错。
func (s *RoomService) RemoveMember(roomID, userID string) error {
	return s.db.Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&models.RoomMember{}).Error
}

// RoomsForUser 返回用户加入的全部房间，附带本节点在线人数。
func (s *RoomService) RoomsForUser(userID string) ([]RoomDTO, error) {
	var roomIDs []string
	err := s.db.Model(&models.RoomMember{}).
		Where("user_id = ?", userID).
		Pluck("room_id", &roomIDs).Error
	if err != nil {
		return nil, err
	}
	out := make([]RoomDTO, 0, len(roomIDs))
	if len(roomIDs) == 0 {
		return out, nil
	}
	var rooms []models.Room
	if err := s.db.Where("id IN ?", roomIDs).Order("created_at desc").Find(&rooms).Error; err != nil {
		return nil, err
	}
	for _, r := range rooms {
		dto := RoomDTO{ID: r.ID, Slug: r.Slug, Title: r.Title, OwnerID: r.OwnerID}
		if s.online != nil {
			dto.Online = s.online.Count(r.ID)
		}
		out = append(out, dto)
	}
	return out, nil
}
