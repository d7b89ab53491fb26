package db

import (
	"errors"
	"time"

	"github.com/darshan601/StudyHub-Backend/internal/auth"
	"github.com/darshan601/StudyHub-Backend/internal/config"
	"github.com/darshan601/StudyHub-Backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect 负责建立到 Postgres 的连接，并带有简单的重试来等待容器就绪。
func Connect(dsn string) (*gorm.DB, error) {
	var gdb *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		gdb, err = gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
		if err == nil {
			sqlDB, err2 := gdb.DB()
			if err2 == nil {
				sqlDB.SetMaxIdleConns(5)
				sqlDB.SetMaxOpenConns(20)
				sqlDB.SetConnMaxLifetime(time.Hour)
				return gdb, nil
			}
			err = err2
		}
		time.Sleep(time.Duration(500+i*200) * time.Millisecond)
	}
	return nil, err
}

// Migrate 自动迁移全部表结构。
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&models.User{}, &models.Room{}, &models.RoomMember{}, &models.Message{}, &models.RefreshToken{})
}

// Seed 确保管理员账号和示例房间存在，可重复执行。
func Seed(gdb *gorm.DB, cfg config.Config) error {
	var admin models.User
	err := gdb.Where("username = ?", cfg.AdminUsername).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		hash, herr := auth.HashPassword(cfg.AdminPassword)
		if herr != nil {
			return herr
		}
		admin = models.User{Username: cfg.AdminUsername, PasswordHash: hash, Role: models.RoleAdmin}
		if cerr := gdb.Create(&admin).Error; cerr != nil {
			return cerr
		}
	} else if err != nil {
		return err
	}

	var room models.Room
	err = gdb.Where("slug = ?", "general").First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		room = models.Room{Slug: "general", Title: "General", OwnerID: admin.ID}
		if cerr := gdb.Create(&room).Error; cerr != nil {
			return cerr
		}
		member := models.RoomMember{RoomID: room.ID, UserID: admin.ID}
		if cerr := gdb.Create(&member).Error; cerr != nil {
			return cerr
		}
	} else if err != nil {
		return err
	}
	return nil
}
