package service

import "errors"

// 业务层通用错误，handler 和 hub 可根据错误类型映射到状态码或错误帧。
var (
	ErrUsernameTaken      = errors.New("username taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRoomNotFound       = errors.New("room not found")
	ErrSlugTaken          = errors.New("slug already in use")
)
