package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/darshan601/StudyHub-Backend/internal/auth"
	"github.com/darshan601/StudyHub-Backend/internal/backplane"
	"github.com/darshan601/StudyHub-Backend/internal/config"
	"github.com/darshan601/StudyHub-Backend/internal/models"
	"github.com/darshan601/StudyHub-Backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Handler 聚合所有 HTTP handler，依赖注入 service 层。
type Handler struct {
	cfg     config.Config
	gdb     *gorm.DB
	bp      backplane.Backplane
	userSvc *service.UserService
	roomSvc *service.RoomService
	msgSvc  *service.MessageService
}

func NewHandler(cfg config.Config, gdb *gorm.DB, bp backplane.Backplane, userSvc *service.UserService, roomSvc *service.RoomService, msgSvc *service.MessageService) *Handler {
	return &Handler{cfg: cfg, gdb: gdb, bp: bp, userSvc: userSvc, roomSvc: roomSvc, msgSvc: msgSvc}
}

// Register 处理用户注册请求。
func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if len(req.Username) < 2 || len(req.Username) > 64 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid username"})
		return
	}
	if len(req.Password) < 4 || len(req.Password) > 128 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid password"})
		return
	}
	result, err := h.userSvc.Register(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "username taken"})
			return
		}
		log.Error().Err(err).Str("username", req.Username).Msg("register")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": result.ID, "username": result.Username, "role": result.Role})
}

// Login 处理用户登录请求。
func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	result, err := h.userSvc.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		log.Error().Err(err).Str("username", req.Username).Msg("login")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  result.AccessToken,
		"refresh_token": result.RefreshToken,
		"user":          gin.H{"id": result.User.ID, "username": result.User.Username, "role": result.User.Role},
	})
}

// RefreshToken 处理 token 刷新请求。
func (h *Handler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	result, err := h.userSvc.RefreshTokens(req.RefreshToken)
	if err != nil {
		log.Warn().Err(err).Msg("refresh token")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": result.AccessToken, "refresh_token": result.RefreshToken})
}

// CreateRoom 处理创建房间请求，仅管理员可建。
func (h *Handler) CreateRoom(c *gin.Context) {
	ident := auth.GetIdentity(c)
	if ident.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin role required"})
		return
	}
	var req struct {
		Slug  string `json:"slug"`
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	req.Slug = strings.TrimSpace(req.Slug)
	req.Title = strings.TrimSpace(req.Title)
	if req.Slug == "" || req.Title == "" || len(req.Slug) > 128 || len(req.Title) > 256 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	room, err := h.roomSvc.Create(req.Slug, req.Title, ident.UserID)
	if err != nil {
		if errors.Is(err, service.ErrSlugTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "slug already in use"})
			return
		}
		log.Error().Err(err).Str("owner_id", ident.UserID).Str("slug", req.Slug).Msg("create room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create room"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"room": room})
}

// GetRoom 返回单个房间信息。
func (h *Handler) GetRoom(c *gin.Context) {
	roomID := c.Param("id")
	if _, err := uuid.Parse(roomID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}
	room, err := h.roomSvc.ByID(roomID)
	if err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		log.Error().Err(err).Str("room_id", roomID).Msg("get room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get room"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": gin.H{"id": room.ID, "slug": room.Slug, "title": room.Title, "owner_id": room.OwnerID}})
}

// JoinRoom 通过 REST 登记成员关系，幂等。
func (h *Handler) JoinRoom(c *gin.Context) {
	roomID := c.Param("id")
	if _, err := uuid.Parse(roomID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}
	ident := auth.GetIdentity(c)
	if err := h.roomSvc.Join(roomID, ident.UserID); err != nil {
		if errors.Is(err, service.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		log.Error().Err(err).Str("room_id", roomID).Str("user_id", ident.UserID).Msg("join room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to join room"})
		return
	}
	c.Status(http.StatusNoContent)
}

// LeaveRoom 通过 REST 显式退出房间：与 websocket 的 leave 不同，
// 这里会删除持久化的成员关系。
func (h *Handler) LeaveRoom(c *gin.Context) {
	roomID := c.Param("id")
	if _, err := uuid.Parse(roomID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}
	ident := auth.GetIdentity(c)
	if err := h.roomSvc.RemoveMember(roomID, ident.UserID); err != nil {
		log.Error().Err(err).Str("room_id", roomID).Str("user_id", ident.UserID).Msg("leave room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to leave room"})
		return
	}
	c.Status(http.StatusNoContent)
}

// MyRooms 返回调用者加入的房间列表。
func (h *Handler) MyRooms(c *gin.Context) {
	ident := auth.GetIdentity(c)
	rooms, err := h.roomSvc.RoomsForUser(ident.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", ident.UserID).Msg("list rooms")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list rooms"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// ListMessages 返回房间最近消息，新到旧排列。
func (h *Handler) ListMessages(c *gin.Context) {
	roomID := c.Param("id")
	if _, err := uuid.Parse(roomID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}
	limitStr := c.Query("limit")
	if limitStr == "" {
		limitStr = "50"
	}
	limit, _ := strconv.Atoi(limitStr)
	var before time.Time
	if b := c.Query("before"); b != "" {
		t, err := time.Parse(time.RFC3339, b)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid before timestamp"})
			return
		}
		before = t
	}
	msgs, err := h.msgSvc.Recent(roomID, limit, before)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		log.Error().Err(err).Str("room_id", roomID).Msg("list messages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// Healthz 探测数据库和 backplane 的连通性。
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true

	dbStatus := "ok"
	sqlDB, err := h.gdb.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		dbStatus = err.Error()
		healthy = false
	}
	checks["database"] = dbStatus

	bpStatus := "ok"
	if err := h.bp.Ping(ctx); err != nil {
		bpStatus = err.Error()
		healthy = false
	}
	checks["backplane"] = bpStatus

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	c.JSON(status, gin.H{"status": overall, "checks": checks})
}
