package server

import (
	"time"

	"github.com/darshan601/StudyHub-Backend/internal/auth"
	"github.com/darshan601/StudyHub-Backend/internal/config"
	"github.com/darshan601/StudyHub-Backend/internal/metrics"
	"github.com/darshan601/StudyHub-Backend/internal/mw"
	"github.com/darshan601/StudyHub-Backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// REST 接口的限速参数。聊天客户端正常只在登录、进房间和翻历史时
// 走 REST，20 req/s 加突发 40 对单个用户绰绰有余，刷接口的会被挡住。
const (
	apiRatePerSecond = 20
	apiBurst         = 40
)

// SetupRouter 统一初始化 Gin 中间件、REST API 以及 WebSocket 端点。
func SetupRouter(cfg config.Config, gdb *gorm.DB, h *Handler, hub *ws.Hub) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.CORS(cfg.Env))
	r.Use(mw.RateLimit(rate.Every(time.Second/apiRatePerSecond), apiBurst))

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	api.POST("/auth/register", h.Register)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/refresh", h.RefreshToken)

	// 需要 Bearer Token 的业务接口。
	authed := api.Group("")
	authed.Use(auth.AuthMiddleware(cfg, gdb))

	authed.POST("/rooms", h.CreateRoom)
	authed.GET("/rooms/mine", h.MyRooms)
	authed.GET("/rooms/:id", h.GetRoom)
	authed.POST("/rooms/:id/join", h.JoinRoom)
	authed.POST("/rooms/:id/leave", h.LeaveRoom)
	authed.GET("/rooms/:id/messages", h.ListMessages)

	r.GET("/ws", ws.Serve(hub))

	return r
}
