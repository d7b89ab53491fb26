package ws

import (
	"net/http"

	"github.com/darshan601/StudyHub-Backend/internal/auth"
	"github.com/darshan601/StudyHub-Backend/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Serve 处理 websocket 握手：先离线校验凭证并绑定身份，再升级连接。
// 凭证缺失、过期或无效时直接拒绝，不允许匿名会话。
func Serve(h *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := auth.BearerToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		claims, err := auth.ParseAccessToken(token, h.cfg)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		client := NewClient(h, conn, claims.Identity())
		metrics.WsConnections.Inc()
		defer metrics.WsConnections.Dec()

		go client.writePump()
		client.readPump()
	}
}
