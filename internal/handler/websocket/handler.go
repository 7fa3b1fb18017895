package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/YofiAsi/debate-back/internal/hub"
	"github.com/YofiAsi/debate-back/internal/middleware"
)

// WebSocketHandler 负责 WebSocket 升级和客户端注册。
// 单条连接承载全部房间事件，进哪个房间由连接建立后的 join_room 事件决定，
// 所以升级路径不带房间参数。
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
}

// NewWebSocketHandler 创建 WebSocketHandler 实例。
func NewWebSocketHandler(h *hub.Hub) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// 允许所有来源连接（生产环境应配置具体的允许来源）
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	return &WebSocketHandler{upgrader: upgrader, hub: h}
}

// HandleConnection 处理 WebSocket 连接请求。
// 认证由 Auth 中间件完成（token 走查询参数），这里只做升级和注册。
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	username := c.GetString(middleware.ContextUsername)
	if username == "" {
		logrus.Warn("WS Handler: username not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	logCtx := logrus.WithField("user_id", username)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写了 HTTP 错误响应，这里只记日志
		logCtx.WithError(err).Error("WS Handler: failed to upgrade connection")
		return
	}

	// 连接 id 是本次连接的瞬态标识，信令转发用它做目标地址
	connID := uuid.NewString()
	logCtx = logCtx.WithField("conn_id", connID)
	logCtx.Info("WS Handler: connection upgraded to WebSocket")

	client := hub.NewClient(h.hub, conn, connID, username)
	if !h.hub.Register(client) {
		logCtx.Error("WS Handler: Hub message channel full, failed to register client")
		client.CloseConn()
		return
	}

	client.Run()
}
