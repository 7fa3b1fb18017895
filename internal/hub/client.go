package hub

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. 信令载荷（SDP）可以到几 KB。
	maxMessageSize = 16 * 1024
)

// Client 代表一条已升级的 WebSocket 连接。
// connID 是本次连接的瞬态标识，userID 是认证得到的稳定用户 id。
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	connID string
	userID string

	sendMu sync.Mutex
	closed bool
	send   chan []byte
}

// NewClient 创建 Client 实例。
func NewClient(h *Hub, conn *websocket.Conn, connID, userID string) *Client {
	return &Client{
		hub:    h,
		conn:   conn,
		connID: connID,
		userID: userID,
		send:   make(chan []byte, 256),
	}
}

func (c *Client) ConnID() string { return c.connID }
func (c *Client) UserID() string { return c.userID }
func (c *Client) CloseConn()     { c.conn.Close() }

// enqueue 非阻塞地把一条消息排进发送队列，队列已关闭或已满时返回 false。
// 广播方（机器人巡检、清扫任务）运行在 Hub 事件循环之外，
// 可能在注销关闭 send 之后才拿着旧快照投递，互斥保证这种晚到的
// 投递只是被丢弃，不会写进已关闭的通道。
func (c *Client) enqueue(msg []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// closeSend 关闭发送队列，重复调用是空操作。
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Run 启动客户端的读写 goroutine。
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// ReadPump 把连接上的消息泵进 Hub 的处理通道，连接断开时触发注销。
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.messageChan <- message{kind: "unregister", client: c}:
		case <-time.After(1 * time.Second):
			logrus.WithFields(logrus.Fields{"conn_id": c.connID, "user_id": c.userID}).
				Warn("Timeout sending unregister message to Hub channel")
		}
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"conn_id": c.connID, "user_id": c.userID}).
			Info("readPump exited, unregistered client")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, raw, err := c.conn.ReadMessage()
		if err != nil {
			logCtx := logrus.WithFields(logrus.Fields{"conn_id": c.connID, "user_id": c.userID})
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logCtx.WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				logCtx.Debug("WebSocket connection closed normally or read error")
			}
			break
		}

		if messageType != websocket.TextMessage {
			logrus.WithFields(logrus.Fields{"conn_id": c.connID}).
				Debugf("Received non-text message type: %d", messageType)
			continue
		}

		select {
		case c.hub.messageChan <- message{kind: "event", client: c, rawData: raw}:
		default:
			// Hub 处理不过来时丢弃，尽力送达语义下不排队不重试
			logrus.WithFields(logrus.Fields{"conn_id": c.connID, "user_id": c.userID}).
				Warn("Hub message channel full, dropping client message")
		}
	}
}

// WritePump 把 send 通道里的消息写到连接上，并定期发 ping 保活。
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		logrus.WithFields(logrus.Fields{"conn_id": c.connID, "user_id": c.userID}).
			Info("writePump exited")
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 在注销时关闭了 send 通道
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logrus.WithFields(logrus.Fields{"conn_id": c.connID, "user_id": c.userID}).
					WithError(err).Warn("Failed to write message to websocket")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logrus.WithFields(logrus.Fields{"conn_id": c.connID, "user_id": c.userID}).
					WithError(err).Warn("Failed to send ping message")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})
		}
	}
}
