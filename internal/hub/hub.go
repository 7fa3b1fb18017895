package hub

import (
	"encoding/json"

	"sync"

	"github.com/sirupsen/logrus"

	"github.com/YofiAsi/debate-back/internal/protocol"
)

// EventHandler 接收入站事件。由 service.Router 实现；Hub 不关心业务语义。
type EventHandler interface {
	// HandleEvent 处理一条已解包的客户端事件。
	HandleEvent(connID, userID, event string, data json.RawMessage)
	// HandleDisconnect 在连接被移除后调用。
	HandleDisconnect(connID string)
}

// message 是 Hub 内部通道里流转的消息。
type message struct {
	kind    string // "register" / "unregister" / "event"
	client  *Client
	rawData []byte
}

// Hub 维护活跃连接并完成广播分发：每个房间一个订阅组，
// 另有一个"大厅"集合，包含当前不在任何房间里的连接，
// 房间列表的增量更新只发给大厅。
//
// Run 在单个 goroutine 里顺序消费 messageChan，入站事件严格按到达顺序
// 处理完一条再处理下一条——容量、黑名单、法定人数这些不变量
// 依赖这个单写者模型，这里绝不能为了吞吐改成 go handleEvent。
type Hub struct {
	messageChan chan message

	mu    sync.RWMutex
	conns map[string]*Client            // connID -> client
	rooms map[string]map[string]*Client // roomID -> connID -> client
	lobby map[string]*Client            // 不在任何房间的连接

	handler EventHandler
}

// New 创建 Hub。handler 需要在 Run 之前通过 SetHandler 注入
// （Hub 与控制器互相持有，只能有一方在构造后绑定）。
func New() *Hub {
	return &Hub{
		messageChan: make(chan message, 512),
		conns:       make(map[string]*Client),
		rooms:       make(map[string]map[string]*Client),
		lobby:       make(map[string]*Client),
	}
}

// SetHandler 绑定入站事件处理器，必须在 Run 之前调用一次。
func (h *Hub) SetHandler(handler EventHandler) {
	if handler == nil {
		panic("EventHandler cannot be nil for Hub")
	}
	h.handler = handler
}

// Run 启动 Hub 主事件循环，应在独立 goroutine 中运行。
// 关闭 messageChan 后循环退出。
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	if h.handler == nil {
		panic("Hub.Run called before SetHandler")
	}
	log.Info("Hub is running...")

	for msg := range h.messageChan {
		switch msg.kind {
		case "register":
			h.registerClient(msg.client)
		case "unregister":
			h.unregisterClient(msg.client)
		case "event":
			h.dispatch(msg.client, msg.rawData)
		default:
			log.Warnf("Hub: received unknown internal message kind %q", msg.kind)
		}
	}
	log.Info("Hub is shutting down...")
}

// Register 将新连接排入注册队列。队列满时返回 false，调用方应关闭连接。
func (h *Hub) Register(client *Client) bool {
	return h.queue(message{kind: "register", client: client})
}

func (h *Hub) queue(msg message) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithField("kind", msg.kind).Warn("Hub message channel full, dropping message")
		return false
	}
}

// registerClient 登记连接。新连接先进大厅，直到它加入某个房间。
func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: attempted to register a nil client")
		return
	}
	h.mu.Lock()
	h.conns[client.connID] = client
	h.lobby[client.connID] = client
	h.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"conn_id": client.connID,
		"user_id": client.userID,
	}).Info("Client registered to Hub")
}

// unregisterClient 摘除连接并通知控制器做会话清理。
func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: attempted to unregister a nil client")
		return
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"conn_id": client.connID,
		"user_id": client.userID,
	})

	h.mu.Lock()
	if _, ok := h.conns[client.connID]; !ok {
		// 重连顶替后旧连接会再触发一次 unregister，安静地忽略
		h.mu.Unlock()
		logCtx.Debug("Client already unregistered")
		return
	}
	delete(h.conns, client.connID)
	delete(h.lobby, client.connID)
	for roomID, group := range h.rooms {
		if _, ok := group[client.connID]; ok {
			delete(group, client.connID)
			if len(group) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	client.closeSend()
	h.mu.Unlock()
	logCtx.Info("Client unregistered from Hub")

	// 连接已经从所有集合摘掉，控制器在这之后清理房间成员资格，
	// 它发出的广播不会再打到这条连接上
	h.handler.HandleDisconnect(client.connID)
}

// dispatch 解包信封并把事件交给控制器，同步调用以保证顺序。
func (h *Hub) dispatch(client *Client, raw []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logrus.WithFields(logrus.Fields{
			"conn_id": client.connID,
			"user_id": client.userID,
		}).WithError(err).Warn("Hub: malformed event envelope")
		h.ToConn(client.connID, protocol.EventInvalidPayload,
			protocol.ErrorPayload{Error: "malformed event envelope"})
		return
	}
	h.handler.HandleEvent(client.connID, client.userID, env.Event, env.Data)
}

// --- 广播面，实现 service.Broadcaster ---

// ToConn 向单个连接发送事件。连接不存在时静默丢弃（尽力送达语义）。
func (h *Hub) ToConn(connID, event string, payload any) {
	h.mu.RLock()
	client, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		logrus.WithFields(logrus.Fields{"conn_id": connID, "event": event}).
			Debug("Hub: target connection gone, dropping message")
		return
	}
	h.deliver(client, event, payload)
}

// ToRoom 向房间订阅组广播事件，except 指定要跳过的连接（可为空）。
func (h *Hub) ToRoom(roomID, event string, payload any, except string) {
	h.mu.RLock()
	group := h.rooms[roomID]
	targets := make([]*Client, 0, len(group))
	for connID, client := range group {
		if connID != except {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		h.deliver(client, event, payload)
	}
}

// ToLobby 向大厅（未进入房间的连接）广播事件。
func (h *Hub) ToLobby(event string, payload any, except string) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.lobby))
	for connID, client := range h.lobby {
		if connID != except {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range targets {
		h.deliver(client, event, payload)
	}
}

// Subscribe 把连接从大厅挪进房间订阅组。
func (h *Hub) Subscribe(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.conns[connID]
	if !ok {
		return
	}
	delete(h.lobby, connID)
	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][connID] = client
}

// Unsubscribe 把连接从房间订阅组挪回大厅。
func (h *Hub) Unsubscribe(connID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.rooms[roomID]
	if ok {
		delete(group, connID)
		if len(group) == 0 {
			delete(h.rooms, roomID)
		}
	}
	if client, ok := h.conns[connID]; ok {
		h.lobby[connID] = client
	}
}

// CloseRoom 解散房间订阅组，剩余连接全部回到大厅。
func (h *Hub) CloseRoom(roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for connID, client := range h.rooms[roomID] {
		h.lobby[connID] = client
	}
	delete(h.rooms, roomID)
}

// deliver 序列化并非阻塞地投递，单个慢客户端不能拖住广播。
func (h *Hub) deliver(client *Client, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logrus.WithFields(logrus.Fields{"event": event}).
			WithError(err).Error("Hub: failed to marshal outbound payload")
		return
	}
	out, err := json.Marshal(protocol.Envelope{Event: event, Data: data})
	if err != nil {
		logrus.WithFields(logrus.Fields{"event": event}).
			WithError(err).Error("Hub: failed to marshal outbound envelope")
		return
	}
	if !client.enqueue(out) {
		logrus.WithFields(logrus.Fields{
			"conn_id": client.connID,
			"event":   event,
		}).Warn("Client send channel full or closed, skipping this client")
	}
}

// Shutdown 关闭入口通道，Run 随之退出。
func (h *Hub) Shutdown() {
	close(h.messageChan)
}
