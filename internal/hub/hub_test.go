package hub

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YofiAsi/debate-back/internal/protocol"
)

type nopHandler struct{}

func (nopHandler) HandleEvent(connID, userID, event string, data json.RawMessage) {}
func (nopHandler) HandleDisconnect(connID string)                                 {}

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := New()
	h.SetHandler(nopHandler{})
	return h
}

func TestHub_DeliverAfterUnregisterIsDropped(t *testing.T) {
	// Arrange: 已注册并订阅了房间的连接
	h := newTestHub(t)
	client := NewClient(h, nil, "conn1", "user1")
	h.registerClient(client)
	h.Subscribe("conn1", "room1")

	// 广播方（机器人播报、清扫任务）在锁外先拿到了客户端快照
	snapshot := client

	// Act: 注销关闭了发送队列
	h.unregisterClient(client)

	// Assert: 拿着旧快照的晚到投递被丢弃，不能炸进程
	assert.NotPanics(t, func() {
		h.deliver(snapshot, protocol.EventMessageReceived,
			protocol.MessagePayload{Message: "late", UserID: "bot", Bot: true})
		h.ToRoom("room1", protocol.EventMessageReceived, nil, "")
		h.ToConn("conn1", protocol.EventRoomData, nil)
		h.ToLobby(protocol.EventRoomsUpdated, nil, "")
	})

	// 重复注销（重连顶替后的旧连接）同样无害
	assert.NotPanics(t, func() {
		h.unregisterClient(client)
		client.closeSend()
	})
}

func TestHub_DeliverToActiveClient(t *testing.T) {
	h := newTestHub(t)
	client := NewClient(h, nil, "conn1", "user1")
	h.registerClient(client)

	h.ToConn("conn1", protocol.EventRoomData, map[string]string{"id": "r1"})

	require.Len(t, client.send, 1)
	var env protocol.Envelope
	require.NoError(t, json.Unmarshal(<-client.send, &env))
	assert.Equal(t, protocol.EventRoomData, env.Event)
}

func TestHub_LobbyMembershipFollowsSubscription(t *testing.T) {
	h := newTestHub(t)
	client := NewClient(h, nil, "conn1", "user1")
	h.registerClient(client)

	// 新连接在大厅里，能收到大厅广播
	h.ToLobby(protocol.EventRoomsUpdated, nil, "")
	require.Len(t, client.send, 1)
	<-client.send

	// 进房间后离开大厅，只收房间广播
	h.Subscribe("conn1", "room1")
	h.ToLobby(protocol.EventRoomsUpdated, nil, "")
	assert.Len(t, client.send, 0)
	h.ToRoom("room1", protocol.EventRoomDataUpdated, nil, "")
	require.Len(t, client.send, 1)
	<-client.send

	// 退订后回到大厅
	h.Unsubscribe("conn1", "room1")
	h.ToLobby(protocol.EventRoomsUpdated, nil, "")
	assert.Len(t, client.send, 1)
}
