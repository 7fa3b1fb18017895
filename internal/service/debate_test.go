package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YofiAsi/debate-back/internal/domain"
	"github.com/YofiAsi/debate-back/internal/protocol"
	"github.com/YofiAsi/debate-back/internal/service"
	"github.com/YofiAsi/debate-back/internal/store"
)

// --- 测试替身 ---

// sent 记录一次广播调用。
type sent struct {
	scope   string // "conn" / "room" / "lobby"
	target  string
	event   string
	payload any
	except  string
}

// fakeCast 实现 service.Broadcaster，把所有广播记在内存里供断言。
type fakeCast struct {
	log         []sent
	subs        map[string]string // connID -> roomID
	closedRooms []string
}

func newFakeCast() *fakeCast {
	return &fakeCast{subs: make(map[string]string)}
}

func (f *fakeCast) ToConn(connID, event string, payload any) {
	f.log = append(f.log, sent{scope: "conn", target: connID, event: event, payload: payload})
}

func (f *fakeCast) ToRoom(roomID, event string, payload any, except string) {
	f.log = append(f.log, sent{scope: "room", target: roomID, event: event, payload: payload, except: except})
}

func (f *fakeCast) ToLobby(event string, payload any, except string) {
	f.log = append(f.log, sent{scope: "lobby", event: event, payload: payload, except: except})
}

func (f *fakeCast) Subscribe(connID, roomID string)   { f.subs[connID] = roomID }
func (f *fakeCast) Unsubscribe(connID, roomID string) { delete(f.subs, connID) }
func (f *fakeCast) CloseRoom(roomID string)           { f.closedRooms = append(f.closedRooms, roomID) }

// lastTo 返回发给某个目标的最后一条指定事件，没有则返回 nil。
func (f *fakeCast) lastTo(scope, target, event string) *sent {
	for i := len(f.log) - 1; i >= 0; i-- {
		s := f.log[i]
		if s.scope == scope && s.target == target && s.event == event {
			return &s
		}
	}
	return nil
}

// fakeBots 实现 service.BotControl。
type fakeBots struct {
	tracked   []string
	untracked []string
}

func (f *fakeBots) Track(roomID string)   { f.tracked = append(f.tracked, roomID) }
func (f *fakeBots) Untrack(roomID string) { f.untracked = append(f.untracked, roomID) }

// fakeAudit 实现 service.AuditSink。
type fakeAudit struct {
	events []domain.ModerationEvent
}

func (f *fakeAudit) RecordQuorum(event domain.ModerationEvent) {
	f.events = append(f.events, event)
}

// --- 测试脚手架 ---

func newTestService(t *testing.T) (*service.DebateService, *fakeCast, *fakeBots, *fakeAudit, *store.Store) {
	t.Helper()
	st := store.New()
	cast := newFakeCast()
	bots := &fakeBots{}
	audit := &fakeAudit{}
	svc := service.NewDebateService(st, cast, bots, audit)
	return svc, cast, bots, audit, st
}

// createRoom 建房并返回新房间 id。
func createRoom(t *testing.T, svc *service.DebateService, cast *fakeCast, req protocol.CreateRoomRequest) string {
	t.Helper()
	require.NoError(t, svc.CreateRoom("creator-conn", &req))
	created := cast.lastTo("conn", "creator-conn", protocol.EventRoomCreated)
	require.NotNil(t, created, "建房后应收到 room_created")
	payload, ok := created.payload.(protocol.RoomCreatedPayload)
	require.True(t, ok)
	require.NotEmpty(t, payload.RoomID)
	return payload.RoomID
}

func teamRoomRequest(size int) protocol.CreateRoomRequest {
	return protocol.CreateRoomRequest{
		Name:               "Climate showdown",
		Tags:               []string{"politics"},
		Teams:              true,
		TeamNames:          [2]string{"A", "B"},
		RoomSize:           size,
		TimeToStartMinutes: 10,
	}
}

func join(t *testing.T, svc *service.DebateService, roomID, userID, connID string) {
	t.Helper()
	require.NoError(t, svc.Join(connID, &protocol.JoinRoomRequest{RoomID: roomID, UserID: userID}))
}

// --- 加入与准入 ---

func TestJoin_TeamAssignmentAndCapacity(t *testing.T) {
	// Arrange: size=2 的组队房间
	svc, cast, _, _, st := newTestService(t)
	roomID := createRoom(t, svc, cast, teamRoomRequest(2))

	// Act: 两人先后加入
	join(t, svc, roomID, "user1", "conn1")
	join(t, svc, roomID, "user2", "conn2")

	// Assert: 第一人成为主持人，两人分在不同队伍
	room, ok := st.Room(roomID)
	require.True(t, ok)
	assert.Equal(t, "user1", room.Moderator)
	p1 := room.Users.Get("user1")
	p2 := room.Users.Get("user2")
	require.NotNil(t, p1)
	require.NotNil(t, p2)
	assert.NotEqual(t, p1.Team, p2.Team, "两人应分在不同队伍")
	assert.True(t, room.IsFull())

	// Act: 不允许旁观的满员房间，第三人被拒
	err := svc.Join("conn3", &protocol.JoinRoomRequest{RoomID: roomID, UserID: "user3"})

	// Assert
	assert.True(t, errors.Is(err, service.ErrRoomFull))
	assert.False(t, room.IsMember("user3"))
}

func TestJoin_FullRoomAcceptsSpectator(t *testing.T) {
	svc, cast, _, _, st := newTestService(t)
	req := teamRoomRequest(1)
	req.AllowSpectators = true
	roomID := createRoom(t, svc, cast, req)

	join(t, svc, roomID, "user1", "conn1")
	join(t, svc, roomID, "user2", "conn2")

	room, _ := st.Room(roomID)
	assert.True(t, room.Users.Has("user1"))
	assert.True(t, room.Spectators.Has("user2"))
	joined := cast.lastTo("conn", "conn2", protocol.EventSpectatorJoined)
	assert.NotNil(t, joined, "满员加入应收到 spectator_joined")
}

func TestJoin_OneRoomPerUser(t *testing.T) {
	svc, cast, _, _, _ := newTestService(t)
	roomA := createRoom(t, svc, cast, teamRoomRequest(4))
	roomB := createRoom(t, svc, cast, teamRoomRequest(4))

	join(t, svc, roomA, "user1", "conn1")

	err := svc.Join("conn1b", &protocol.JoinRoomRequest{RoomID: roomB, UserID: "user1"})
	assert.True(t, errors.Is(err, service.ErrAlreadyInRoom))
}

func TestJoin_ReconnectRebindsConnection(t *testing.T) {
	// Arrange
	svc, cast, _, _, st := newTestService(t)
	roomID := createRoom(t, svc, cast, teamRoomRequest(4))
	join(t, svc, roomID, "user1", "conn-old")
	room, _ := st.Room(roomID)
	require.Equal(t, 1, room.Users.Len())

	// Act: 同一用户带新连接回来
	join(t, svc, roomID, "user1", "conn-new")

	// Assert: 成员数不变，连接绑定换到新连接
	assert.Equal(t, 1, room.Users.Len(), "重连不应改变成员数")
	assert.Equal(t, "conn-new", room.Users.Get("user1").ConnID)
	_, _, ok := st.ConnSession("conn-old")
	assert.False(t, ok, "旧连接的注册应被清除")
	userID, boundRoom, ok := st.ConnSession("conn-new")
	require.True(t, ok)
	assert.Equal(t, "user1", userID)
	assert.Equal(t, roomID, boundRoom)

	// Act: 旧连接随后断开，不应把人移出房间
	svc.Disconnect("conn-old")
	assert.True(t, room.IsMember("user1"), "旧连接断开是良性竞态")
}

func TestJoin_ConversationInProgress(t *testing.T) {
	svc, cast, _, _, _ := newTestService(t)
	roomID := createRoom(t, svc, cast, teamRoomRequest(4))
	join(t, svc, roomID, "user1", "conn1")
	require.NoError(t, svc.StartConversation("conn1", &protocol.RoomRequest{RoomID: roomID}))

	err := svc.Join("conn2", &protocol.JoinRoomRequest{RoomID: roomID, UserID: "user2"})
	assert.True(t, errors.Is(err, service.ErrConversationInProgress))
}

func TestJoin_RoomNotFound(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	err := svc.Join("conn1", &protocol.JoinRoomRequest{RoomID: "nope", UserID: "user1"})
	assert.True(t, errors.Is(err, service.ErrRoomNotFound))
}

// --- 举报与法定人数 ---

func TestReport_QuorumBlacklistsAndEjects(t *testing.T) {
	// Arrange: 三名辩手，门槛 floor(3/2)+1 = 2
	svc, cast, _, audit, st := newTestService(t)
	roomID := createRoom(t, svc, cast, teamRoomRequest(4))
	join(t, svc, roomID, "userX", "connX")
	join(t, svc, roomID, "user2", "conn2")
	join(t, svc, roomID, "user3", "conn3")

	// Act: 两人举报 X
	require.NoError(t, svc.Report("conn2", &protocol.ReportUserRequest{
		ReportedUserID: "userX", UserID: "user2", RoomID: roomID}))
	require.NoError(t, svc.Report("conn3", &protocol.ReportUserRequest{
		ReportedUserID: "userX", UserID: "user3", RoomID: roomID}))

	// Assert: X 被拉黑并移出，房间收到法定人数事件，X 本人收到踢出通知
	room, _ := st.Room(roomID)
	assert.True(t, room.Blacklist.Has("userX"))
	assert.False(t, room.IsMember("userX"), "拉黑的用户不应继续留在成员列表")
	assert.NotNil(t, cast.lastTo("room", roomID, protocol.EventQuorumReached))
	assert.NotNil(t, cast.lastTo("conn", "connX", protocol.EventKickedFromRoom))

	// 审计事件带着判定时刻的分子分母
	require.Len(t, audit.events, 1)
	assert.Equal(t, "userX", audit.events[0].ReportedUserID)
	assert.Equal(t, 2, audit.events[0].ReporterCount)
	assert.Equal(t, 3, audit.events[0].ActiveCount)

	// Act: X 重新加入被拒
	err := svc.Join("connX2", &protocol.JoinRoomRequest{RoomID: roomID, UserID: "userX"})
	assert.True(t, errors.Is(err, service.ErrBlacklisted))
}

func TestReport_ToggleIsIdempotent(t *testing.T) {
	svc, cast, _, _, st := newTestService(t)
	roomID := createRoom(t, svc, cast, teamRoomRequest(6))
	join(t, svc, roomID, "userX", "connX")
	join(t, svc, roomID, "user2", "conn2")
	join(t, svc, roomID, "user3", "conn3")
	join(t, svc, roomID, "user4", "conn4")

	req := &protocol.ReportUserRequest{ReportedUserID: "userX", UserID: "user2", RoomID: roomID}
	room, _ := st.Room(roomID)

	require.NoError(t, svc.Report("conn2", req))
	assert.Equal(t, 1, room.ReportersOf("userX"))

	// 同一举报人再点一次是撤销
	require.NoError(t, svc.Report("conn2", req))
	assert.Equal(t, 0, room.ReportersOf("userX"))
}

func TestReport_NonMemberReporterIgnored(t *testing.T) {
	svc, cast, _, _, st := newTestService(t)
	roomID := createRoom(t, svc, cast, teamRoomRequest(4))
	join(t, svc, roomID, "userX", "connX")

	require.NoError(t, svc.Report("stranger-conn", &protocol.ReportUserRequest{
		ReportedUserID: "userX", UserID: "stranger", RoomID: roomID}))

	room, _ := st.Room(roomID)
	assert.Equal(t, 0, room.ReportersOf("userX"))
}

func TestLeave_ShrinkingDenominatorTriggersQuorum(t *testing.T) {
	// Arrange: 四名辩手，门槛 3；两人举报 X 还不够
	svc, cast, _, _, st := newTestService(t)
	roomID := createRoom(t, svc, cast, teamRoomRequest(6))
	join(t, svc, roomID, "userX", "connX")
	join(t, svc, roomID, "user2", "conn2")
	join(t, svc, roomID, "user3", "conn3")
	join(t, svc, roomID, "user4", "conn4")

	require.NoError(t, svc.Report("conn2", &protocol.ReportUserRequest{
		ReportedUserID: "userX", UserID: "user2", RoomID: roomID}))
	require.NoError(t, svc.Report("conn3", &protocol.ReportUserRequest{
		ReportedUserID: "userX", UserID: "user3", RoomID: roomID}))
	room, _ := st.Room(roomID)
	require.True(t, room.IsMember("userX"), "两票对门槛三还不够")

	// Act: 没参与举报的 user4 离开，辩手降到 3，门槛降到 2
	require.NoError(t, svc.Leave("conn4", &protocol.RoomUserRequest{RoomID: roomID, UserID: "user4"}))

	// Assert: 已有的两票现在达标
	assert.True(t, room.Blacklist.Has("userX"), "分母缩小后既有举报应触发拉黑")
	assert.False(t, room.IsMember("userX"))
}

// --- 退出、断线与房间销毁 ---

func TestLeave_ModeratorContinuity(t *testing.T) {
	svc, cast, _, _, st := newTestService(t)
	roomID := createRoom(t, svc, cast, teamRoomRequest(4))
	join(t, svc, roomID, "user1", "conn1")
	join(t, svc, roomID, "user2", "conn2")
	join(t, svc, roomID, "user3", "conn3")

	room, _ := st.Room(roomID)
	require.Equal(t, "user1", room.Moderator)

	require.NoError(t, svc.Leave("conn1", &protocol.RoomUserRequest{RoomID: roomID, UserID: "user1"}))

	// 最早加入的剩余辩手接任
	assert.Equal(t, "user2", room.Moderator)
}

func TestLeave_ModeratorFallsBackToSpectator(t *testing.T) {
	svc, cast, _, _, st := newTestService(t)
	req := teamRoomRequest(1)
	req.AllowSpectators = true
	roomID := createRoom(t, svc, cast, req)
	join(t, svc, roomID, "user1", "conn1") // 辩手 + 主持人
	join(t, svc, roomID, "user2", "conn2") // 满员，成为旁观者

	require.NoError(t, svc.Leave("conn1", &protocol.RoomUserRequest{RoomID: roomID, UserID: "user1"}))

	room, _ := st.Room(roomID)
	assert.Equal(t, "user2", room.Moderator, "没有辩手时主持人交给最早的旁观者")
}

func TestLeave_PurgesReporterVotes(t *testing.T) {
	svc, cast, _, _, st := newTestService(t)
	roomID := createRoom(t, svc, cast, teamRoomRequest(6))
	join(t, svc, roomID, "userX", "connX")
	join(t, svc, roomID, "user2", "conn2")
	join(t, svc, roomID, "user3", "conn3")
	join(t, svc, roomID, "user4", "conn4")

	require.NoError(t, svc.Report("conn2", &protocol.ReportUserRequest{
		ReportedUserID: "userX", UserID: "user2", RoomID: roomID}))

	// 举报人离开，他的票被清掉
	require.NoError(t, svc.Leave("conn2", &protocol.RoomUserRequest{RoomID: roomID, UserID: "user2"}))

	room, _ := st.Room(roomID)
	assert.Equal(t, 0, room.ReportersOf("userX"))
	_, hasOwnSet := room.UserReports["user2"]
	assert.False(t, hasOwnSet, "离开的用户自己的举报账目应被删除")
}

func TestDisconnect_LastUserMidConversationDestroysRoom(t *testing.T) {
	// Arrange: 会话中的房间只剩一名辩手
	svc, cast, bots, _, st := newTestService(t)
	roomID := createRoom(t, svc, cast, teamRoomRequest(2))
	join(t, svc, roomID, "user1", "conn1")
	require.NoError(t, svc.StartConversation("conn1", &protocol.RoomRequest{RoomID: roomID}))
	require.Contains(t, bots.tracked, roomID)

	// Act
	svc.Disconnect("conn1")

	// Assert: 房间销毁、机器人停掉、大厅收到 room_deleted
	_, ok := st.Room(roomID)
	assert.False(t, ok, "会话中最后一名辩手断线应销毁房间")
	assert.Contains(t, bots.untracked, roomID)
	deleted := cast.lastTo("lobby", "", protocol.EventRoomDeleted)
	require.NotNil(t, deleted)
	assert.Equal(t, protocol.RoomDeletedPayload{RoomID: roomID}, deleted.payload)
	assert.Contains(t, cast.closedRooms, roomID)
}

func TestDisconnect_EmptyWaitingRoomIsDestroyed(t *testing.T) {
	svc, cast, _, _, st := newTestService(t)
	roomID := createRoom(t, svc, cast, teamRoomRequest(4))
	join(t, svc, roomID, "user1", "conn1")

	svc.Disconnect("conn1")

	_, ok := st.Room(roomID)
	assert.False(t, ok, "最后一名成员断线后空房间应销毁")
}

func TestLeave_EmptyWaitingRoomSurvives(t *testing.T) {
	// 主动退出留下的空房间继续挂在列表里，等人再来或清扫任务处理
	svc, cast, _, _, st := newTestService(t)
	roomID := createRoom(t, svc, cast, teamRoomRequest(4))
	join(t, svc, roomID, "user1", "conn1")

	require.NoError(t, svc.Leave("conn1", &protocol.RoomUserRequest{RoomID: roomID, UserID: "user1"}))

	_, ok := st.Room(roomID)
	assert.True(t, ok)
}

func TestDisconnect_UnknownConnIsNoop(t *testing.T) {
	svc, cast, _, _, _ := newTestService(t)
	svc.Disconnect("never-seen")
	assert.Empty(t, cast.log)
}

// --- 身份切换与就绪 ---

func TestSpectatorDebaterTransitions(t *testing.T) {
	svc, cast, _, _, st := newTestService(t)
	req := teamRoomRequest(4)
	req.AllowSpectators = true
	roomID := createRoom(t, svc, cast, req)
	join(t, svc, roomID, "user1", "conn1")
	join(t, svc, roomID, "user2", "conn2")

	room, _ := st.Room(roomID)

	// 辩手转旁观
	require.NoError(t, svc.SpectatorClick("conn2", &protocol.RoomUserRequest{RoomID: roomID, UserID: "user2"}))
	assert.True(t, room.Spectators.Has("user2"))
	assert.False(t, room.Users.Has("user2"))

	// 旁观转回辩手
	require.NoError(t, svc.DebaterClick("conn2", &protocol.RoomUserRequest{RoomID: roomID, UserID: "user2"}))
	assert.True(t, room.Users.Has("user2"))
	_, hasReports := room.UserReports["user2"]
	assert.True(t, hasReports, "回归的辩手要有举报账目")
}

func TestSpectatorRoundTripKeepsReports(t *testing.T) {
	// Arrange: 四名辩手，门槛 3；两人举报 X 还差一票
	svc, cast, _, _, st := newTestService(t)
	req := teamRoomRequest(6)
	req.AllowSpectators = true
	roomID := createRoom(t, svc, cast, req)
	join(t, svc, roomID, "userX", "connX")
	join(t, svc, roomID, "user2", "conn2")
	join(t, svc, roomID, "user3", "conn3")
	join(t, svc, roomID, "user4", "conn4")
	require.NoError(t, svc.Report("conn2", &protocol.ReportUserRequest{
		ReportedUserID: "userX", UserID: "user2", RoomID: roomID}))
	require.NoError(t, svc.Report("conn3", &protocol.ReportUserRequest{
		ReportedUserID: "userX", UserID: "user3", RoomID: roomID}))

	// Act: X 转一圈旁观再回来
	require.NoError(t, svc.SpectatorClick("connX", &protocol.RoomUserRequest{RoomID: roomID, UserID: "userX"}))
	require.NoError(t, svc.DebaterClick("connX", &protocol.RoomUserRequest{RoomID: roomID, UserID: "userX"}))

	// Assert: 票没有被洗掉
	room, _ := st.Room(roomID)
	assert.Equal(t, 2, room.ReportersOf("userX"), "旁观一圈不能清空身上的举报")
	assert.False(t, room.Blacklist.Has("userX"))

	// 第三票直接达标
	require.NoError(t, svc.Report("conn4", &protocol.ReportUserRequest{
		ReportedUserID: "userX", UserID: "user4", RoomID: roomID}))
	assert.True(t, room.Blacklist.Has("userX"))
}

func TestDebaterClick_StandingReportsReEvaluated(t *testing.T) {
	// Arrange: 五名辩手，门槛 3；两人举报 X 还不够
	svc, cast, _, _, st := newTestService(t)
	req := teamRoomRequest(6)
	req.AllowSpectators = true
	roomID := createRoom(t, svc, cast, req)
	join(t, svc, roomID, "userX", "connX")
	join(t, svc, roomID, "userA", "connA")
	join(t, svc, roomID, "userB", "connB")
	join(t, svc, roomID, "userC", "connC")
	join(t, svc, roomID, "userD", "connD")
	require.NoError(t, svc.Report("connA", &protocol.ReportUserRequest{
		ReportedUserID: "userX", UserID: "userA", RoomID: roomID}))
	require.NoError(t, svc.Report("connB", &protocol.ReportUserRequest{
		ReportedUserID: "userX", UserID: "userB", RoomID: roomID}))

	// X 转旁观，没举报的两人相继离开，辩手降到 2
	require.NoError(t, svc.SpectatorClick("connX", &protocol.RoomUserRequest{RoomID: roomID, UserID: "userX"}))
	require.NoError(t, svc.Leave("connC", &protocol.RoomUserRequest{RoomID: roomID, UserID: "userC"}))
	require.NoError(t, svc.Leave("connD", &protocol.RoomUserRequest{RoomID: roomID, UserID: "userD"}))
	room, _ := st.Room(roomID)
	require.False(t, room.Blacklist.Has("userX"), "旁观者不参与法定人数判定")

	// Act: X 回归辩手席，分母变成 3、门槛 2，留存的两票立即达标
	require.NoError(t, svc.DebaterClick("connX", &protocol.RoomUserRequest{RoomID: roomID, UserID: "userX"}))

	// Assert
	assert.True(t, room.Blacklist.Has("userX"), "回归时要用留存的举报重审法定人数")
	assert.False(t, room.IsMember("userX"))
}

func TestDebaterClick_FullRoomRejected(t *testing.T) {
	// Arrange: size=2，user2 转旁观后 user3 补位占掉席位
	svc, cast, _, _, st := newTestService(t)
	req := teamRoomRequest(2)
	req.AllowSpectators = true
	roomID := createRoom(t, svc, cast, req)
	join(t, svc, roomID, "user1", "conn1")
	join(t, svc, roomID, "user2", "conn2")
	room, _ := st.Room(roomID)

	require.NoError(t, svc.SpectatorClick("conn2", &protocol.RoomUserRequest{RoomID: roomID, UserID: "user2"}))
	join(t, svc, roomID, "user3", "conn3")
	require.True(t, room.IsFull())

	// Act: user2 想回来，但房间已满
	err := svc.DebaterClick("conn2", &protocol.RoomUserRequest{RoomID: roomID, UserID: "user2"})

	// Assert
	assert.True(t, errors.Is(err, service.ErrRoomFull))
	assert.True(t, room.Spectators.Has("user2"))
}

func TestDebaterClick_RebalancesOvercrowdedTeam(t *testing.T) {
	// Arrange: size=4，单队席位上限 ceil(4/2)=2。加入顺序 user1(二队)、
	// user2(一队)、userC(二队)；userC 转旁观后 user4 补进二队占满上限
	svc, cast, _, _, st := newTestService(t)
	req := teamRoomRequest(4)
	req.AllowSpectators = true
	roomID := createRoom(t, svc, cast, req)
	join(t, svc, roomID, "user1", "conn1")
	join(t, svc, roomID, "user2", "conn2")
	join(t, svc, roomID, "userC", "connC")

	room, _ := st.Room(roomID)
	require.NoError(t, svc.SpectatorClick("connC", &protocol.RoomUserRequest{RoomID: roomID, UserID: "userC"}))
	join(t, svc, roomID, "user4", "conn4")
	require.Equal(t, 2, room.Users.CountTeam(false), "二队此刻应已满员")

	// Act: userC 回归，原队伍（二队）会超编，应被换到一队
	require.NoError(t, svc.DebaterClick("connC", &protocol.RoomUserRequest{RoomID: roomID, UserID: "userC"}))

	// Assert
	assert.True(t, room.Users.Get("userC").Team, "回归时原队伍超编应自动换队")
	assert.Equal(t, 2, room.Users.CountTeam(false))
	assert.Equal(t, 2, room.Users.CountTeam(true))
}

func TestSwitchTeamAndReadyToggles(t *testing.T) {
	svc, cast, _, _, st := newTestService(t)
	roomID := createRoom(t, svc, cast, teamRoomRequest(4))
	join(t, svc, roomID, "user1", "conn1")

	room, _ := st.Room(roomID)
	p := room.Users.Get("user1")
	teamBefore := p.Team

	require.NoError(t, svc.SwitchTeam("conn1", &protocol.RoomUserRequest{RoomID: roomID, UserID: "user1"}))
	assert.Equal(t, !teamBefore, p.Team)

	require.NoError(t, svc.Ready("conn1", &protocol.RoomUserRequest{RoomID: roomID, UserID: "user1"}))
	assert.True(t, p.Ready)
	require.NoError(t, svc.Ready("conn1", &protocol.RoomUserRequest{RoomID: roomID, UserID: "user1"}))
	assert.False(t, p.Ready)
}

// --- 会话与信令 ---

func TestStartConversation_TracksBotOnlyForTeamRooms(t *testing.T) {
	svc, cast, bots, _, _ := newTestService(t)

	teamRoom := createRoom(t, svc, cast, teamRoomRequest(4))
	join(t, svc, teamRoom, "user1", "conn1")
	require.NoError(t, svc.StartConversation("conn1", &protocol.RoomRequest{RoomID: teamRoom}))
	assert.Contains(t, bots.tracked, teamRoom)

	freeReq := protocol.CreateRoomRequest{Name: "free talk", RoomSize: 4}
	freeRoom := createRoom(t, svc, cast, freeReq)
	join(t, svc, freeRoom, "user2", "conn2")
	require.NoError(t, svc.StartConversation("conn2", &protocol.RoomRequest{RoomID: freeRoom}))
	assert.NotContains(t, bots.tracked, freeRoom, "无组队的房间不启动计时机器人")
}

func TestWebcamReady_StaleConnectionIgnored(t *testing.T) {
	svc, cast, _, _, st := newTestService(t)
	roomID := createRoom(t, svc, cast, teamRoomRequest(4))
	join(t, svc, roomID, "user1", "conn-old")
	join(t, svc, roomID, "user1", "conn-new") // 重连

	// 旧连接发来的就绪被静默忽略
	require.NoError(t, svc.WebcamReady("conn-old", &protocol.RoomUserRequest{RoomID: roomID, UserID: "user1"}))
	room, _ := st.Room(roomID)
	assert.False(t, room.Users.Get("user1").CameraReady)

	// 新连接生效
	require.NoError(t, svc.WebcamReady("conn-new", &protocol.RoomUserRequest{RoomID: roomID, UserID: "user1"}))
	assert.True(t, room.Users.Get("user1").CameraReady)
	assert.NotNil(t, cast.lastTo("conn", "conn-new", protocol.EventUsersInConvo))
}

func TestSignalForwarding(t *testing.T) {
	svc, cast, _, _, _ := newTestService(t)

	// offer：发起方 → 目标连接
	require.NoError(t, svc.SendingSignal("caller-conn", &protocol.SendingSignalRequest{
		UserSidToSendSignal: "callee-conn",
		UserID:              "user1",
		CallerID:            "caller-conn",
		Signal:              []byte(`{"sdp":"offer"}`),
	}))
	offer := cast.lastTo("conn", "callee-conn", protocol.EventSignalForwarded)
	require.NotNil(t, offer)
	offerPayload := offer.payload.(protocol.SignalForwardedPayload)
	assert.Equal(t, protocol.SignalKindOffer, offerPayload.Kind)
	assert.Equal(t, "caller-conn", offerPayload.CallerID)

	// answer：应答方 → 发起方连接，calleeId 是应答方自己的连接
	require.NoError(t, svc.ReturningSignal("callee-conn", &protocol.ReturningSignalRequest{
		CallerID: "caller-conn",
		UserID:   "user2",
		Signal:   []byte(`{"sdp":"answer"}`),
	}))
	answer := cast.lastTo("conn", "caller-conn", protocol.EventSignalForwarded)
	require.NotNil(t, answer)
	answerPayload := answer.payload.(protocol.SignalForwardedPayload)
	assert.Equal(t, protocol.SignalKindAnswer, answerPayload.Kind)
	assert.Equal(t, "callee-conn", answerPayload.CalleeID)
}

func TestSendMessage_BroadcastsToRoom(t *testing.T) {
	svc, cast, _, _, _ := newTestService(t)
	roomID := createRoom(t, svc, cast, teamRoomRequest(4))
	join(t, svc, roomID, "user1", "conn1")

	require.NoError(t, svc.SendMessage("conn1", &protocol.SendMessageRequest{
		Message: "hello", RoomID: roomID, UserID: "user1"}))

	msg := cast.lastTo("room", roomID, protocol.EventMessageReceived)
	require.NotNil(t, msg)
	payload := msg.payload.(protocol.MessagePayload)
	assert.Equal(t, "hello", payload.Message)
	assert.False(t, payload.Bot)
	assert.Empty(t, msg.except, "聊天消息也要发回给发送者")
}

func TestBotMessage_MarkedAsBot(t *testing.T) {
	svc, cast, _, _, _ := newTestService(t)
	svc.BotMessage("some-room", "Debate started!")

	msg := cast.lastTo("room", "some-room", protocol.EventMessageReceived)
	require.NotNil(t, msg)
	payload := msg.payload.(protocol.MessagePayload)
	assert.True(t, payload.Bot)
	assert.Equal(t, service.BotUserID, payload.UserID)
}

// --- 清扫 ---

func TestPruneExpiredRooms(t *testing.T) {
	svc, cast, _, _, st := newTestService(t)

	// 预定开始时间早已过去、又始终没人的房间
	st.PutRoom(&domain.Room{
		ID:          "stale-room",
		Name:        "ghost town",
		RoomSize:    4,
		TimeToStart: time.Now().Add(-2 * time.Hour).Unix(),
		Users:       domain.NewParticipantList(),
		Spectators:  domain.NewParticipantList(),
		Blacklist:   domain.NewStringSet(),
		UserReports: make(map[string]domain.StringSet),
	})

	// 有人的房间和还没到点的空房间都不能动
	occupiedRoom := createRoom(t, svc, cast, teamRoomRequest(4))
	join(t, svc, occupiedRoom, "user1", "conn1")
	freshRoom := createRoom(t, svc, cast, teamRoomRequest(4))

	removed := svc.PruneExpiredRooms(time.Hour)

	assert.Equal(t, 1, removed)
	_, ok := st.Room("stale-room")
	assert.False(t, ok, "过期空房间应被清掉")
	_, ok = st.Room(occupiedRoom)
	assert.True(t, ok, "有人的房间不能清")
	_, ok = st.Room(freshRoom)
	assert.True(t, ok, "还没到预定开始时间的空房间不能清")
}
