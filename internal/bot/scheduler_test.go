package bot

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChat 把机器人播报记在内存里。
type fakeChat struct {
	messages []string
}

func (f *fakeChat) BotMessage(roomID, message string) {
	f.messages = append(f.messages, fmt.Sprintf("%s|%s", roomID, message))
}

func (f *fakeChat) last() string {
	if len(f.messages) == 0 {
		return ""
	}
	return f.messages[len(f.messages)-1]
}

// fakeRooms 用一张表模拟房间的队伍名称，删掉条目即模拟房间销毁。
type fakeRooms struct {
	teams map[string][2]string
}

func (f *fakeRooms) TeamLabel(roomID string, team int) (string, bool) {
	names, ok := f.teams[roomID]
	if !ok {
		return "", false
	}
	if team == 2 {
		return names[1], true
	}
	return names[0], true
}

func testConfig() Config {
	return Config{
		ReadyPeriod:      3 * time.Minute,
		TurnDuration:     5 * time.Minute,
		MaxDuration:      20 * time.Minute,
		AnnounceInterval: time.Minute,
		ClosingNotice:    5 * time.Minute,
	}
}

func newTestScheduler(t *testing.T, base time.Time) (*Scheduler, *fakeChat, *fakeRooms) {
	t.Helper()
	chat := &fakeChat{}
	rooms := &fakeRooms{teams: map[string][2]string{
		"room-1": {"For", "Against"},
	}}
	sched := NewScheduler(chat, rooms, testConfig())
	sched.now = func() time.Time { return base }
	return sched, chat, rooms
}

func TestScheduler_FullDebateTimeline(t *testing.T) {
	// Arrange
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	sched, chat, _ := newTestScheduler(t, base)

	// Act & Assert: 跟踪即发开场欢迎
	sched.Track("room-1")
	assert.Equal(t, "room-1|Welcome! Debate will start in 3 minutes!", chat.last())
	assert.Equal(t, 1, sched.TrackedCount())

	// 准备期内什么都不发
	sched.sweep(base.Add(time.Second))
	assert.Len(t, chat.messages, 1)

	// 准备期结束，一队开讲
	sched.sweep(base.Add(3 * time.Minute))
	assert.Equal(t, "room-1|Debate started! For team, your turn! You have 5 minutes!", chat.last())

	// 发言一分钟后的剩余时间播报
	sched.sweep(base.Add(4 * time.Minute))
	assert.Equal(t, "room-1|For team, you have 4 minutes left!", chat.last())

	// 单轮时间用完，交棒给二队
	sched.sweep(base.Add(8 * time.Minute))
	assert.Equal(t, "room-1|Time's up! Against team, your turn!", chat.last())

	// 再交回一队
	sched.sweep(base.Add(13 * time.Minute))
	assert.Equal(t, "room-1|Time's up! For team, your turn!", chat.last())

	// 离总时长上限不足收尾提醒窗口：同一轮先播剩余时间，再发收尾提醒
	sched.sweep(base.Add(15 * time.Minute))
	require.GreaterOrEqual(t, len(chat.messages), 2)
	assert.Equal(t, "room-1|For team, you have 3 minutes left!", chat.messages[len(chat.messages)-2])
	assert.Equal(t, "room-1|Debate will end in 5 minutes!", chat.last())

	// 总时长用完进入终态，这一轮不再播报
	before := len(chat.messages)
	sched.sweep(base.Add(20 * time.Minute))
	assert.Len(t, chat.messages, before)
	assert.Equal(t, 1, sched.TrackedCount())

	// 终态会话在下一轮巡检被摘除
	sched.sweep(base.Add(20*time.Minute + time.Second))
	assert.Equal(t, 0, sched.TrackedCount())
}

func TestScheduler_AnnounceEveryInterval(t *testing.T) {
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	sched, chat, _ := newTestScheduler(t, base)
	sched.Track("room-1")
	sched.sweep(base.Add(3 * time.Minute)) // 开讲

	// 同一分钟内重复巡检不会重复播报
	sched.sweep(base.Add(4 * time.Minute))
	count := len(chat.messages)
	sched.sweep(base.Add(4*time.Minute + 30*time.Second))
	assert.Len(t, chat.messages, count, "同一播报间隔内不应重复")

	// 下一分钟再播
	sched.sweep(base.Add(5 * time.Minute))
	assert.Equal(t, "room-1|For team, you have 3 minutes left!", chat.last())
}

func TestScheduler_MissingRoomStallsSession(t *testing.T) {
	// Arrange: 房间表里没有这个房间（已销毁或尚未可见）
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	sched, chat, rooms := newTestScheduler(t, base)
	delete(rooms.teams, "room-1")
	sched.Track("room-1")
	welcomeCount := len(chat.messages)

	// Act: 准备期早已过去，但房间解析不到，整轮空转
	sched.sweep(base.Add(10 * time.Minute))

	// Assert
	assert.Len(t, chat.messages, welcomeCount, "房间不存在时不应播报")
	assert.Equal(t, 1, sched.TrackedCount(), "会话保留，等房间回来或被 Untrack")

	// 房间回来后，下一轮巡检照常推进
	rooms.teams["room-1"] = [2]string{"For", "Against"}
	sched.sweep(base.Add(10*time.Minute + time.Second))
	assert.Equal(t, "room-1|Debate started! For team, your turn! You have 5 minutes!", chat.last())
}

func TestScheduler_TrackIsIdempotent(t *testing.T) {
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	sched, chat, _ := newTestScheduler(t, base)

	sched.Track("room-1")
	sched.Track("room-1")

	assert.Equal(t, 1, sched.TrackedCount())
	assert.Len(t, chat.messages, 1, "重复 Track 不应再发欢迎")
}

func TestScheduler_UntrackStopsAnnouncements(t *testing.T) {
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	sched, chat, _ := newTestScheduler(t, base)
	sched.Track("room-1")

	sched.Untrack("room-1")
	sched.Untrack("room-1") // 重复摘除是空操作

	assert.Equal(t, 0, sched.TrackedCount())
	count := len(chat.messages)
	sched.sweep(base.Add(10 * time.Minute))
	assert.Len(t, chat.messages, count)
}

func TestScheduler_RunAndShutdown(t *testing.T) {
	base := time.Now()
	sched, _, _ := newTestScheduler(t, base)

	go sched.Run()
	sched.Shutdown()
	// Shutdown 返回即表示巡检循环已退出
}
