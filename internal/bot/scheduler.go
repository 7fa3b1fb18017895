package bot

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Chat 是机器人向房间发声的通道，由生命周期控制器实现。
type Chat interface {
	BotMessage(roomID, message string)
}

// Rooms 解析房间的队伍名称。房间已销毁时返回 false，
// 机器人把这种情况当作"已经没了"，不是错误。
type Rooms interface {
	TeamLabel(roomID string, team int) (string, bool)
}

// Scheduler 是辩论计时机器人：每秒巡检一次全部被跟踪的会话，
// 推进各自的状态机并播报阶段变化。
//
// 巡检先在自己的互斥锁下做会话快照再逐个推进，推进过程不持自身锁，
// 避免与控制器在房间锁内回调 Track/Untrack 形成环路。
type Scheduler struct {
	chat  Chat
	rooms Rooms
	cfg   Config

	mu       sync.Mutex
	sessions map[string]*Session

	now  func() time.Time
	stop chan struct{}
	done chan struct{}
}

// NewScheduler 创建调度器。
func NewScheduler(chat Chat, rooms Rooms, cfg Config) *Scheduler {
	if chat == nil {
		panic("Chat cannot be nil for Scheduler")
	}
	if rooms == nil {
		panic("Rooms cannot be nil for Scheduler")
	}
	return &Scheduler{
		chat:     chat,
		rooms:    rooms,
		cfg:      cfg,
		sessions: make(map[string]*Session),
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Track 为房间启动计时会话并发出开场欢迎。重复调用是空操作。
func (s *Scheduler) Track(roomID string) {
	s.mu.Lock()
	if _, ok := s.sessions[roomID]; ok {
		s.mu.Unlock()
		logrus.WithField("room_id", roomID).Debug("Bot session already tracked")
		return
	}
	s.sessions[roomID] = newSession(roomID, s.cfg, s.now())
	s.mu.Unlock()

	logrus.WithField("room_id", roomID).Info("Bot session started")
	s.chat.BotMessage(roomID, fmt.Sprintf(
		"Welcome! Debate will start in %d minutes!", minutes(s.cfg.ReadyPeriod)))
}

// Untrack 停止跟踪房间。未跟踪的房间是空操作。
func (s *Scheduler) Untrack(roomID string) {
	s.mu.Lock()
	_, ok := s.sessions[roomID]
	delete(s.sessions, roomID)
	s.mu.Unlock()
	if ok {
		logrus.WithField("room_id", roomID).Info("Bot session removed")
	}
}

// TrackedCount 返回当前跟踪的会话数。
func (s *Scheduler) TrackedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Run 启动每秒一次的巡检循环，应在独立 goroutine 中运行。
func (s *Scheduler) Run() {
	logrus.WithField("component", "bot").Info("Bot scheduler is running...")
	ticker := time.NewTicker(time.Second)
	defer func() {
		ticker.Stop()
		close(s.done)
		logrus.WithField("component", "bot").Info("Bot scheduler stopped")
	}()

	for {
		select {
		case <-ticker.C:
			s.sweep(s.now())
		case <-s.stop:
			return
		}
	}
}

// sweep 对巡检开始时刻的会话快照逐个推进。已关闭的会话在这一轮摘除，
// 巡检期间新加或移除的会话下一轮才会被看到。
func (s *Scheduler) sweep(now time.Time) {
	s.mu.Lock()
	snapshot := make(map[string]*Session, len(s.sessions))
	for id, session := range s.sessions {
		snapshot[id] = session
	}
	s.mu.Unlock()

	for id, session := range snapshot {
		if session.state == StateClosed {
			s.Untrack(id)
			continue
		}
		session.advance(now, s.chat, s.rooms)
	}
}

// Shutdown 停止巡检循环并等待它退出。
func (s *Scheduler) Shutdown() {
	close(s.stop)
	<-s.done
}
