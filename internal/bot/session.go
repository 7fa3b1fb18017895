package bot

import (
	"fmt"
	"math"
	"time"
)

// State 是计时会话的阶段。closed 是终态，进入后等待下一轮巡检摘除。
type State string

const (
	StateWaiting State = "waiting"
	StateTeam1   State = "team_1"
	StateTeam2   State = "team_2"
	StateClosing State = "closing"
	StateClosed  State = "closed"
)

// Config 是一场辩论的计时参数。
type Config struct {
	ReadyPeriod      time.Duration // 开场准备时间
	TurnDuration     time.Duration // 每队单轮发言时间
	MaxDuration      time.Duration // 整场辩论的最长时间
	AnnounceInterval time.Duration // 发言期内的剩余时间播报间隔
	ClosingNotice    time.Duration // 结束前多久发出收尾提醒
}

// DefaultConfig 返回线上默认的计时参数。
func DefaultConfig() Config {
	return Config{
		ReadyPeriod:      3 * time.Minute,
		TurnDuration:     5 * time.Minute,
		MaxDuration:      60 * time.Minute,
		AnnounceInterval: time.Minute,
		ClosingNotice:    10 * time.Minute,
	}
}

// Session 是单个房间的计时状态机。只持有房间 id，
// 每次巡检重新解析，房间没了就整轮空转。
type Session struct {
	roomID string
	cfg    Config

	state          State
	currentTeam    int // 1 或 2
	startTime      time.Time
	lastActionTime time.Time
	announceOffset time.Duration
}

func newSession(roomID string, cfg Config, now time.Time) *Session {
	return &Session{
		roomID:         roomID,
		cfg:            cfg,
		state:          StateWaiting,
		currentTeam:    1,
		startTime:      now,
		lastActionTime: now,
		announceOffset: cfg.AnnounceInterval,
	}
}

// State 返回当前阶段，测试与巡检用。
func (s *Session) State() State { return s.state }

// advance 按当前时刻推进状态机一步，播报通过 chat 发出。
// 房间已经销毁时什么都不做（下一轮巡检自然还会再试）。
func (s *Session) advance(now time.Time, chat Chat, rooms Rooms) {
	teamName, ok := rooms.TeamLabel(s.roomID, s.currentTeam)
	if !ok {
		return
	}

	elapsed := now.Sub(s.lastActionTime)
	totalElapsed := now.Sub(s.startTime)

	switch {
	case s.state == StateWaiting:
		if elapsed >= s.cfg.ReadyPeriod {
			s.state = teamState(s.currentTeam)
			s.lastActionTime = now
			chat.BotMessage(s.roomID, fmt.Sprintf(
				"Debate started! %s team, your turn! You have %d minutes!",
				teamName, minutes(s.cfg.TurnDuration)))
		}

	case s.state == StateTeam1 || s.state == StateTeam2:
		if elapsed >= s.cfg.TurnDuration {
			s.switchTeam(now, chat, rooms)
		} else if elapsed >= s.announceOffset {
			s.announceOffset += s.cfg.AnnounceInterval
			remaining := s.cfg.TurnDuration - elapsed
			chat.BotMessage(s.roomID, fmt.Sprintf(
				"%s team, you have %d minutes left!", teamName, minutes(remaining)))
		}
		if s.cfg.MaxDuration-totalElapsed <= s.cfg.ClosingNotice {
			s.state = StateClosing
			chat.BotMessage(s.roomID, fmt.Sprintf(
				"Debate will end in %d minutes!", minutes(s.cfg.ClosingNotice)))
		}

	case totalElapsed >= s.cfg.MaxDuration:
		s.state = StateClosed
	}
}

// switchTeam 交棒给另一队并重置本轮计时。
func (s *Session) switchTeam(now time.Time, chat Chat, rooms Rooms) {
	s.currentTeam = 3 - s.currentTeam
	s.lastActionTime = now
	s.announceOffset = s.cfg.AnnounceInterval
	s.state = teamState(s.currentTeam)

	teamName, ok := rooms.TeamLabel(s.roomID, s.currentTeam)
	if !ok {
		return
	}
	chat.BotMessage(s.roomID, fmt.Sprintf("Time's up! %s team, your turn!", teamName))
}

func teamState(team int) State {
	if team == 2 {
		return StateTeam2
	}
	return StateTeam1
}

// minutes 把时长换算成对人友好的分钟数，四舍五入。
func minutes(d time.Duration) int {
	return int(math.Round(d.Minutes()))
}
