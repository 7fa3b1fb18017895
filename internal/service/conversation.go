package service

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/YofiAsi/debate-back/internal/domain"
	"github.com/YofiAsi/debate-back/internal/protocol"
)

// 会话页相关操作：组队、就绪、身份切换、会话启动、摄像头就绪、
// 聊天与信令转发。

// BotUserID 是计时机器人在聊天消息里使用的发送者 id。
const BotUserID = "bot"

// SwitchTeam 翻转用户的队伍并广播快照。
func (s *DebateService) SwitchTeam(connID string, req *protocol.RoomUserRequest) error {
	s.store.Lock()
	defer s.store.Unlock()

	room, ok := s.store.Room(req.RoomID)
	if !ok {
		return ErrRoomNotFound
	}
	p := room.Users.Get(req.UserID)
	if p == nil {
		return ErrUserNotInRoom
	}
	p.Team = !p.Team
	s.cast.ToRoom(room.ID, protocol.EventRoomDataUpdated, room, "")
	return nil
}

// Ready 翻转用户的就绪标记并广播快照。
func (s *DebateService) Ready(connID string, req *protocol.RoomUserRequest) error {
	s.store.Lock()
	defer s.store.Unlock()

	room, ok := s.store.Room(req.RoomID)
	if !ok {
		return ErrRoomNotFound
	}
	p := room.Users.Get(req.UserID)
	if p == nil {
		return ErrUserNotInRoom
	}
	p.Ready = !p.Ready
	s.cast.ToRoom(room.ID, protocol.EventRoomDataUpdated, room, "")
	return nil
}

// SpectatorClick 把辩手挪到旁观者列表。
func (s *DebateService) SpectatorClick(connID string, req *protocol.RoomUserRequest) error {
	s.store.Lock()
	defer s.store.Unlock()

	room, ok := s.store.Room(req.RoomID)
	if !ok {
		return ErrRoomNotFound
	}
	p := room.Users.Remove(req.UserID)
	if p == nil {
		return ErrUserNotInRoom
	}
	// 举报账目跟人走：转一圈旁观再回来，身上的举报还在
	room.Spectators.Add(req.UserID, p)
	s.cast.ToRoom(room.ID, protocol.EventRoomDataUpdated, room, "")
	return nil
}

// DebaterClick 把旁观者挪回辩手列表。满员时拒绝；
// 开了组队且回归后原队伍超过半数席位时，先换队再广播。
func (s *DebateService) DebaterClick(connID string, req *protocol.RoomUserRequest) error {
	s.store.Lock()
	defer s.store.Unlock()

	room, ok := s.store.Room(req.RoomID)
	if !ok {
		return ErrRoomNotFound
	}
	if !room.Spectators.Has(req.UserID) {
		return ErrUserNotInRoom
	}
	if room.IsFull() {
		return ErrRoomFull
	}
	p := room.Spectators.Remove(req.UserID)
	room.Users.Add(req.UserID, p)
	if _, ok := room.UserReports[req.UserID]; !ok {
		room.UserReports[req.UserID] = domain.NewStringSet()
	}
	// ceil(room_size/2) 是单队的席位上限
	if room.Teams && room.Users.CountTeam(p.Team) > (room.RoomSize+1)/2 {
		p.Team = !p.Team
	}
	// 旁观期间留存的举报对回归的辩手立即生效
	s.enforceQuorum(room)
	s.cast.ToRoom(room.ID, protocol.EventRoomDataUpdated, room, "")
	return nil
}

// StartConversation 把房间切入会话状态；组队房间同时启动计时机器人。
func (s *DebateService) StartConversation(connID string, req *protocol.RoomRequest) error {
	s.store.Lock()
	defer s.store.Unlock()

	room, ok := s.store.Room(req.RoomID)
	if !ok {
		return ErrRoomNotFound
	}
	room.IsConversation = true

	logrus.WithFields(logrus.Fields{
		"room_id": room.ID,
		"teams":   room.Teams,
	}).Info("Conversation started")

	s.cast.ToRoom(room.ID, protocol.EventConversationStart, room, "")
	s.cast.ToLobby(protocol.EventRoomsUpdated, room, "")

	if room.Teams && s.bots != nil {
		s.bots.Track(room.ID)
	}
	return nil
}

// WebcamReady 标记用户媒体就绪，通知房间其他人，并把在场名单回给调用方。
// 重连后旧连接发来的就绪属于良性竞态，静默忽略。
func (s *DebateService) WebcamReady(connID string, req *protocol.RoomUserRequest) error {
	s.store.Lock()
	defer s.store.Unlock()

	room, ok := s.store.Room(req.RoomID)
	if !ok {
		return ErrRoomNotFound
	}
	p := room.Users.Get(req.UserID)
	if p == nil {
		return ErrUserNotInRoom
	}
	if p.ConnID != connID {
		logrus.WithFields(logrus.Fields{
			"room_id": req.RoomID,
			"user_id": req.UserID,
			"conn_id": connID,
		}).Debug("WebcamReady from stale connection, ignored")
		return nil
	}

	p.CameraReady = true
	s.cast.ToRoom(room.ID, protocol.EventUserReadyInConvo,
		protocol.UserReadyPayload{UserID: req.UserID, ConnID: p.ConnID}, connID)
	s.cast.ToConn(connID, protocol.EventUsersInConvo, room)
	return nil
}

// SendingSignal 把发起方的媒体协商载荷定向转发给目标连接。
// 载荷原样透传，服务端不解析也不存储；目标不在线就丢弃。
func (s *DebateService) SendingSignal(connID string, req *protocol.SendingSignalRequest) error {
	s.cast.ToConn(req.UserSidToSendSignal, protocol.EventSignalForwarded,
		protocol.SignalForwardedPayload{
			Kind:        protocol.SignalKindOffer,
			Signal:      req.Signal,
			UserID:      req.UserID,
			CallerID:    req.CallerID,
			IsSpectator: req.IsSpectator,
		})
	return nil
}

// ReturningSignal 把应答方的载荷回给发起方连接。CalleeID 取应答方的连接 id。
func (s *DebateService) ReturningSignal(connID string, req *protocol.ReturningSignalRequest) error {
	s.cast.ToConn(req.CallerID, protocol.EventSignalForwarded,
		protocol.SignalForwardedPayload{
			Kind:     protocol.SignalKindAnswer,
			Signal:   req.Signal,
			UserID:   req.UserID,
			CalleeID: connID,
		})
	return nil
}

// SendMessage 把聊天消息广播给整个房间（包括发送者自己）。
func (s *DebateService) SendMessage(connID string, req *protocol.SendMessageRequest) error {
	s.store.RLock()
	defer s.store.RUnlock()

	if _, ok := s.store.Room(req.RoomID); !ok {
		return ErrRoomNotFound
	}
	s.cast.ToRoom(req.RoomID, protocol.EventMessageReceived,
		protocol.MessagePayload{Message: req.Message, UserID: req.UserID}, "")
	return nil
}

// --- 计时机器人的回调面（实现 bot.Chat / bot.Rooms） ---

// BotMessage 以机器人身份向房间发聊天消息。不查 store 也不取锁：
// 控制器可能正持有写锁调用到这里（Track 的开场欢迎），
// 而对已销毁房间的广播本来就是无害的空操作。
func (s *DebateService) BotMessage(roomID, message string) {
	s.cast.ToRoom(roomID, protocol.EventMessageReceived,
		protocol.MessagePayload{Message: message, UserID: BotUserID, Bot: true}, "")
}

// TeamLabel 返回房间某一队的名称。房间已销毁时返回 false，
// 巡检把这种情况当作"已经没了"跳过，不是错误。
func (s *DebateService) TeamLabel(roomID string, team int) (string, bool) {
	s.store.RLock()
	defer s.store.RUnlock()
	room, ok := s.store.Room(roomID)
	if !ok {
		return "", false
	}
	return room.TeamName(team), true
}

// --- 清扫任务的回调面 ---

// PruneExpiredRooms 清掉那些预定开始时间早已过去、又始终没人的房间。
// 由后台清扫任务周期性调用，返回删掉的数量。
func (s *DebateService) PruneExpiredRooms(grace time.Duration) int {
	s.store.Lock()
	defer s.store.Unlock()

	cutoff := s.now().Add(-grace).Unix()
	removed := 0
	for _, room := range s.store.Rooms() {
		if room.IsConversation || room.Users.Len() > 0 || room.Spectators.Len() > 0 {
			continue
		}
		if room.TimeToStart < cutoff {
			s.destroyRoom(room)
			removed++
		}
	}
	if removed > 0 {
		logrus.WithField("count", removed).Info("Pruned expired empty rooms")
	}
	return removed
}
