package service

import (
	"github.com/sirupsen/logrus"

	"github.com/YofiAsi/debate-back/internal/domain"
	"github.com/YofiAsi/debate-back/internal/protocol"
)

// 本文件是成员退出的全部路径：主动退出、被踢、断线、举报达标拉黑。
// 它们共享同一套移除机制，区别只在入口和对外通知。

// Leave 处理 leave_click。
func (s *DebateService) Leave(connID string, req *protocol.RoomUserRequest) error {
	s.store.Lock()
	defer s.store.Unlock()
	return s.removeAndSettle(req.RoomID, req.UserID, "leave")
}

// Kick 处理 kick_user。移除语义与 Leave 完全一致，只是操作者不同。
func (s *DebateService) Kick(connID string, req *protocol.RoomUserRequest) error {
	s.store.Lock()
	defer s.store.Unlock()
	return s.removeAndSettle(req.RoomID, req.UserID, "kick")
}

// Disconnect 处理连接断开：查会话注册表，把断线用户按完整退出路径清理。
// 未绑定任何会话的连接（从未进过房间，或重连顶替后的旧连接）是良性情况。
func (s *DebateService) Disconnect(connID string) {
	s.store.Lock()
	defer s.store.Unlock()

	userID, roomID, ok := s.store.ConnSession(connID)
	if !ok {
		logrus.WithField("conn_id", connID).Debug("Disconnect from connection with no session")
		return
	}
	s.store.UnbindConn(connID)

	room, exists := s.store.Room(roomID)
	if !exists || !room.IsMember(userID) {
		return
	}
	// 重连后新连接已经接管了成员资格，旧连接的断开不应把人移出去
	if p := s.participantOf(room, userID); p != nil && p.ConnID != connID {
		logrus.WithFields(logrus.Fields{
			"conn_id": connID,
			"user_id": userID,
			"room_id": roomID,
		}).Debug("Stale connection disconnected, membership kept")
		return
	}

	if err := s.removeAndSettle(roomID, userID, "disconnect"); err != nil {
		logrus.WithFields(logrus.Fields{
			"conn_id": connID,
			"user_id": userID,
			"room_id": roomID,
		}).WithError(err).Warn("Failed to clean up session on disconnect")
		return
	}

	// 彻底空掉的房间只在断线路径销毁；主动退出留下的空房间继续挂在列表里
	if room, ok := s.store.Room(roomID); ok &&
		room.Users.Len() == 0 && room.Spectators.Len() == 0 {
		s.destroyRoom(room)
	}
}

// Report 处理 report_user：同一举报人对同一目标的重复举报是撤销。
func (s *DebateService) Report(connID string, req *protocol.ReportUserRequest) error {
	s.store.Lock()
	defer s.store.Unlock()

	room, ok := s.store.Room(req.RoomID)
	if !ok {
		return ErrRoomNotFound
	}
	if !room.Users.Has(req.ReportedUserID) {
		return ErrUserNotInRoom
	}
	if !room.IsMember(req.UserID) {
		// 非成员的举报不落账也不报错
		logrus.WithFields(logrus.Fields{
			"room_id":     req.RoomID,
			"reporter_id": req.UserID,
		}).Debug("Report from non-member ignored")
		return nil
	}

	reports := room.UserReports[req.ReportedUserID]
	if reports.Has(req.UserID) {
		reports.Remove(req.UserID)
	} else {
		reports.Add(req.UserID)
	}
	logrus.WithFields(logrus.Fields{
		"room_id":     req.RoomID,
		"reported_id": req.ReportedUserID,
		"reporter_id": req.UserID,
		"reporters":   reports.Len(),
		"threshold":   room.QuorumThreshold(),
	}).Info("Report toggled")

	s.enforceQuorum(room)
	s.cast.ToRoom(room.ID, protocol.EventRoomDataUpdated, room, "")
	return nil
}

// removeAndSettle 把用户移出房间并收尾：通知、法定人数重审、
// 会话中房间被搬空时的销毁。调用方需持有写锁。
func (s *DebateService) removeAndSettle(roomID, userID, cause string) error {
	room, ok := s.store.Room(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	p := s.removeUser(room, userID)
	if p == nil {
		return ErrUserNotInRoom
	}

	logrus.WithFields(logrus.Fields{
		"room_id": roomID,
		"user_id": userID,
		"cause":   cause,
	}).Info("User removed from room")

	s.cast.ToRoom(room.ID, protocol.EventUserLeft,
		protocol.UserLeftPayload{ConnID: p.ConnID, UserID: userID}, "")
	s.cast.ToRoom(room.ID, protocol.EventRoomDataUpdated, room, "")
	s.cast.ToLobby(protocol.EventRoomsUpdated, room, "")

	// 分母变小，已有举报可能突然达标
	s.enforceQuorum(room)

	if room.IsConversation && room.Users.Len() == 0 {
		s.cast.ToRoom(room.ID, protocol.EventAllUsersLeft,
			protocol.RoomDeletedPayload{RoomID: room.ID}, "")
		s.destroyRoom(room)
	}
	return nil
}

// removeUser 从房间里摘掉用户：成员列表、举报账目、会话注册表、
// 订阅组和主持人职位。不在房间时返回 nil。调用方需持有写锁。
func (s *DebateService) removeUser(room *domain.Room, userID string) *domain.Participant {
	p := room.Users.Remove(userID)
	if p == nil {
		p = room.Spectators.Remove(userID)
	}
	if p == nil {
		return nil
	}

	delete(room.UserReports, userID)
	for _, reports := range room.UserReports {
		reports.Remove(userID)
	}

	s.store.UnbindConn(p.ConnID)
	s.cast.Unsubscribe(p.ConnID, room.ID)

	if room.Moderator == userID {
		s.reassignModerator(room)
	}
	return p
}

// reassignModerator 把主持人交给最早加入的辩手，没有辩手时交给
// 最早加入的旁观者，都没有就置空。
func (s *DebateService) reassignModerator(room *domain.Room) {
	next := room.Users.First()
	if next == "" {
		next = room.Spectators.First()
	}
	room.Moderator = next
	if next != "" {
		logrus.WithFields(logrus.Fields{
			"room_id":   room.ID,
			"moderator": next,
		}).Info("Moderator reassigned")
	}
}

// enforceQuorum 对每个在场辩手重审举报数，达标即拉黑踢出。
// 每次踢出都会缩小分母并清掉被踢者的举报账目，所以循环到稳定为止。
func (s *DebateService) enforceQuorum(room *domain.Room) {
	for {
		ejected := false
		for _, userID := range room.Users.IDs() {
			if room.ReportersOf(userID) >= room.QuorumThreshold() {
				s.blacklistAndEject(room, userID)
				ejected = true
				break
			}
		}
		if !ejected {
			return
		}
	}
}

// blacklistAndEject 拉黑并移除达到举报门槛的用户。调用方需持有写锁。
func (s *DebateService) blacklistAndEject(room *domain.Room, userID string) {
	reporters := room.ReportersOf(userID)
	active := room.Users.Len()

	room.Blacklist.Add(userID)
	p := s.removeUser(room, userID)

	logrus.WithFields(logrus.Fields{
		"room_id":   room.ID,
		"user_id":   userID,
		"reporters": reporters,
		"active":    active,
	}).Warn("Report quorum reached, user blacklisted")

	if s.audit != nil {
		s.audit.RecordQuorum(domain.ModerationEvent{
			RoomID:         room.ID,
			RoomName:       room.Name,
			ReportedUserID: userID,
			ReporterCount:  reporters,
			ActiveCount:    active,
			OccurredAt:     s.now(),
		})
	}

	if p != nil {
		s.cast.ToConn(p.ConnID, protocol.EventKickedFromRoom,
			protocol.ErrorPayload{Error: ErrBlacklisted.Error()})
		s.cast.ToRoom(room.ID, protocol.EventUserLeft,
			protocol.UserLeftPayload{ConnID: p.ConnID, UserID: userID}, "")
	}
	s.cast.ToRoom(room.ID, protocol.EventQuorumReached,
		protocol.QuorumReachedPayload{ReportedUserID: userID, RoomData: room}, "")
}

// destroyRoom 从 store 摘除房间、解散订阅组、停掉机器人并通知大厅。
// 调用方需持有写锁。
func (s *DebateService) destroyRoom(room *domain.Room) {
	s.store.DeleteRoom(room.ID)
	s.cast.CloseRoom(room.ID)
	if s.bots != nil {
		s.bots.Untrack(room.ID)
	}
	s.cast.ToLobby(protocol.EventRoomDeleted, protocol.RoomDeletedPayload{RoomID: room.ID}, "")
	logrus.WithFields(logrus.Fields{
		"room_id":   room.ID,
		"room_name": room.Name,
	}).Info("Room destroyed")
}

// participantOf 返回用户在房间里的条目，辩手优先。
func (s *DebateService) participantOf(room *domain.Room, userID string) *domain.Participant {
	if p := room.Users.Get(userID); p != nil {
		return p
	}
	return room.Spectators.Get(userID)
}
