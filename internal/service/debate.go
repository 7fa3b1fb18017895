package service

import (
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/YofiAsi/debate-back/internal/domain"
	"github.com/YofiAsi/debate-back/internal/protocol"
	"github.com/YofiAsi/debate-back/internal/store"
)

// DebateService 是房间生命周期控制器：加入、退出、踢出、举报、
// 组队、就绪、会话启动、聊天和信令转发都从这里走，
// 所有不变量也都在这里维护。
//
// 入站事件由 Hub 的单 goroutine 顺序送达，操作之间天然不交错；
// 机器人巡检是第二个写者，所以每个操作仍然在 store 的全局锁内完成，
// 广播在持锁期间同步发出，房间快照因此总是一致的。
type DebateService struct {
	store *store.Store
	cast  Broadcaster
	bots  BotControl
	audit AuditSink

	now func() time.Time
}

// NewDebateService 创建控制器。bots 和 audit 可以为 nil（禁用对应旁路）。
func NewDebateService(st *store.Store, cast Broadcaster, bots BotControl, audit AuditSink) *DebateService {
	if st == nil {
		panic("Store cannot be nil for DebateService")
	}
	if cast == nil {
		panic("Broadcaster cannot be nil for DebateService")
	}
	return &DebateService{
		store: st,
		cast:  cast,
		bots:  bots,
		audit: audit,
		now:   time.Now,
	}
}

// SetBots 绑定计时机器人。调度器的播报回调指向本服务，
// 两者互相持有，只能有一方在构造后绑定（与 Hub/Router 同样的接法）。
func (s *DebateService) SetBots(bots BotControl) {
	s.bots = bots
}

// FetchAllRooms 把当前全部房间快照发给调用方。
func (s *DebateService) FetchAllRooms(connID string) error {
	s.store.RLock()
	defer s.store.RUnlock()

	s.cast.ToConn(connID, protocol.EventAllRooms, protocol.RoomsPayload{Rooms: s.store.Rooms()})
	return nil
}

// FetchRoomData 把单个房间快照发给调用方。
func (s *DebateService) FetchRoomData(connID string, req *protocol.RoomRequest) error {
	s.store.RLock()
	defer s.store.RUnlock()

	room, ok := s.store.Room(req.RoomID)
	if !ok {
		return ErrRoomNotFound
	}
	s.cast.ToConn(connID, protocol.EventRoomData, room)
	return nil
}

// CreateRoom 创建房间并通知大厅。创建者此刻还不是成员，
// 主持人在第一个人成功加入时才落位。
func (s *DebateService) CreateRoom(connID string, req *protocol.CreateRoomRequest) error {
	s.store.Lock()
	defer s.store.Unlock()

	u := uuid.New()
	room := &domain.Room{
		ID:              hex.EncodeToString(u[:]),
		Name:            req.Name,
		Tags:            req.Tags,
		Teams:           req.Teams,
		TeamNames:       req.TeamNames,
		RoomSize:        req.RoomSize,
		TimeToStart:     s.now().Unix() + int64(req.TimeToStartMinutes)*60,
		AllowSpectators: req.AllowSpectators,
		Users:           domain.NewParticipantList(),
		Spectators:      domain.NewParticipantList(),
		PictureID:       req.PictureID,
		Blacklist:       domain.NewStringSet(),
		UserReports:     make(map[string]domain.StringSet),
	}
	s.store.PutRoom(room)

	logrus.WithFields(logrus.Fields{
		"room_id":   room.ID,
		"room_name": room.Name,
		"teams":     room.Teams,
		"room_size": room.RoomSize,
	}).Info("Room created")

	payload := protocol.RoomCreatedPayload{RoomID: room.ID, Room: room}
	s.cast.ToConn(connID, protocol.EventRoomCreated, payload)
	s.cast.ToLobby(protocol.EventRoomCreated, payload, connID)
	return nil
}

// Join 处理 join_room 的全部准入路径。
func (s *DebateService) Join(connID string, req *protocol.JoinRoomRequest) error {
	s.store.Lock()
	defer s.store.Unlock()

	logCtx := logrus.WithFields(logrus.Fields{
		"room_id": req.RoomID,
		"user_id": req.UserID,
		"conn_id": connID,
	})

	room, ok := s.store.Room(req.RoomID)
	if !ok {
		return ErrRoomNotFound
	}

	if room.Blacklist.Has(req.UserID) {
		logCtx.Info("Blacklisted user tried to join")
		return ErrBlacklisted
	}

	// 重连：同一用户带着新连接回来，成员数不变，只换绑定
	if room.IsMember(req.UserID) {
		s.rebindConnection(room, req.UserID, connID)
		logCtx.Info("User reconnected to room")
		s.emitJoined(connID, room, protocol.EventUserJoined)
		return nil
	}

	if otherID, busy := s.store.UserActiveElsewhere(req.UserID, req.RoomID); busy {
		logCtx.WithField("other_room_id", otherID).Info("User tried to join while in another room")
		return ErrAlreadyInRoom
	}

	switch {
	case room.IsConversation:
		if !room.AllowSpectators {
			return ErrConversationInProgress
		}
		s.admit(room, req.UserID, connID, req.PhotoURL, false)
		logCtx.Info("User joined ongoing conversation as spectator")
		s.emitJoined(connID, room, protocol.EventSpectatorJoined)

	case room.IsFull():
		if !room.AllowSpectators {
			return ErrRoomFull
		}
		s.admit(room, req.UserID, connID, req.PhotoURL, false)
		logCtx.Info("Room full, user joined as spectator")
		s.emitJoined(connID, room, protocol.EventSpectatorJoined)

	default:
		s.admit(room, req.UserID, connID, req.PhotoURL, true)
		logCtx.Info("User joined as debater")
		s.emitJoined(connID, room, protocol.EventUserJoined)
	}
	return nil
}

// admit 把用户放进辩手或旁观者列表并接好注册表、订阅组与主持人。
func (s *DebateService) admit(room *domain.Room, userID, connID, photoURL string, debater bool) {
	p := &domain.Participant{ConnID: connID, PhotoURL: photoURL}
	if debater {
		if room.Teams {
			p.Team = s.minorityTeam(room)
		}
		room.Users.Add(userID, p)
		if _, ok := room.UserReports[userID]; !ok {
			room.UserReports[userID] = domain.NewStringSet()
		}
	} else {
		room.Spectators.Add(userID, p)
	}

	if room.Moderator == "" {
		room.Moderator = userID
	}
	s.store.BindConn(connID, userID, room.ID)
	s.cast.Subscribe(connID, room.ID)
}

// minorityTeam 返回当前人数较少的队伍，平局时固定给二队（false）。
func (s *DebateService) minorityTeam(room *domain.Room) bool {
	return room.Users.CountTeam(true) < room.Users.CountTeam(false)
}

// rebindConnection 把成员的旧连接换成新连接。
func (s *DebateService) rebindConnection(room *domain.Room, userID, connID string) {
	p := room.Users.Get(userID)
	if p == nil {
		p = room.Spectators.Get(userID)
	}
	old := p.ConnID
	if old != connID {
		s.store.UnbindConn(old)
		s.cast.Unsubscribe(old, room.ID)
	}
	p.ConnID = connID
	s.store.BindConn(connID, userID, room.ID)
	s.cast.Subscribe(connID, room.ID)
}

// emitJoined 给调用方发准入应答，并把新快照推给房间和大厅。
func (s *DebateService) emitJoined(connID string, room *domain.Room, event string) {
	s.cast.ToConn(connID, event, room)
	s.cast.ToRoom(room.ID, protocol.EventRoomDataUpdated, room, connID)
	s.cast.ToLobby(protocol.EventRoomsUpdated, room, connID)
}
