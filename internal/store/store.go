package store

import (
	"sync"

	"github.com/YofiAsi/debate-back/internal/domain"
)

// Store 集中持有全部实时状态：房间集合，以及
// 连接 id ↔ 用户 id ↔ 房间 id 的会话注册表。
// 它是一个显式构造的对象而不是包级全局变量，测试可以各建各的实例。
//
// 内嵌的 RWMutex 覆盖三张表。生命周期控制器的每个操作在持锁状态下
// 完成整个变更（见 service 包），机器人巡检只拿读锁；
// 不变量的成立依赖这条全局互斥边界。
type Store struct {
	sync.RWMutex

	rooms      map[string]*domain.Room
	connToUser map[string]string
	connToRoom map[string]string
}

// New 创建空的 Store，可传入预置房间（例如演示用的种子房间）。
func New(seed ...*domain.Room) *Store {
	s := &Store{
		rooms:      make(map[string]*domain.Room),
		connToUser: make(map[string]string),
		connToRoom: make(map[string]string),
	}
	for _, room := range seed {
		s.rooms[room.ID] = room
	}
	return s
}

// Room 返回指定房间，调用方需持有锁。
func (s *Store) Room(roomID string) (*domain.Room, bool) {
	room, ok := s.rooms[roomID]
	return room, ok
}

// PutRoom 登记房间，调用方需持有写锁。
func (s *Store) PutRoom(room *domain.Room) {
	s.rooms[room.ID] = room
}

// DeleteRoom 移除房间，调用方需持有写锁。
func (s *Store) DeleteRoom(roomID string) {
	delete(s.rooms, roomID)
}

// Rooms 返回房间表本体，调用方需持有锁且不得在锁外继续引用。
func (s *Store) Rooms() map[string]*domain.Room {
	return s.rooms
}

// UserActiveElsewhere 检查用户是否已是其他房间的成员（辩手或旁观者）。
// 单用户单房间的不变量就在这里落地。调用方需持有锁。
func (s *Store) UserActiveElsewhere(userID, exceptRoomID string) (string, bool) {
	for id, room := range s.rooms {
		if id == exceptRoomID {
			continue
		}
		if room.IsMember(userID) {
			return id, true
		}
	}
	return "", false
}

// BindConn 把连接登记到用户和房间，调用方需持有写锁。
func (s *Store) BindConn(connID, userID, roomID string) {
	s.connToUser[connID] = userID
	s.connToRoom[connID] = roomID
}

// UnbindConn 清除连接的注册信息，调用方需持有写锁。
// 对未登记的连接调用是无害的空操作（重连竞态属于良性情况）。
func (s *Store) UnbindConn(connID string) {
	delete(s.connToUser, connID)
	delete(s.connToRoom, connID)
}

// ConnSession 返回连接绑定的用户与房间，调用方需持有锁。
func (s *Store) ConnSession(connID string) (userID, roomID string, ok bool) {
	userID, ok = s.connToUser[connID]
	if !ok {
		return "", "", false
	}
	return userID, s.connToRoom[connID], true
}
