package protocol

import (
	"encoding/json"

	"github.com/YofiAsi/debate-back/internal/domain"
)

// 出站载荷。房间快照直接复用 domain.Room 的 JSON 形状。

// RoomsPayload 对应 all_rooms：roomId -> 房间快照。
type RoomsPayload struct {
	Rooms map[string]*domain.Room `json:"rooms"`
}

// RoomCreatedPayload 对应 room_created。
type RoomCreatedPayload struct {
	RoomID string       `json:"roomId"`
	Room   *domain.Room `json:"room"`
}

// RoomDeletedPayload 对应 room_deleted。
type RoomDeletedPayload struct {
	RoomID string `json:"roomId"`
}

// UserLeftPayload 对应 user_left，会话页用它做媒体拆线。
type UserLeftPayload struct {
	ConnID string `json:"sid"`
	UserID string `json:"userId"`
}

// QuorumReachedPayload 对应 report_quorum_reached。
type QuorumReachedPayload struct {
	ReportedUserID string       `json:"reportedUserId"`
	RoomData       *domain.Room `json:"roomData"`
}

// UserReadyPayload 对应 user_ready_in_conversation。
type UserReadyPayload struct {
	UserID string `json:"userId"`
	ConnID string `json:"userSid"`
}

// MessagePayload 对应 message_received。Bot 为 true 时消息来自计时机器人。
type MessagePayload struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
	Bot     bool   `json:"bot"`
}

// 信号种类：offer 由发起方推给被叫，answer 由被叫回给发起方。
const (
	SignalKindOffer  = "offer"
	SignalKindAnswer = "answer"
)

// SignalForwardedPayload 对应 signal_forwarded，两种信号共用一个事件名，
// 用 Kind 区分。CallerID 只在 offer 上出现，CalleeID 只在 answer 上出现。
type SignalForwardedPayload struct {
	Kind        string          `json:"kind"`
	Signal      json.RawMessage `json:"signal"`
	UserID      string          `json:"userId"`
	CallerID    string          `json:"callerId,omitempty"`
	CalleeID    string          `json:"calleeId,omitempty"`
	IsSpectator bool            `json:"isSpectator,omitempty"`
}

// ErrorPayload 是各错误事件共用的载荷。
type ErrorPayload struct {
	Error string `json:"error"`
}
