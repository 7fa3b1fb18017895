package protocol

import "encoding/json"

// 入站事件名。客户端发送 {"event": "...", "data": {...}}。
const (
	EventFetchAllRooms    = "fetch_all_rooms"
	EventCreateRoom       = "create_room"
	EventJoinRoom         = "join_room"
	EventLeaveClick       = "leave_click"
	EventFetchRoomData    = "fetch_room_data"
	EventSwitchTeam       = "switch_team"
	EventSpectatorClick   = "spectator_click"
	EventDebaterClick     = "debater_click"
	EventReadyClick       = "ready_click"
	EventReportUser       = "report_user"
	EventKickUser         = "kick_user"
	EventStartConvo       = "start_conversation_click"
	EventWebcamReady      = "webcam_ready"
	EventSendingSignal    = "sending_signal"
	EventReturningSignal  = "returning_signal"
	EventSendMessage      = "send_message"
)

// 出站事件名。服务端发送同样的 {"event","data"} 信封。
const (
	EventAllRooms           = "all_rooms"
	EventRoomCreated        = "room_created"
	EventUserJoined         = "user_joined"
	EventSpectatorJoined    = "spectator_joined"
	EventRoomDataUpdated    = "room_data_updated"
	EventRoomsUpdated       = "rooms_updated"
	EventRoomDeleted        = "room_deleted"
	EventRoomData           = "room_data"
	EventUserLeft           = "user_left"
	EventAllUsersLeft       = "all_users_left"
	EventQuorumReached      = "report_quorum_reached"
	EventKickedFromRoom     = "kicked_from_room"
	EventConversationStart  = "conversation_started"
	EventUserReadyInConvo   = "user_ready_in_conversation"
	EventUsersInConvo       = "users_in_conversation"
	EventMessageReceived    = "message_received"
	EventSignalForwarded    = "signal_forwarded"

	// 仅发给调用方的错误事件。
	EventRoomNotFound       = "room_not_found"
	EventRoomFull           = "room_full"
	EventAlreadyInRoom      = "already_in_room"
	EventConvoInProgress    = "conversation_in_progress"
	EventUserNotInRoom      = "user_not_in_room"
	EventInvalidPayload     = "invalid_payload"
)

// Envelope 是进出双向共用的消息信封。
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}
