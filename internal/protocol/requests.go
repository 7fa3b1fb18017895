package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// 每个入站事件对应一个强类型请求结构，在进入控制器前完成校验，
// 控制器内部不再面对松散的 map。

var errMissingField = errors.New("missing required field")

func requireField(name, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s", errMissingField, name)
	}
	return nil
}

// CreateRoomRequest 对应 create_room。
type CreateRoomRequest struct {
	Name               string    `json:"name"`
	Tags               []string  `json:"tags"`
	Teams              bool      `json:"teams"`
	TeamNames          [2]string `json:"teamNames"`
	RoomSize           int       `json:"roomSize"`
	TimeToStartMinutes int       `json:"timeToStartMinutes"`
	AllowSpectators    bool      `json:"allowSpectators"`
	Moderator          string    `json:"moderator"`
	PictureID          int       `json:"pictureId"`
}

func (r *CreateRoomRequest) Validate() error {
	if err := requireField("name", r.Name); err != nil {
		return err
	}
	if r.RoomSize <= 0 {
		return fmt.Errorf("roomSize must be positive, got %d", r.RoomSize)
	}
	if r.TimeToStartMinutes < 0 {
		return fmt.Errorf("timeToStartMinutes must not be negative, got %d", r.TimeToStartMinutes)
	}
	if r.Teams && (r.TeamNames[0] == "" || r.TeamNames[1] == "") {
		return errors.New("teamNames requires two non-empty labels when teams are enabled")
	}
	return nil
}

// JoinRoomRequest 对应 join_room。
type JoinRoomRequest struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	PhotoURL string `json:"photoUrl"`
}

func (r *JoinRoomRequest) Validate() error {
	if err := requireField("roomId", r.RoomID); err != nil {
		return err
	}
	return requireField("userId", r.UserID)
}

// RoomUserRequest 覆盖 leave_click / switch_team / spectator_click /
// debater_click / ready_click / kick_user / webcam_ready 的公共形状。
type RoomUserRequest struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

func (r *RoomUserRequest) Validate() error {
	if err := requireField("roomId", r.RoomID); err != nil {
		return err
	}
	return requireField("userId", r.UserID)
}

// RoomRequest 对应 fetch_room_data / start_conversation_click。
type RoomRequest struct {
	RoomID string `json:"roomId"`
}

func (r *RoomRequest) Validate() error {
	return requireField("roomId", r.RoomID)
}

// ReportUserRequest 对应 report_user。UserID 是举报人。
type ReportUserRequest struct {
	ReportedUserID string `json:"reportedUserId"`
	UserID         string `json:"userId"`
	RoomID         string `json:"roomId"`
}

func (r *ReportUserRequest) Validate() error {
	if err := requireField("reportedUserId", r.ReportedUserID); err != nil {
		return err
	}
	if err := requireField("userId", r.UserID); err != nil {
		return err
	}
	return requireField("roomId", r.RoomID)
}

// SendingSignalRequest 对应 sending_signal：发起方把媒体协商载荷
// 定向转发给目标连接。Signal 原样透传，服务端不解析。
type SendingSignalRequest struct {
	UserSidToSendSignal string          `json:"userSidToSendSignal"`
	UserID              string          `json:"userId"`
	CallerID            string          `json:"callerId"`
	Signal              json.RawMessage `json:"signal"`
	IsSpectator         bool            `json:"isSpectator"`
}

func (r *SendingSignalRequest) Validate() error {
	if err := requireField("userSidToSendSignal", r.UserSidToSendSignal); err != nil {
		return err
	}
	if len(r.Signal) == 0 {
		return fmt.Errorf("%w: signal", errMissingField)
	}
	return nil
}

// ReturningSignalRequest 对应 returning_signal：应答方回给发起方连接。
type ReturningSignalRequest struct {
	CallerID string          `json:"callerId"`
	UserID   string          `json:"userId"`
	Signal   json.RawMessage `json:"signal"`
}

func (r *ReturningSignalRequest) Validate() error {
	if err := requireField("callerId", r.CallerID); err != nil {
		return err
	}
	if len(r.Signal) == 0 {
		return fmt.Errorf("%w: signal", errMissingField)
	}
	return nil
}

// SendMessageRequest 对应 send_message。
type SendMessageRequest struct {
	Message string `json:"message"`
	RoomID  string `json:"roomId"`
	UserID  string `json:"userId"`
}

func (r *SendMessageRequest) Validate() error {
	if err := requireField("message", r.Message); err != nil {
		return err
	}
	return requireField("roomId", r.RoomID)
}
