package service

import (
	"encoding/json"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/YofiAsi/debate-back/internal/protocol"
)

// Router 实现 hub.EventHandler：按事件名解包强类型请求、校验、
// 调用控制器，并把哨兵错误翻译成只发给调用方的错误事件。
// 任何一条事件的失败都只影响它自己，绝不让进程倒下。
type Router struct {
	debate *DebateService
	cast   Broadcaster
}

// NewRouter 创建事件路由。
func NewRouter(debate *DebateService, cast Broadcaster) *Router {
	if debate == nil {
		panic("DebateService cannot be nil for Router")
	}
	if cast == nil {
		panic("Broadcaster cannot be nil for Router")
	}
	return &Router{debate: debate, cast: cast}
}

// validated 是入站请求的公共面：解包后先过 Validate 再进控制器。
type validated interface {
	Validate() error
}

// decode 解包并校验请求体。失败时给调用方发 invalid_payload 并返回 false。
func (r *Router) decode(connID string, data json.RawMessage, req validated) bool {
	if err := json.Unmarshal(data, req); err != nil {
		r.cast.ToConn(connID, protocol.EventInvalidPayload,
			protocol.ErrorPayload{Error: "malformed payload"})
		return false
	}
	if err := req.Validate(); err != nil {
		r.cast.ToConn(connID, protocol.EventInvalidPayload,
			protocol.ErrorPayload{Error: err.Error()})
		return false
	}
	return true
}

// HandleEvent 由 Hub 的事件循环同步调用，一次处理一条。
func (r *Router) HandleEvent(connID, userID, event string, data json.RawMessage) {
	var err error

	switch event {
	case protocol.EventFetchAllRooms:
		err = r.debate.FetchAllRooms(connID)

	case protocol.EventCreateRoom:
		var req protocol.CreateRoomRequest
		if r.decode(connID, data, &req) {
			err = r.debate.CreateRoom(connID, &req)
		}

	case protocol.EventJoinRoom:
		var req protocol.JoinRoomRequest
		if r.decode(connID, data, &req) {
			err = r.debate.Join(connID, &req)
		}

	case protocol.EventLeaveClick:
		var req protocol.RoomUserRequest
		if r.decode(connID, data, &req) {
			err = r.debate.Leave(connID, &req)
		}

	case protocol.EventFetchRoomData:
		var req protocol.RoomRequest
		if r.decode(connID, data, &req) {
			err = r.debate.FetchRoomData(connID, &req)
		}

	case protocol.EventSwitchTeam:
		var req protocol.RoomUserRequest
		if r.decode(connID, data, &req) {
			err = r.debate.SwitchTeam(connID, &req)
		}

	case protocol.EventSpectatorClick:
		var req protocol.RoomUserRequest
		if r.decode(connID, data, &req) {
			err = r.debate.SpectatorClick(connID, &req)
		}

	case protocol.EventDebaterClick:
		var req protocol.RoomUserRequest
		if r.decode(connID, data, &req) {
			err = r.debate.DebaterClick(connID, &req)
		}

	case protocol.EventReadyClick:
		var req protocol.RoomUserRequest
		if r.decode(connID, data, &req) {
			err = r.debate.Ready(connID, &req)
		}

	case protocol.EventReportUser:
		var req protocol.ReportUserRequest
		if r.decode(connID, data, &req) {
			err = r.debate.Report(connID, &req)
		}

	case protocol.EventKickUser:
		var req protocol.RoomUserRequest
		if r.decode(connID, data, &req) {
			err = r.debate.Kick(connID, &req)
		}

	case protocol.EventStartConvo:
		var req protocol.RoomRequest
		if r.decode(connID, data, &req) {
			err = r.debate.StartConversation(connID, &req)
		}

	case protocol.EventWebcamReady:
		var req protocol.RoomUserRequest
		if r.decode(connID, data, &req) {
			err = r.debate.WebcamReady(connID, &req)
		}

	case protocol.EventSendingSignal:
		var req protocol.SendingSignalRequest
		if r.decode(connID, data, &req) {
			err = r.debate.SendingSignal(connID, &req)
		}

	case protocol.EventReturningSignal:
		var req protocol.ReturningSignalRequest
		if r.decode(connID, data, &req) {
			err = r.debate.ReturningSignal(connID, &req)
		}

	case protocol.EventSendMessage:
		var req protocol.SendMessageRequest
		if r.decode(connID, data, &req) {
			err = r.debate.SendMessage(connID, &req)
		}

	default:
		logrus.WithFields(logrus.Fields{
			"conn_id": connID,
			"event":   event,
		}).Warn("Received unknown event")
		r.cast.ToConn(connID, protocol.EventInvalidPayload,
			protocol.ErrorPayload{Error: "unknown event: " + event})
		return
	}

	if err != nil {
		r.emitError(connID, event, err)
	}
}

// HandleDisconnect 由 Hub 在连接摘除后调用。
func (r *Router) HandleDisconnect(connID string) {
	r.debate.Disconnect(connID)
}

// emitError 把哨兵错误映射到对应的错误事件，只发给调用方。
func (r *Router) emitError(connID, event string, err error) {
	logrus.WithFields(logrus.Fields{
		"conn_id": connID,
		"event":   event,
	}).WithError(err).Info("Event rejected")

	payload := protocol.ErrorPayload{Error: err.Error()}
	switch {
	case errors.Is(err, ErrRoomNotFound):
		r.cast.ToConn(connID, protocol.EventRoomNotFound, payload)
	case errors.Is(err, ErrRoomFull):
		r.cast.ToConn(connID, protocol.EventRoomFull, payload)
	case errors.Is(err, ErrAlreadyInRoom):
		r.cast.ToConn(connID, protocol.EventAlreadyInRoom, payload)
	case errors.Is(err, ErrConversationInProgress):
		r.cast.ToConn(connID, protocol.EventConvoInProgress, payload)
	case errors.Is(err, ErrUserNotInRoom):
		r.cast.ToConn(connID, protocol.EventUserNotInRoom, payload)
	case errors.Is(err, ErrBlacklisted):
		// 黑名单用户收到的是踢出通知，不是普通错误
		r.cast.ToConn(connID, protocol.EventKickedFromRoom, payload)
	default:
		r.cast.ToConn(connID, protocol.EventInvalidPayload, payload)
	}
}
