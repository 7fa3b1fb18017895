package tasks

import (
	"encoding/json"

	"github.com/YofiAsi/debate-back/internal/domain"
)

// 定义任务类型常量
const (
	// TypeModerationPersist 把拉黑审计事件写进数据库。
	TypeModerationPersist = "moderation:persist"
	// TypeRoomJanitor 周期性清扫过期的空房间。
	TypeRoomJanitor = "room:janitor"
)

// ModerationPersistPayload 是拉黑审计任务的数据结构。
type ModerationPersistPayload struct {
	Event domain.ModerationEvent
}

// NewModerationPersistTask 序列化一条拉黑审计任务的载荷。
func NewModerationPersistTask(event domain.ModerationEvent) ([]byte, error) {
	payload := ModerationPersistPayload{Event: event}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return payloadBytes, nil
}

// JanitorPayload 是清扫任务的数据结构。GraceMinutes 是房间预定开始时间
// 过去多久之后才算过期。
type JanitorPayload struct {
	GraceMinutes int `json:"grace_minutes"`
}

// NewJanitorTask 序列化一次清扫任务的载荷。
func NewJanitorTask(graceMinutes int) ([]byte, error) {
	return json.Marshal(JanitorPayload{GraceMinutes: graceMinutes})
}
