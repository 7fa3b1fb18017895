package worker

import (
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/YofiAsi/debate-back/internal/domain"
	"github.com/YofiAsi/debate-back/internal/tasks"
)

// AuditDispatcher 实现 service.AuditSink：把拉黑事件作为后台任务投递，
// 由 Worker 异步落库。投递失败只记日志，绝不拖住房间流程。
type AuditDispatcher struct {
	client *asynq.Client
}

// NewAuditDispatcher 创建 AuditDispatcher 实例。
func NewAuditDispatcher(client *asynq.Client) *AuditDispatcher {
	if client == nil {
		panic("asynq client cannot be nil for AuditDispatcher")
	}
	return &AuditDispatcher{client: client}
}

// RecordQuorum 把一条拉黑事件排进任务队列。
func (d *AuditDispatcher) RecordQuorum(event domain.ModerationEvent) {
	logCtx := logrus.WithFields(logrus.Fields{
		"room_id":     event.RoomID,
		"reported_id": event.ReportedUserID,
	})

	payload, err := tasks.NewModerationPersistTask(event)
	if err != nil {
		logCtx.WithError(err).Error("Failed to marshal moderation event for audit task")
		return
	}

	task := asynq.NewTask(tasks.TypeModerationPersist, payload, asynq.Queue("default"))
	if _, err := d.client.Enqueue(task); err != nil {
		logCtx.WithError(err).Error("Failed to enqueue moderation audit task")
		return
	}
	logCtx.Debug("Moderation audit task enqueued")
}
