package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/YofiAsi/debate-back/internal/repository"
	"github.com/YofiAsi/debate-back/internal/tasks"
)

// ModerationPersistHandler 把拉黑审计事件落库。
type ModerationPersistHandler struct {
	moderationRepo repository.ModerationRepository
}

// NewModerationPersistHandler 创建 Handler 实例。
func NewModerationPersistHandler(moderationRepo repository.ModerationRepository) *ModerationPersistHandler {
	if moderationRepo == nil {
		panic("ModerationRepository cannot be nil for ModerationPersistHandler")
	}
	return &ModerationPersistHandler{moderationRepo: moderationRepo}
}

// ProcessTask 实现 asynq.Handler 接口。
func (h *ModerationPersistHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	currentRetry, _ := asynq.GetRetryCount(ctx)
	logCtx := logrus.WithFields(logrus.Fields{
		"task_type": t.Type(),
		"retry":     currentRetry,
	})

	var payload tasks.ModerationPersistPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal moderation task payload")
		// 载荷坏了重试也没用
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := h.moderationRepo.Save(ctx, &payload.Event); err != nil {
		logCtx.WithError(err).Errorf("Failed to save moderation event for user %s", payload.Event.ReportedUserID)
		return fmt.Errorf("failed to save moderation event: %w", err)
	}

	logCtx.WithFields(logrus.Fields{
		"room_id":     payload.Event.RoomID,
		"reported_id": payload.Event.ReportedUserID,
	}).Info("Moderation event persisted")
	return nil
}
