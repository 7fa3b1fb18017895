package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/YofiAsi/debate-back/internal/tasks"
)

// RoomPruner 是清扫任务对房间核心的回调面，由生命周期控制器实现。
type RoomPruner interface {
	PruneExpiredRooms(grace time.Duration) int
}

// JanitorHandler 周期性清掉预定时间早已过去又始终没人的房间。
type JanitorHandler struct {
	pruner RoomPruner
}

// NewJanitorHandler 创建 Handler 实例。
func NewJanitorHandler(pruner RoomPruner) *JanitorHandler {
	if pruner == nil {
		panic("RoomPruner cannot be nil for JanitorHandler")
	}
	return &JanitorHandler{pruner: pruner}
}

// ProcessTask 实现 asynq.Handler 接口。
func (h *JanitorHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.JanitorPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal janitor payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.GraceMinutes <= 0 {
		payload.GraceMinutes = 60
	}

	removed := h.pruner.PruneExpiredRooms(time.Duration(payload.GraceMinutes) * time.Minute)
	logrus.WithFields(logrus.Fields{
		"task_type": t.Type(),
		"removed":   removed,
	}).Info("Janitor sweep finished")
	return nil
}
