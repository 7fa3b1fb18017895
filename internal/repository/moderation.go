package repository

import (
	"context"

	"github.com/YofiAsi/debate-back/internal/domain"
)

// ModerationRepository 持久化举报拉黑的审计记录。
type ModerationRepository interface {
	// Save 追加一条拉黑事件。
	Save(ctx context.Context, event *domain.ModerationEvent) error

	// ListByRoom 按时间倒序返回某房间的拉黑记录。
	ListByRoom(ctx context.Context, roomID string, limit int) ([]domain.ModerationEvent, error)
}
