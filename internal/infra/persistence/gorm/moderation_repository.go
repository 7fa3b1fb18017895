package gormpersistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/YofiAsi/debate-back/internal/domain"
)

// GormModerationRepository 是 ModerationRepository 接口的 GORM 实现。
// 审计记录只追加不修改。
type GormModerationRepository struct {
	db *gorm.DB
}

// NewGormModerationRepository 创建 GormModerationRepository 实例。
func NewGormModerationRepository(db *gorm.DB) *GormModerationRepository {
	if db == nil {
		panic("database connection cannot be nil for GormModerationRepository")
	}
	return &GormModerationRepository{db: db}
}

// Save 追加一条拉黑事件。
func (r *GormModerationRepository) Save(ctx context.Context, event *domain.ModerationEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("gorm: save moderation event (room: %s, user: %s): %w",
			event.RoomID, event.ReportedUserID, err)
	}
	return nil
}

// ListByRoom 按发生时间倒序返回某房间的拉黑记录。
func (r *GormModerationRepository) ListByRoom(ctx context.Context, roomID string, limit int) ([]domain.ModerationEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []domain.ModerationEvent
	err := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list moderation events for room %s: %w", roomID, err)
	}
	return events, nil
}
