package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/YofiAsi/debate-back/internal/domain"
)

// ModerationRepository 是 repository.ModerationRepository 的 testify Mock 实现。
type ModerationRepository struct {
	mock.Mock
}

func (m *ModerationRepository) Save(ctx context.Context, event *domain.ModerationEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *ModerationRepository) ListByRoom(ctx context.Context, roomID string, limit int) ([]domain.ModerationEvent, error) {
	args := m.Called(ctx, roomID, limit)
	var events []domain.ModerationEvent
	if args.Get(0) != nil {
		events = args.Get(0).([]domain.ModerationEvent)
	}
	return events, args.Error(1)
}
