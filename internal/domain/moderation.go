package domain

import "time"

// ModerationEvent 记录一次举报达到法定人数导致的拉黑。
// 房间本身不落库，但运营需要事后审查驱逐记录，所以这类事件
// 通过后台任务异步持久化，失败不影响房间流程。
type ModerationEvent struct {
	ID             uint      `gorm:"primaryKey"`
	RoomID         string    `gorm:"index;size:64;not null"`
	RoomName       string    `gorm:"size:191"`
	ReportedUserID string    `gorm:"index;size:191;not null"`
	ReporterCount  int       `gorm:"not null"`
	ActiveCount    int       `gorm:"not null"` // 判定时刻的辩手人数（法定人数的分母）
	OccurredAt     time.Time `gorm:"index;not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}
