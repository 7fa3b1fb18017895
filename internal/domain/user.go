package domain

import "time"

// User 是身份与资料存储中的账号记录。
// 房间核心从不直接使用这个结构，只消费解析出的 Username 和 Profile。
type User struct {
	ID          uint      `gorm:"primaryKey"`
	Username    string    `gorm:"uniqueIndex;size:191;not null"` // 对外的稳定用户 id
	Password    string    `gorm:"not null"`                      // bcrypt 哈希
	Email       string    `gorm:"uniqueIndex;size:191;not null"`
	DisplayName string    `gorm:"size:191"`
	Tags        []string  `gorm:"serializer:json"`
	PhotoURL    string    `gorm:"size:512"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// Profile 是身份提供方对外暴露的资料字段子集。
type Profile struct {
	UserID      string   `json:"userId"`
	DisplayName string   `json:"name"`
	Tags        []string `json:"tags"`
	PhotoURL    string   `json:"photoUrl"`
}
