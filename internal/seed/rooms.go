package seed

import (
	"time"

	"github.com/YofiAsi/debate-back/internal/domain"
)

// DemoRooms 返回演示用的种子房间，开发环境开着方便前端联调。
// 生产环境靠 SEED_DEMO_ROOMS 开关关掉。
func DemoRooms(now time.Time) []*domain.Room {
	return []*domain.Room{
		{
			ID:              "demo-climate",
			Name:            "Climate policy: carbon tax now?",
			Tags:            []string{"politics", "environment"},
			Teams:           true,
			TeamNames:       [2]string{"For", "Against"},
			RoomSize:        6,
			TimeToStart:     now.Add(15 * time.Minute).Unix(),
			AllowSpectators: true,
			Users:           domain.NewParticipantList(),
			Spectators:      domain.NewParticipantList(),
			PictureID:       3,
			Blacklist:       domain.NewStringSet(),
			UserReports:     make(map[string]domain.StringSet),
		},
		{
			ID:              "demo-open-mic",
			Name:            "Open mic: anything goes",
			Tags:            []string{"casual"},
			Teams:           false,
			RoomSize:        8,
			TimeToStart:     now.Add(30 * time.Minute).Unix(),
			AllowSpectators: true,
			Users:           domain.NewParticipantList(),
			Spectators:      domain.NewParticipantList(),
			PictureID:       7,
			Blacklist:       domain.NewStringSet(),
			UserReports:     make(map[string]domain.StringSet),
		},
	}
}
