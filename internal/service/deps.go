package service

import "github.com/YofiAsi/debate-back/internal/domain"

// Broadcaster 是控制器对外发声的唯一通道，由 hub.Hub 实现。
// 所有方法都是尽力送达：目标连接不在了就静默丢弃，绝不阻塞控制器。
type Broadcaster interface {
	// ToConn 只发给单个连接（调用方范围的应答和错误）。
	ToConn(connID, event string, payload any)
	// ToRoom 发给房间订阅组，except 为要跳过的连接 id，可为空。
	ToRoom(roomID, event string, payload any, except string)
	// ToLobby 发给大厅（未进入任何房间的连接）。
	ToLobby(event string, payload any, except string)

	// Subscribe / Unsubscribe 维护连接与房间订阅组、大厅之间的归属。
	Subscribe(connID, roomID string)
	Unsubscribe(connID, roomID string)
	// CloseRoom 解散整个订阅组（房间销毁时）。
	CloseRoom(roomID string)
}

// BotControl 是控制器对计时机器人的开关，由 bot.Scheduler 实现。
type BotControl interface {
	// Track 为房间启动一个计时会话（重复调用是空操作）。
	Track(roomID string)
	// Untrack 停止跟踪，房间销毁时调用。
	Untrack(roomID string)
}

// AuditSink 异步记录拉黑事件，由 worker 包的 asynq 投递器实现。
// 失败只记日志，不影响房间流程。
type AuditSink interface {
	RecordQuorum(event domain.ModerationEvent)
}
