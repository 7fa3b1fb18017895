package worker

import (
	"context"
	"errors"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/YofiAsi/debate-back/internal/repository"
	"github.com/YofiAsi/debate-back/internal/tasks"
)

// WorkerServer 封装 Asynq Worker Server 的启动和关闭逻辑。
type WorkerServer struct {
	server         *asynq.Server
	scheduler      *asynq.Scheduler
	log            *logrus.Entry
	moderationRepo repository.ModerationRepository
	pruner         RoomPruner
	janitorGrace   int // 分钟
}

// NewWorkerServer 创建 WorkerServer 实例。
func NewWorkerServer(redisOpt asynq.RedisClientOpt, moderationRepo repository.ModerationRepository, pruner RoomPruner, janitorGraceMinutes int, logger *logrus.Logger) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				taskID := ""
				if rw := task.ResultWriter(); rw != nil {
					taskID = rw.TaskID()
				}
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_id":   taskID,
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
		},
	)

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})

	return &WorkerServer{
		server:         server,
		scheduler:      scheduler,
		log:            logEntry,
		moderationRepo: moderationRepo,
		pruner:         pruner,
		janitorGrace:   janitorGraceMinutes,
	}
}

// Start 运行 Worker Server 和周期任务调度器。
// 应该在单独的 goroutine 中调用。
func (ws *WorkerServer) Start() {
	mux := asynq.NewServeMux()

	moderationHandler := NewModerationPersistHandler(ws.moderationRepo)
	mux.HandleFunc(tasks.TypeModerationPersist, moderationHandler.ProcessTask)

	janitorHandler := NewJanitorHandler(ws.pruner)
	mux.HandleFunc(tasks.TypeRoomJanitor, janitorHandler.ProcessTask)

	janitorPayload, err := tasks.NewJanitorTask(ws.janitorGrace)
	if err != nil {
		ws.log.Fatalf("Could not build janitor task payload: %v", err)
	}
	if _, err := ws.scheduler.Register("@every 5m",
		asynq.NewTask(tasks.TypeRoomJanitor, janitorPayload, asynq.Queue("low"))); err != nil {
		ws.log.Fatalf("Could not register janitor schedule: %v", err)
	}
	go func() {
		if err := ws.scheduler.Run(); err != nil {
			ws.log.Errorf("Scheduler stopped with error: %v", err)
		}
	}()

	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(mux); err != nil {
		if !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		} else {
			ws.log.Info("Worker server stopped.")
		}
	}
}

// Shutdown 优雅地关闭 Worker Server 和调度器。
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.scheduler.Shutdown()
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
