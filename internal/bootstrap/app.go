package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/YofiAsi/debate-back/internal/bot"
	"github.com/YofiAsi/debate-back/internal/domain"
	httpHandler "github.com/YofiAsi/debate-back/internal/handler/http"
	wsHandler "github.com/YofiAsi/debate-back/internal/handler/websocket"
	"github.com/YofiAsi/debate-back/internal/hub"
	gormpersistence "github.com/YofiAsi/debate-back/internal/infra/persistence/gorm"
	"github.com/YofiAsi/debate-back/internal/infra/setup"
	"github.com/YofiAsi/debate-back/internal/middleware"
	"github.com/YofiAsi/debate-back/internal/seed"
	"github.com/YofiAsi/debate-back/internal/service"
	"github.com/YofiAsi/debate-back/internal/store"
	"github.com/YofiAsi/debate-back/internal/worker"
)

// Config 结构体存储从环境变量或 .env 文件加载的配置。
type Config struct {
	DBUser        string
	DBPassword    string
	DBHost        string
	DBPort        string
	DBName        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	JWTSecret     string
	ServerPort    string
	LogLevel      string
	AppEnv        string

	RateLimitMax    int
	RateLimitWindow time.Duration
	JWTExpiryHours  int

	BotReadyMinutes    int
	BotTurnMinutes     int
	BotMaxMinutes      int
	BotClosingMinutes  int
	JanitorGraceMin    int
	SeedDemoRooms      bool
}

// LoadConfig 从环境变量加载配置。
func LoadConfig() (*Config, error) {
	// 优先加载 .env 文件（如果存在），允许只用环境变量
	_ = godotenv.Load()

	cfg := &Config{
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBHost:        os.Getenv("DB_HOST"),
		DBPort:        os.Getenv("DB_PORT"),
		DBName:        os.Getenv("DB_NAME"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		ServerPort:    os.Getenv("SERVER_PORT"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		AppEnv:        os.Getenv("APP_ENV"),

		RateLimitMax:    100,
		RateLimitWindow: 1 * time.Second,
		JWTExpiryHours:  24,

		BotReadyMinutes:   3,
		BotTurnMinutes:    5,
		BotMaxMinutes:     60,
		BotClosingMinutes: 10,
		JanitorGraceMin:   60,
	}

	cfg.RedisDB, _ = strconv.Atoi(os.Getenv("REDIS_DB"))
	cfg.SeedDemoRooms = os.Getenv("SEED_DEMO_ROOMS") == "true"

	overrideInt := func(envName string, dst *int) {
		if raw := os.Getenv(envName); raw != "" {
			if v, err := strconv.Atoi(raw); err == nil && v > 0 {
				*dst = v
			} else {
				logrus.Warnf("Invalid %s '%s', keeping default %d", envName, raw, *dst)
			}
		}
	}
	overrideInt("BOT_READY_MINUTES", &cfg.BotReadyMinutes)
	overrideInt("BOT_TURN_MINUTES", &cfg.BotTurnMinutes)
	overrideInt("BOT_MAX_MINUTES", &cfg.BotMaxMinutes)
	overrideInt("BOT_CLOSING_MINUTES", &cfg.BotClosingMinutes)
	overrideInt("JANITOR_GRACE_MINUTES", &cfg.JanitorGraceMin)
	overrideInt("JWT_EXPIRY_HOURS", &cfg.JWTExpiryHours)
	overrideInt("RATE_LIMIT_MAX", &cfg.RateLimitMax)

	if cfg.ServerPort == "" {
		cfg.ServerPort = "8000"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("environment variable REDIS_ADDR must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("environment variable JWT_SECRET must be set")
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// App 结构体包含应用的所有组件和配置。
type App struct {
	Config      *Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	AsynqClient *asynq.Client
	Worker      *worker.WorkerServer
	Hub         *hub.Hub
	Bots        *bot.Scheduler
	HttpServer  *http.Server
}

// NewApp 创建并初始化应用的所有组件。
func NewApp() (*App, error) {
	// 1. 加载配置
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	// 2. 初始化 Logger
	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	}
	logLevel, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)
	logrus.SetLevel(logLevel)
	log.Infof("Logger initialized (Level: %s)", logLevel.String())

	// 3. 初始化基础设施
	log.Info("Initializing infrastructure...")
	db, err := setup.InitDB(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to init DB: %w", err)
	}
	if err := setup.MigrateDB(db); err != nil {
		return nil, fmt.Errorf("failed to migrate DB: %w", err)
	}
	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	redisClientOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	asynqClient := asynq.NewClient(redisClientOpt)
	log.Info("Infrastructure initialized successfully")

	// 4. 初始化 Repositories
	userRepo := gormpersistence.NewGormUserRepository(db)
	moderationRepo := gormpersistence.NewGormModerationRepository(db)
	log.Info("Repositories initialized")

	// 5. 初始化房间核心：Store → Hub → 控制器 → 机器人 → 路由
	var seedRooms []*domain.Room
	if cfg.SeedDemoRooms {
		seedRooms = seed.DemoRooms(time.Now())
		log.Infof("Seeding %d demo rooms", len(seedRooms))
	}
	roomStore := store.New(seedRooms...)

	hubInstance := hub.New()
	audit := worker.NewAuditDispatcher(asynqClient)
	debateService := service.NewDebateService(roomStore, hubInstance, nil, audit)

	botCfg := bot.Config{
		ReadyPeriod:      time.Duration(cfg.BotReadyMinutes) * time.Minute,
		TurnDuration:     time.Duration(cfg.BotTurnMinutes) * time.Minute,
		MaxDuration:      time.Duration(cfg.BotMaxMinutes) * time.Minute,
		AnnounceInterval: time.Minute,
		ClosingNotice:    time.Duration(cfg.BotClosingMinutes) * time.Minute,
	}
	botScheduler := bot.NewScheduler(debateService, debateService, botCfg)
	debateService.SetBots(botScheduler)

	router := service.NewRouter(debateService, hubInstance)
	hubInstance.SetHandler(router)
	log.Info("Room core initialized")

	// 6. 初始化身份服务
	identityService, err := service.NewIdentityService(userRepo, cfg.JWTSecret, cfg.JWTExpiryHours)
	if err != nil {
		return nil, fmt.Errorf("failed to create IdentityService: %w", err)
	}

	// 7. 初始化 Handlers
	authHandler := httpHandler.NewAuthHandler(identityService)
	moderationHandler := httpHandler.NewModerationHandler(moderationRepo)
	socketHandler := wsHandler.NewWebSocketHandler(hubInstance)
	log.Info("Handlers initialized")

	// 8. 初始化 Worker Server
	workerServer := worker.NewWorkerServer(redisClientOpt, moderationRepo, debateService, cfg.JanitorGraceMin, log)
	log.Info("Worker server initialized")

	// 9. 初始化 Gin Engine 和路由
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(LoggerMiddleware(log))

	engine.Use(func(c *gin.Context) {
		allowedOrigin := os.Getenv("CORS_ALLOWED_ORIGIN")
		if allowedOrigin == "" {
			allowedOrigin = "http://localhost:3000"
		}
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})
	engine.Use(middleware.RateLimit(redisClient, cfg.RateLimitMax, cfg.RateLimitWindow))

	api := engine.Group("/api")
	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.GET("/me", middleware.Auth(cfg.JWTSecret), authHandler.Me)
	}
	moderationRoutes := api.Group("/moderation").Use(middleware.Auth(cfg.JWTSecret))
	{
		moderationRoutes.GET("/rooms/:roomId", moderationHandler.ListByRoom)
	}
	wsRoutes := engine.Group("/ws").Use(middleware.Auth(cfg.JWTSecret))
	{
		wsRoutes.GET("", socketHandler.HandleConnection)
	}
	engine.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	log.Info("Router setup complete")

	// 10. 初始化 HTTP Server
	httpServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: engine,
	}

	app := &App{
		Config:      cfg,
		Log:         log,
		DB:          db,
		RedisClient: redisClient,
		AsynqClient: asynqClient,
		Worker:      workerServer,
		Hub:         hubInstance,
		Bots:        botScheduler,
		HttpServer:  httpServer,
	}
	log.Info("Application assembled successfully")
	return app, nil
}

// Start 启动应用的所有后台 Goroutine 和 HTTP 服务器。
func (a *App) Start() {
	a.Log.Info("Starting application background routines...")
	go a.Hub.Run()
	a.Log.Info("Hub routine started")

	go a.Bots.Run()
	a.Log.Info("Bot scheduler routine started")

	go a.Worker.Start()
	a.Log.Info("Asynq worker server routine started")

	go func() {
		a.Log.Infof("HTTP server starting to listen on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

// Shutdown 优雅地关闭应用。
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	// 1. 先停 HTTP 入口，不再接新连接
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	} else {
		a.Log.Info("HTTP server shut down gracefully.")
	}

	// 2. 停机器人巡检
	if a.Bots != nil {
		a.Bots.Shutdown()
	}

	// 3. 停 Worker Server 和周期调度
	if a.Worker != nil {
		a.Worker.Shutdown()
	}

	// 4. 停 Hub 事件循环
	if a.Hub != nil {
		a.Hub.Shutdown()
	}

	// 5. 关闭 Asynq Client
	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq client: %v", err)
		}
	}

	// 6. 关闭 Redis 连接
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}

	a.Log.Info("Application shutdown complete.")
}

// LoggerMiddleware 创建记录请求日志的 Gin 中间件。
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})

		if errorMessage != "" {
			entry.Error(errorMessage)
		} else if statusCode >= 500 {
			entry.Error("Server error")
		} else if statusCode >= 400 {
			entry.Warn("Client error")
		} else {
			entry.Info("Request handled")
		}
	}
}
