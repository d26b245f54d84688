package app

import (
	"context"
	"examprep_backend/internal/config"
	"examprep_backend/internal/controller"
	"examprep_backend/internal/repository"
	"examprep_backend/internal/service"
	"examprep_backend/pkg/database"
	"examprep_backend/pkg/logger"
	"examprep_backend/pkg/monitoring"
	"examprep_backend/pkg/security"
	"examprep_backend/pkg/tracing"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	Sessions service.SessionStore

	services        *services
	tracer          *sdktrace.TracerProvider
	stop            chan struct{}
	cfgMu           sync.Mutex
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user     *repository.UserRepository
	subject  *repository.SubjectRepository
	question *repository.QuestionRepository
	topic    *repository.TopicConfigRepository
	exam     *repository.ExamRepository
}

type services struct {
	auth        *service.AuthService
	storage     *service.StorageService
	topic       *service.TopicService
	subject     *service.SubjectService
	exam        *service.ExamService
	report      *service.ReportService
	maintenance *service.MaintenanceService
}

type controllers struct {
	auth    *controller.AuthController
	subject *controller.SubjectController
	exam    *controller.ExamController
	health  *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.cfgMu.Lock()
	a.configCallbacks = append(a.configCallbacks, callback)
	a.cfgMu.Unlock()
}

// ApplyConfig 配置文件变更后调用，只更新可热加载的部分
func (a *App) ApplyConfig(cfg *config.Config) {
	a.cfgMu.Lock()
	callbacks := append([]func(*config.Config){}, a.configCallbacks...)
	a.cfgMu.Unlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		subject:  repository.NewSubjectRepository(db),
		question: repository.NewQuestionRepository(db),
		topic:    repository.NewTopicConfigRepository(db),
		exam:     repository.NewExamRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	s := &services{}
	validate := validator.New()

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, cfg)
	s.topic = service.NewTopicService(repos.topic, s.storage, validate)
	s.subject = service.NewSubjectService(repos.subject, repos.question, s.topic, s.storage, validate, cfg.Storage.MaxPDFSizeMB)
	s.report = service.NewReportService()
	s.exam = service.NewExamService(
		service.NewQuestionSampler(repos.question),
		repos.exam,
		a.Sessions,
		s.report,
		cfg.Exam,
	)
	s.maintenance = service.NewMaintenanceService(s.exam, a.Sessions)

	return s
}

func (a *App) initControllers(s *services) *controllers {
	return &controllers{
		auth:    controller.NewAuthController(s.auth),
		subject: controller.NewSubjectController(s.subject, s.topic),
		exam:    controller.NewExamController(s.exam),
		health:  controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	if cfg.RateLimit.MaxRequests > 0 {
		window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
		router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, window, a.stop, "/api/health", "/metrics"))
	}

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) registerReloadHandlers() {
	a.RegisterConfigCallback(func(cfg *config.Config) {
		logger.SetMode(cfg.Server.Mode)
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		a.services.exam.SetExamConfig(cfg.Exam)
		logger.Log.Info("Exam settings reloaded",
			zap.Int("defaultQuestionCount", cfg.Exam.DefaultQuestionCount),
			zap.Int("maxQuestionCount", cfg.Exam.MaxQuestionCount))
	})
}

// NewAppWithDB 使用已建立的连接组装应用；rdb 为 nil 时会话保存在进程内存
func NewAppWithDB(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *App {
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		stop:   make(chan struct{}),
	}
	if rdb != nil {
		app.Sessions = service.NewRedisSessionStore(rdb)
	} else {
		app.Sessions = service.NewMemorySessionStore()
	}

	repos := app.initRepositories(db)
	app.services = app.initServices(repos, cfg)
	controllers := app.initControllers(app.services)

	// 监控初始化
	monitoring.Init()

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Server.Mode == gin.DebugMode {
		router.Use(gin.Logger())
	}
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.registerReloadHandlers()
	return app
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.Server.Mode != gin.ReleaseMode || cfg.ForceMigrate {
		if err := database.AutoMigrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		}
	}

	app := NewAppWithDB(cfg, db, rdb)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("examprep", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	return app
}

func (a *App) startBackgroundTasks() {
	if err := a.services.maintenance.Start(a.Config.Exam.CleanupSchedule); err != nil {
		logger.Log.Error("Failed to schedule maintenance job", zap.Error(err))
	}
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:         ":" + a.Config.Server.Port,
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	a.startBackgroundTasks()

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	<-a.services.maintenance.Stop().Done()
	close(a.stop)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
	_ = logger.Log.Sync()
}
