package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/ecolehub/vie-scolaire-api/api/swagger"
	"github.com/ecolehub/vie-scolaire-api/internal/handler"
	"github.com/ecolehub/vie-scolaire-api/internal/middleware"
	"github.com/ecolehub/vie-scolaire-api/internal/models"
	"github.com/ecolehub/vie-scolaire-api/internal/realtime"
	"github.com/ecolehub/vie-scolaire-api/internal/repository"
	"github.com/ecolehub/vie-scolaire-api/internal/service"
	"github.com/ecolehub/vie-scolaire-api/pkg/cache"
	"github.com/ecolehub/vie-scolaire-api/pkg/config"
	"github.com/ecolehub/vie-scolaire-api/pkg/database"
	"github.com/ecolehub/vie-scolaire-api/pkg/jobs"
	"github.com/ecolehub/vie-scolaire-api/pkg/logger"
	corsmiddleware "github.com/ecolehub/vie-scolaire-api/pkg/middleware/cors"
	reqidmiddleware "github.com/ecolehub/vie-scolaire-api/pkg/middleware/requestid"
)

// @title Vie Scolaire API
// @version 1.0.0
// @description Attendance, grading and liaison backend for secondary schools
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Redis is an accelerator, not a dependency: caching and the
		// realtime bridge degrade to direct reads without it.
		logr.Sugar().Warnw("redis unavailable, cache and realtime bridge disabled", "error", err)
		redisClient = nil
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	recordRepo := repository.NewAttendanceRecordRepository(db)
	entryRepo := repository.NewAttendanceEntryRepository(db)
	justificationRepo := repository.NewJustificationRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	userRepo := repository.NewUserRepository(db)
	curriculumRepo := repository.NewCurriculumRepository(db)
	liaisonRepo := repository.NewLiaisonRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()
	cacheSvc := service.NewCacheService(cacheRepo, metrics)

	var notifier *realtime.Notifier
	if cfg.Realtime.Enabled {
		notifier = realtime.NewNotifier(redisClient, cfg.Realtime.ChannelPrefix, logr)
	}

	authService := service.NewAuthService(userRepo, cfg.JWT, validate, logr)
	attendanceService := service.NewAttendanceService(recordRepo, entryRepo, studentRepo, cacheSvc, notifier, validate, logr)
	justificationService := service.NewJustificationService(justificationRepo, entryRepo, notifier, validate, logr)
	gradeService := service.NewGradeService(evaluationRepo, gradeRepo, studentRepo, cacheSvc, notifier, validate, logr, cfg.Grading.Scale, cfg.Grading.EnforceRange)
	curriculumService := service.NewCurriculumService(curriculumRepo, notifier, validate, logr)
	liaisonService := service.NewLiaisonService(liaisonRepo, notifier, validate, logr)
	exportService := service.NewExportService(attendanceService, gradeService, studentRepo, cfg.Exports.SchoolName, logr)

	var listener *realtime.Listener
	if cfg.Realtime.Enabled {
		listener = realtime.NewListener(redisClient, cfg.Realtime.ChannelPrefix, jobs.QueueConfig{
			Workers:    cfg.Realtime.RefreshWorkers,
			MaxRetries: cfg.Realtime.RefreshRetries,
			RetryDelay: cfg.Realtime.RetryDelay,
			Logger:     logr,
		}, metrics, logr)
		registerRefreshers(listener, cacheRepo, logr)
		listener.Start(ctx)
		defer listener.Stop()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.ObserveHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(authService)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService)
	justificationHandler := handler.NewJustificationHandler(justificationService)
	gradeHandler := handler.NewGradeHandler(gradeService)
	curriculumHandler := handler.NewCurriculumHandler(curriculumService)
	liaisonHandler := handler.NewLiaisonHandler(liaisonService)
	exportHandler := handler.NewExportHandler(exportService)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authService))
	authed.GET("/auth/me", authHandler.Me)

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	admin := middleware.RequireRoles(models.RoleAdmin)
	family := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher, models.RoleParent, models.RoleStudent)

	attendance := authed.Group("/attendance")
	attendance.POST("/records", staff, attendanceHandler.CreateRecord)
	attendance.GET("/records", staff, attendanceHandler.ListRecords)
	attendance.GET("/records/:id", staff, attendanceHandler.GetRecord)
	attendance.PUT("/records/:id/entries", staff, attendanceHandler.SaveEntries)
	attendance.GET("/records/:id/stats", staff, attendanceHandler.Stats)
	attendance.PATCH("/records/:id/notes", staff, attendanceHandler.UpdateNotes)
	attendance.DELETE("/records/:id", admin, attendanceHandler.DeleteRecord)

	authed.POST("/justifications", family, justificationHandler.Submit)
	authed.GET("/justifications", staff, justificationHandler.List)
	authed.GET("/justifications/:id", family, justificationHandler.Get)
	authed.POST("/justifications/:id/review", staff, justificationHandler.Review)
	authed.POST("/justifications/:id/excusal", staff, justificationHandler.RetryExcusal)

	authed.POST("/evaluations", staff, gradeHandler.CreateEvaluation)
	authed.GET("/evaluations", staff, gradeHandler.ListEvaluations)
	authed.GET("/evaluations/:id", staff, gradeHandler.GetEvaluation)
	authed.PUT("/evaluations/:id/grades", staff, gradeHandler.SaveGrades)

	authed.GET("/students/:id/attendance", middleware.RBAC(string(models.RoleAdmin), string(models.RoleTeacher), "SELF"), attendanceHandler.StudentHistory)
	authed.GET("/students/:id/grades", middleware.RBAC(string(models.RoleAdmin), string(models.RoleTeacher), "SELF"), gradeHandler.StudentGrades)
	authed.GET("/students/:id/average", middleware.RBAC(string(models.RoleAdmin), string(models.RoleTeacher), "SELF"), gradeHandler.StudentAverage)

	authed.GET("/classes/:id/grades/summary", staff, gradeHandler.ClassSummary)
	authed.GET("/classes/:id/subjects", family, curriculumHandler.Subjects)
	authed.GET("/classes/:id/liaison", family, liaisonHandler.ListByClass)
	authed.GET("/subjects/:id/topics", family, curriculumHandler.Topics)
	authed.GET("/subjects/:id/completion", family, curriculumHandler.Completion)
	authed.PUT("/curriculum/progress", staff, curriculumHandler.SetProgress)

	authed.POST("/liaison", staff, liaisonHandler.Create)
	authed.POST("/liaison/:id/sign", middleware.RequireRoles(models.RoleParent), liaisonHandler.Sign)
	authed.GET("/liaison/:id/signatures", staff, liaisonHandler.Signatures)

	if cfg.Exports.Enabled {
		authed.GET("/exports/attendance/:id", staff, exportHandler.AttendanceSheet)
		authed.GET("/exports/report-card/:id", staff, exportHandler.ReportCard)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}

// registerRefreshers binds cache invalidation to row-change events. Each
// refresh drops the derived aggregates for its table; the next read
// recomputes from a fresh snapshot.
func registerRefreshers(listener *realtime.Listener, cacheRepo *repository.CacheRepository, logr *zap.Logger) {
	invalidate := func(patterns ...string) realtime.RefreshFunc {
		return func(ctx context.Context, event realtime.ChangeEvent) error {
			for _, pattern := range patterns {
				if err := cacheRepo.DeleteByPattern(ctx, pattern); err != nil {
					return err
				}
			}
			logr.Debug("refreshed aggregates",
				zap.String("table", event.Table),
				zap.String("event_type", event.EventType))
			return nil
		}
	}

	listener.Register("attendance_records", invalidate("attendance:stats:*"))
	listener.Register("attendance_entries", invalidate("attendance:stats:*"))
	listener.Register("attendance_justifications", invalidate("attendance:stats:*"))
	listener.Register("evaluations", invalidate("grades:summary:*"))
	listener.Register("grades", invalidate("grades:summary:*"))
	listener.Register("curriculum_progress", invalidate("curriculum:*"))
	listener.Register("liaison_entries", invalidate("liaison:*"))
}
