package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lshigami/skillcheck/config"
	"github.com/lshigami/skillcheck/database"
	"github.com/lshigami/skillcheck/internal/cache"
	userctrl "github.com/lshigami/skillcheck/internal/controller/user"
	"github.com/lshigami/skillcheck/internal/logger"
	"github.com/lshigami/skillcheck/internal/metrics"
	"github.com/lshigami/skillcheck/internal/model"
	"github.com/lshigami/skillcheck/internal/repository"
	"github.com/lshigami/skillcheck/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Skill Assessment Session API
// @version 1.0
// @description Timed, proctored multiple-choice assessments tied to job applications.
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()

	app := fx.New(
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			cache.NewRedisClient,
			metrics.NewMetrics,
			NewSessionStateStore,
			NewGinEngine,
		),

		// Durable record store
		fx.Provide(
			repository.NewTestRepository,
			repository.NewSessionRepository,
			repository.NewAnswerRepository,
			repository.NewEventRepository,
			repository.NewSkillAttemptRepository,
			repository.NewApplicationRepository,
		),

		fx.Provide(
			service.NewApplicationWorkflow,
			service.NewEligibilityService,
			service.NewOutcomeRecorder,
			service.NewSessionService,
		),

		fx.Provide(
			userctrl.NewSessionController,
		),

		fx.Invoke(func(cfg *config.Config) { logger.SetLevel(cfg.LogLevel) }),
		fx.Invoke(AutoMigrateDB),
		fx.Invoke(RegisterRoutesAndStartServer),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// NewSessionStateStore wires the dual store over the (possibly nil) redis
// client and closes the client on shutdown.
func NewSessionStateStore(lc fx.Lifecycle, client *redis.Client, m *metrics.Metrics) *cache.SessionStateStore {
	store := cache.NewDualStore(client, cache.WithObserver(m))

	stopSweep := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ticker := time.NewTicker(time.Minute)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						if n := store.Sweep(); n > 0 {
							log.Debug().Int("evicted", n).Msg("Swept expired fallback session state")
						}
					case <-stopSweep:
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(stopSweep)
			if client != nil {
				return client.Close()
			}
			return nil
		},
	})
	return cache.NewSessionStateStore(store)
}

func NewGinEngine(cfg *config.Config) *gin.Engine {
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", userctrl.CandidateHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// URL: http://localhost:PORT/swagger/index.html
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// RegisterRoutesAndStartServer configures API routes and manages server lifecycle.
func RegisterRoutesAndStartServer(
	lc fx.Lifecycle,
	router *gin.Engine,
	cfg *config.Config,
	m *metrics.Metrics,
	sessionCtrl *userctrl.SessionController,
) {
	router.GET("/metrics", gin.WrapH(m.Handler()))
	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	sessionCtrl.RegisterRoutes(router.Group("/api/v1"))

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Assessment API server starting on port %s", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.TestDefinition{},
		&model.Question{},
		&model.SkillBucket{},
		&model.Job{},
		&model.Application{},
		&model.AssessmentSession{},
		&model.SessionAnswer{},
		&model.SessionEvent{},
		&model.SkillAttempt{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
