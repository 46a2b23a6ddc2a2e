package server

import (
	"time"

	"backend-bodytune/internal/auth"
	"backend-bodytune/internal/bmi"
	"backend-bodytune/internal/config"
	"backend-bodytune/internal/daily"
	"backend-bodytune/internal/db"
	"backend-bodytune/internal/nutrition"
	"backend-bodytune/internal/store"
	"backend-bodytune/internal/stream"
	"backend-bodytune/internal/tracking"
	"backend-bodytune/internal/workout"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	App        *fiber.App
	Cfg        config.Config
	DB         *pgxpool.Pool
	Redis      *redis.Client
	Log        *zap.Logger
	Stream     *stream.Hub
	Sessions   store.SessionStore
	Dispatcher *store.Dispatcher
	Tracking   *tracking.Service
	Workouts   *workout.Service
}

func NewServer(cfg config.Config, pool *pgxpool.Pool, redisClient *redis.Client, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     pool,
		Redis:  redisClient,
		Log:    log,
		Stream: stream.NewHub(redisClient, log.Named("stream")),
	}
	s.Sessions = selectSessionStore(cfg, pool, redisClient, log)
	s.Dispatcher = store.NewDispatcher(s.Sessions, cfg.SaveTimeout, log.Named("store"))

	registerRoutes(s)
	return s
}

// selectSessionStore honours SESSION_STORE and falls back to whichever backend
// is connected. Nil means finished sessions cannot be saved.
func selectSessionStore(cfg config.Config, pool *pgxpool.Pool, redisClient *redis.Client, log *zap.Logger) store.SessionStore {
	switch {
	case cfg.SessionStore == "redis" && redisClient != nil:
		return store.NewRedisStore(redisClient)
	case pool != nil:
		return store.NewPostgresStore(pool)
	case redisClient != nil:
		log.Warn("postgres unavailable, saving sessions to redis")
		return store.NewRedisStore(redisClient)
	default:
		log.Warn("no session store available, finished sessions will not be saved")
		return nil
	}
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	var q db.Querier
	if s.DB != nil {
		q = s.DB
	}
	authSvc := auth.NewService(s.Cfg.JWTSecret, q)
	var weights tracking.WeightLookup
	if q != nil {
		weights = authSvc
	}

	s.Tracking = tracking.NewService(tracking.Config{
		TickInterval:    s.Cfg.TickInterval,
		MaxSpeedMps:     s.Cfg.MaxSpeedMps,
		DefaultWeightKg: s.Cfg.DefaultWeightKg,
		SaveTimeout:     s.Cfg.SaveTimeout,
	}, s.Stream, s.Dispatcher, s.Sessions, weights, s.Log.Named("tracking"))
	s.Workouts = workout.NewService(workout.Config{
		TickInterval:     s.Cfg.TickInterval,
		ExerciseDuration: s.Cfg.ExerciseDuration,
	}, s.Stream, s.Dispatcher, s.Sessions, s.Log.Named("workout"))

	nutritionSvc := nutrition.NewService(q, s.Cfg.CalorieGoal)

	auth.RegisterRoutes(s.App.Group("/auth"), authSvc, jwtMiddleware)
	tracking.RegisterRoutes(s.App.Group("/runs"), s.Tracking, jwtMiddleware)
	workout.RegisterRoutes(s.App.Group("/workouts"), s.Workouts, jwtMiddleware)
	bmi.RegisterRoutes(s.App.Group("/bmi"), bmi.NewService(q), jwtMiddleware)
	nutrition.RegisterRoutes(s.App.Group("/nutrition"), nutritionSvc, jwtMiddleware)
	daily.RegisterRoutes(s.App.Group("/daily"), daily.NewService(nutritionSvc, s.Sessions, time.Local, s.Log), jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, s.snapshot)
}

// snapshot resolves the live state of a run or workout for new stream clients.
func (s *Server) snapshot(id string) (any, bool) {
	if state, ok := s.Tracking.Snapshot(id); ok {
		return state, true
	}
	return s.Workouts.Snapshot(id)
}

// Close stops live sessions, waits for pending saves and detaches the stream hub.
func (s *Server) Close() {
	s.Tracking.Close()
	s.Workouts.Close()
	s.Dispatcher.Wait()
	s.Stream.Close()
}
