package server

import (
	"context"
	"time"

	"backend-ridermate/internal/auth"
	"backend-ridermate/internal/coach"
	"backend-ridermate/internal/config"
	"backend-ridermate/internal/db"
	"backend-ridermate/internal/history"
	"backend-ridermate/internal/leaderboard"
	"backend-ridermate/internal/media"
	"backend-ridermate/internal/memory"
	"backend-ridermate/internal/metrics"
	"backend-ridermate/internal/profile"
	"backend-ridermate/internal/store"
	"backend-ridermate/internal/stream"
	"backend-ridermate/internal/tracking"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const schemaTimeout = 10 * time.Second

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Log      *logrus.Logger
	Metrics  *metrics.Metrics
	Store    store.Store
	Stream   *stream.Hub
	Tracking *tracking.Service

	closers []func()
}

func NewServer(cfg config.Config, pool *pgxpool.Pool, redisClient *redis.Client, log *logrus.Logger) *Server {
	app := fiber.New(fiber.Config{
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
	})
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Output: log.Out}))

	s := &Server{
		App:     app,
		Cfg:     cfg,
		DB:      pool,
		Redis:   redisClient,
		Log:     log,
		Metrics: metrics.New(),
		Stream:  stream.NewHub(redisClient, log.WithField("component", "stream")),
	}
	s.closers = append(s.closers, s.Stream.Close)
	s.Store = s.buildStore()

	registerRoutes(s)
	return s
}

// buildStore picks Postgres when a pool is available and fronts it with
// Redis, or with an in-process cache when Redis is not configured.
func (s *Server) buildStore() store.Store {
	var backing store.Store = store.NewMemory()
	if s.DB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
		defer cancel()
		if err := db.EnsureSchema(ctx, s.DB); err != nil {
			s.Log.WithError(err).Warn("postgres schema unavailable, using in-memory store")
		} else {
			backing = store.NewPostgres(s.DB)
		}
	}

	if s.Redis != nil {
		cached, err := store.NewCached(backing, s.Redis, s.Cfg.CacheTTL, s.Log.WithField("component", "store"))
		if err == nil {
			return cached
		}
		s.Log.WithError(err).Warn("redis store cache disabled")
	}
	return store.NewLocal(backing, s.Cfg.CacheSizeMB, s.Cfg.CacheTTL)
}

func (s *Server) newAssistant() coach.Assistant {
	if s.Cfg.GeminiAPIKey == "" {
		s.Log.Warn("GEMINI_API_KEY not set, coach will answer with fallbacks")
		return nil
	}
	g, err := coach.NewGemini(context.Background(), s.Cfg.GeminiAPIKey, s.Cfg.GeminiModel)
	if err != nil {
		s.Log.WithError(err).Error("gemini client")
		return nil
	}
	s.closers = append(s.closers, func() { _ = g.Close() })
	return g
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.App.Get("/metrics", adaptor.HTTPHandler(s.Metrics.Handler()))

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	profiles := profile.NewService(s.Store)
	rides := history.NewService(s.Store)
	board := leaderboard.NewBoard(s.Redis, profiles, rides, s.Log.WithField("component", "leaderboard"))

	var users db.Querier
	if s.DB != nil {
		users = s.DB
	}
	authSvc := auth.NewService(s.Cfg.JWTSecret, users)
	authSvc.OnRegister(func(ctx context.Context, u auth.User) error {
		return profiles.Seed(ctx, u.ID, u.Email)
	})

	s.Tracking = tracking.NewService(s.Stream, rides, board, s.Metrics, s.Log.WithField("component", "tracking"))
	s.closers = append(s.closers, s.Tracking.Close)

	coachSvc := coach.New(s.newAssistant(), s.Cfg.CoachTimeout, s.Metrics, s.Log.WithField("component", "coach"))
	debrief := coach.NewDebrief(coachSvc, profiles, rides, s.Stream, s.Log.WithField("component", "debrief"))
	s.Tracking.OnFinish(debrief.RideFinished)
	s.closers = append(s.closers, debrief.Close)

	auth.RegisterRoutes(s.App.Group("/auth"), authSvc)
	tracking.RegisterRoutes(s.App.Group("/tracking"), s.Tracking, jwtMiddleware)
	history.RegisterRoutes(s.App.Group("/rides"), rides, jwtMiddleware)
	profile.RegisterRoutes(s.App.Group("/profile"), profiles, jwtMiddleware)
	memory.RegisterRoutes(s.App.Group("/memories"), memory.NewService(s.Store), jwtMiddleware)
	media.RegisterRoutes(s.App.Group("/media"), media.NewService(s.Store, s.Cfg.MediaBaseURL), jwtMiddleware)
	leaderboard.RegisterRoutes(s.App.Group("/leaderboard"), board, jwtMiddleware)
	coach.RegisterRoutes(s.App.Group("/coach"), coachSvc, profiles, rides, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}

// Close releases the background workers in reverse start order. Call it
// after the fiber app has shut down.
func (s *Server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
