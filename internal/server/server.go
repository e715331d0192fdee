package server

import (
	"context"
	"time"

	"backend-cartorando/internal/auth"
	"backend-cartorando/internal/config"
	"backend-cartorando/internal/editor"
	"backend-cartorando/internal/hike"
	"backend-cartorando/internal/mapview"
	"backend-cartorando/internal/storage"
	"backend-cartorando/internal/stream"
	"backend-cartorando/internal/track"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// bodyLimit leaves room for a maximal GPX file plus multipart framing.
const bodyLimit = editor.MaxGPXBytes + 1<<20

const sweepInterval = time.Minute

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       *pgxpool.Pool
	Redis    *redis.Client
	Stream   *stream.Hub
	Sessions *editor.Registry
	Log      *zap.Logger

	stopJanitor context.CancelFunc
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	app := fiber.New(fiber.Config{BodyLimit: bodyLimit})
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient, log.Named("stream")),
		Log:    log,
	}

	registerRoutes(s)

	ctx, cancel := context.WithCancel(context.Background())
	s.stopJanitor = cancel
	go s.Sessions.Run(ctx, sweepInterval)
	return s
}

// MapConfig builds the renderer settings shared by every map view. The
// fallback center is taken as configured, (0,0) included; config.Load
// defaults it to Chamonix.
func MapConfig(cfg config.Config) mapview.Config {
	return mapview.Config{
		Zoom:     cfg.MapZoom,
		TileURL:  cfg.MapTileURL,
		Fallback: &track.Coordinate{Lat: cfg.MapFallbackLat, Lng: cfg.MapFallbackLng},
	}
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "sessions": s.Sessions.Len()})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	mapCfg := MapConfig(s.Cfg)

	hikes := hike.NewRepository(s.DB)
	blobs := storage.NewService(s.DB, s.Cfg.StorageRoot, s.Cfg.StorageURL)
	s.Sessions = editor.NewRegistry(editor.Deps{
		Hikes:       hikes,
		Blobs:       blobs,
		Broadcaster: s.Stream,
		Log:         s.Log.Named("editor"),
	}, mapCfg, s.Cfg.SessionTTL)

	hike.RegisterRoutes(s.App.Group("/hikes"), hikes, mapCfg, jwtMiddleware)
	editor.RegisterRoutes(s.App.Group("/sessions"), s.Sessions, jwtMiddleware)
	storage.RegisterRoutes(s.App.Group("/storage"), blobs)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}

// Close stops background work. The fiber app is shut down by the caller.
func (s *Server) Close() {
	s.stopJanitor()
	s.Stream.Close()
}
