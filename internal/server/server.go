package server

import (
	"log/slog"
	"net/http"
	"os"

	"triviarena/internal/config"
	"triviarena/internal/db"
	"triviarena/internal/identity"
	"triviarena/internal/rooms"
	"triviarena/internal/trivia"
	"triviarena/internal/wshub"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
)

func Run() error {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := config.Load()

	srv := &Server{
		Lobby: wshub.NewHub(),
	}

	// Identity resolution is read-only against the auth service's session
	// store; without one everybody plays as a guest.
	if cfg.RedisAddr != "" {
		srv.Resolver = identity.NewRedisResolver(cfg.RedisAddr, cfg.RedisPassword, identity.Guest{})
		slog.Info("session identities via Redis", "addr", cfg.RedisAddr)
	} else {
		srv.Resolver = identity.Guest{}
		slog.Info("REDIS_ADDR not set, all players are guests")
	}

	// Optional leaderboard persistence.
	var recorder rooms.ScoreRecorder
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			slog.Warn("database unavailable, scores will not persist", "error", err)
		} else {
			if err := database.Migrate(); err != nil {
				return err
			}
			srv.DB = database
			srv.scoreBuffer = make(chan db.ScoreEvent, 1024)
			go scoreWriter(database, srv.scoreBuffer)
			recorder = srv
		}
	} else {
		slog.Info("DATABASE_URL not set, scores will not persist")
	}

	srv.Registry = rooms.NewRegistry(
		rooms.Config{
			MaxPlayers:       cfg.MaxPlayers,
			QuestionDuration: cfg.QuestionDuration,
			QuestionCount:    cfg.QuestionCount,
		},
		func() trivia.Supplier { return trivia.NewClient(cfg.TriviaAPIURL) },
		srv.Lobby,
		recorder,
	)

	router := chi.NewRouter()
	router.Use(cors.AllowAll().Handler)
	router.Get("/ws", srv.handleWS)
	router.Get("/health", srv.handleHealth)
	router.Get("/api/rooms", srv.handleListRooms)
	router.Get("/api/leaderboard", srv.handleLeaderboard)

	addr := "0.0.0.0:" + cfg.Port
	slog.Info("server listening", "addr", addr)
	return http.ListenAndServe(addr, router)
}

// scoreWriter drains the score buffer into the database so game-over
// handling never waits on a write.
func scoreWriter(database *db.DB, buffer chan db.ScoreEvent) {
	for ev := range buffer {
		if err := database.AddScore(ev.Name, ev.Score); err != nil {
			slog.Error("persisting score", "player", ev.Name, "error", err)
		}
	}
}
