package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/janpai/server/internal/auth"
	"github.com/janpai/server/internal/config"
	"github.com/janpai/server/internal/engine"
	"github.com/janpai/server/internal/game"
	"github.com/janpai/server/internal/httpapi"
	"github.com/janpai/server/internal/persist"
	"github.com/janpai/server/internal/replay"
	"github.com/janpai/server/internal/room"
	"github.com/janpai/server/internal/router"
	"github.com/janpai/server/internal/session"
	"github.com/janpai/server/internal/transport"
)

// EnvTicketSecret holds the HMAC key for game tickets. Without it a
// random key is generated and tickets do not survive a restart.
const EnvTicketSecret = "JANPAI_SECRET"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if _, err := os.Stat(cfgPath); err != nil {
		cfgPath = "" // built-in defaults
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	log.Info("starting server",
		zap.String("name", cfg.Server.Name),
		zap.String("version", cfg.Server.Version),
		zap.String("bind", cfg.Network.BindAddress))

	// 3. Ticket signer
	signer := auth.NewSigner(ticketSecret(log))

	// 4. Optional PostgreSQL archive and accounts
	var archiver *persist.Archiver
	var users *persist.UserRepo
	if cfg.Database.DSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		db, err := persist.NewDB(ctx, cfg.Database, log)
		cancel()
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer db.Close()

		mctx, mcancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = persist.RunMigrations(mctx, db.Pool)
		mcancel()
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		archiver = persist.NewArchiver(persist.NewGameRepo(db), log)
		users = persist.NewUserRepo(db)
		log.Info("database connected")
	} else {
		log.Info("no database configured, games are not archived")
	}

	// 5. Rule settings
	rules := engine.DefaultSettings()
	if cfg.Game.RulePresetPath != "" {
		rules, err = engine.LoadSettings(cfg.Game.RulePresetPath)
		if err != nil {
			return fmt.Errorf("rule preset: %w", err)
		}
		log.Info("rule preset loaded", zap.String("path", cfg.Game.RulePresetPath))
	}

	// 6. Replay store
	var saver *replay.Saver
	if cfg.Replay.Enabled {
		store, err := replay.NewFSStore(cfg.Replay.Dir)
		if err != nil {
			return fmt.Errorf("replay store: %w", err)
		}
		saver = replay.NewSaver(store, log)
		defer saver.Close()
	}

	// 7. Core services
	sessions := session.NewStore()
	registry := transport.NewRegistry(log)
	registry.OnGameClosed = func(gameID string, cause error) {
		sessions.RemoveGame(gameID)
	}
	timers := game.NewTimerManager(cfg.Game, log)
	games := game.NewService(cfg.Game, rules, registry, timers, saver, log)
	if archiver != nil {
		games.SetRecorder(archiver)
	}
	rooms := room.NewManager(signer, games, sessions, cfg.Game.RoomTTL, log)
	rt := router.New(signer, rooms, games, sessions, registry, log)
	rooms.Binder = rt
	api := httpapi.New(cfg, games, rooms, rt, signer, users, log)

	// 8. Heartbeat monitor
	monitorStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.Network.HeartbeatTimeout / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				registry.Monitor(cfg.Network.HeartbeatTimeout)
			case <-monitorStop:
				return
			}
		}
	}()

	// 9. HTTP server. No server-wide write timeout: websockets are
	// long-lived and carry their own per-frame deadlines.
	srv := &http.Server{
		Addr:              cfg.Network.BindAddress,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Info("listening", zap.String("addr", cfg.Network.BindAddress))

	// 10. Wait for shutdown
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdownCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	close(monitorStop)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	rooms.Close()
	games.Shutdown()
	log.Info("server stopped")
	return nil
}

// ticketSecret reads the HMAC key from the environment, falling back to
// a process-local random key.
func ticketSecret(log *zap.Logger) []byte {
	if s := os.Getenv(EnvTicketSecret); s != "" {
		return []byte(s)
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	log.Warn("no ticket secret configured, using a random key; tickets will not survive a restart")
	return secret
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
