package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/ragdesk/backend/internal/client/rag"
	"github.com/zhouzirui/ragdesk/backend/internal/config"
	"github.com/zhouzirui/ragdesk/backend/internal/handler"
	"github.com/zhouzirui/ragdesk/backend/internal/model/chat"
	"github.com/zhouzirui/ragdesk/backend/internal/pkg/logger"
	adminService "github.com/zhouzirui/ragdesk/backend/internal/service/admin"
	chatService "github.com/zhouzirui/ragdesk/backend/internal/service/chat"
	eventService "github.com/zhouzirui/ragdesk/backend/internal/service/events"
	"github.com/zhouzirui/ragdesk/backend/internal/store/local"
	"github.com/zhouzirui/ragdesk/backend/internal/store/remote"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{FilePath: cfg.Log.FilePath, Production: cfg.Log.Production})
	defer func() { _ = log.Sync() }()

	if envErr != nil {
		log.Info("Main", "No .env file loaded, using system environment only", map[string]interface{}{"reason": envErr.Error()})
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Main", "Server stopped with error", map[string]interface{}{"error": err})
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	hub := eventService.NewHub(log)
	go hub.Run(ctx)

	store, closeStore, err := openStore(ctx, cfg.Store, hub, log)
	if err != nil {
		return err
	}
	defer closeStore()

	var bucket remote.Bucket
	if cfg.Store.BucketDir != "" {
		fsBucket, err := remote.NewFSBucket(cfg.Store.BucketDir)
		if err != nil {
			return err
		}
		bucket = fsBucket
		log.Info("Main", "Upload bucket enabled", map[string]interface{}{"dir": cfg.Store.BucketDir})
	}

	client := rag.New(cfg.Backend.BaseURL, rag.WithAdminToken(cfg.Backend.AdminToken))
	services := handler.Services{
		Directory:    chatService.NewDirectory(store, hub, log),
		Conversation: chatService.NewConversation(store, client, cfg.Backend.TopK, hub, log),
		Admin: adminService.NewService(client, adminService.Options{
			Bucket:        bucket,
			FilesCacheTTL: cfg.Admin.FilesCacheTTL,
			Events:        hub,
			Logger:        log,
		}),
		Hub: hub,
	}

	router := handler.NewRouter(services, cfg.Server.AllowedOrigins, log)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info("Main", "ragdesk backend listening", map[string]interface{}{
		"addr":    cfg.Server.Addr,
		"backend": cfg.Backend.BaseURL,
		"store":   cfg.Store.Kind,
	})
	return runServer(ctx, srv)
}

// openStore picks the session store. The returned close func is never nil.
func openStore(ctx context.Context, cfg config.StoreConfig, hub *eventService.Hub, log logger.Logger) (chat.Store, func(), error) {
	if cfg.Kind == config.StoreRemote {
		pool, err := remote.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Main", "Using remote session store", nil)
		return remote.NewRepository(pool), pool.Close, nil
	}

	switch cfg.Driver {
	case config.DriverMemory:
		log.Info("Main", "Using in-memory session store", nil)
		return local.NewRepository(local.NewMemoryStorage()), func() {}, nil

	case config.DriverSQLite:
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create store dir: %w", err)
		}
		path := filepath.Join(cfg.Path, "sessions.db")
		st, err := local.OpenSQLiteStorage(path)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Main", "Using sqlite session store", map[string]interface{}{"path": path})
		return local.NewRepository(st), func() { _ = st.Close() }, nil

	default:
		st, err := local.NewFileStorage(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		changes, err := st.Watch(ctx, chat.StorageKey)
		if err != nil {
			log.Warn("Main", "Session file watch unavailable", map[string]interface{}{"error": err.Error()})
		} else {
			go forwardChanges(changes, hub)
		}
		log.Info("Main", "Using file session store", map[string]interface{}{"dir": st.Dir()})
		return local.NewRepository(st), func() {}, nil
	}
}

// forwardChanges tells subscribers to refetch when another process rewrites
// the session file.
func forwardChanges(changes <-chan struct{}, pub eventService.Publisher) {
	for range changes {
		pub.Publish(eventService.New(eventService.SessionsChanged, "", nil))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
