package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"Bpsb/config"
	"Bpsb/core/account"
	"Bpsb/core/audio"
	"Bpsb/core/auth"
	"Bpsb/core/catalog"
	"Bpsb/core/player"
	"Bpsb/logger"
	"Bpsb/repository"
	"Bpsb/storage"
)

// LoadCatalog returns the fixture catalog when configured, else the demo set.
func LoadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.CatalogFile != "" {
		return catalog.LoadFile(cfg.CatalogFile)
	}
	return catalog.New(catalog.DemoAlbums())
}

// Start initializes and starts the HTTP server. It blocks until SIGINT/SIGTERM.
func Start(cfg *config.Config) error {
	ctx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	kv, minioClient, err := OpenKVStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer kv.Close()

	repo := repository.NewKVAccountRepository(kv, cfg.UsersKey, cfg.SessionKey)
	accounts := account.New(ctx, repo)

	cat, err := LoadCatalog(cfg)
	if err != nil {
		return err
	}
	defer cat.Close()

	// 音源解析：配置了 MinIO 凭证时使用预签名地址
	var resolver audio.SourceResolver = audio.Passthrough{}
	if minioClient == nil && cfg.MinioAccessKey != "" {
		if minioClient, err = storage.NewMinioClient(ctx, cfg); err != nil {
			logger.Warn("MinIO 不可用，音源不做解析", logger.ErrorField(err))
			minioClient = nil
		}
	}
	if minioClient != nil {
		resolver = storage.NewMinioResolver(minioClient, presignTTL(cfg))
	}

	var prober audio.DurationProber = cat.Prober()
	if cfg.UseFFprobe {
		prober = audio.FallbackProber{audio.NewFFprobe(cfg.FFprobePath), cat.Prober()}
	}

	out := audio.NewClockOutput(resolver, prober, time.Duration(cfg.TickMillis)*time.Millisecond)
	coordinator := player.NewCoordinator(out, player.WithVolume(cfg.DefaultVolume))
	defer coordinator.Close()

	tokens, err := auth.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.TokenTTLMinutes)*time.Minute)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := coordinator.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("player event loop stopped", logger.ErrorField(err))
		}
	}()

	if fs, ok := kv.(*storage.FileKVStore); ok && cfg.WatchStoreFile {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fs.Watch(ctx, func() { accounts.Reload(ctx) }); err != nil {
				logger.Warn("store watcher stopped", logger.ErrorField(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      NewRouter(NewAPIHandler(accounts, coordinator, cat, tokens)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.ListenAddr), logger.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			stopSignals()
			wg.Wait()
			return err
		}
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", logger.ErrorField(err))
	}

	stopSignals()
	wg.Wait()
	logger.Info("Server stopped")
	return nil
}
