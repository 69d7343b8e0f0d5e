package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/luma/regbridge/bridge"
	"github.com/luma/regbridge/internal/env"
	"github.com/luma/regbridge/registry"
	"github.com/luma/regbridge/storage"
	"github.com/luma/regbridge/transport"
)

// runBridge dials the caller on port and serves it until it disconnects.
func runBridge(ctx context.Context, port int, httpPort string) error {
	ctx, signalStop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer signalStop()

	conf, err := env.LoadConfig(ctx)
	if err != nil {
		return &exitError{code: 1, err: err}
	}

	log, err := env.MakeLogger(conf)
	if err != nil {
		return &exitError{code: 1, err: err}
	}
	defer log.Sync()

	backend, hives, err := openBackend(conf)
	if err != nil {
		log.Error("Failed to open registry", zap.Error(err))
		return &exitError{code: 1}
	}

	stream, err := transport.Dial(ctx, transport.Options{
		Port:        port,
		Trace:       conf.Trace,
		DialTimeout: conf.DialTimeout,
		Log:         log.Named("transport"),
	})
	if err != nil {
		log.Error("Failed to connect to caller", zap.Int("port", port), zap.Error(err))
		return &exitError{code: exitCode(err)}
	}

	stats := bridge.NewStats()

	var debug *http.Server
	if httpPort != "" {
		debug = startDebugServer(httpPort, newDebugRouter(conf.DebugHTTP, stats, hives, log.Named("http")), log)
	}

	log.Info("Connected",
		zap.Any("config", conf),
		zap.Int("port", port),
		zap.String("httpPort", httpPort))

	session := bridge.NewSession(stream, bridge.Options{
		API:       backend,
		MaxBuffer: conf.MaxBuffer,
		Stats:     stats,
		Log:       log.Named("session"),
	})

	serveErr := session.Serve(ctx)

	if debug != nil {
		// The context is used to inform the server it has 5 seconds to finish
		// the request it is currently handling
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		debug.SetKeepAlivesEnabled(false)
		if err := debug.Shutdown(shutdownCtx); err != nil {
			log.Error("Http server forced to shutdown", zap.Error(err))
		}
	}

	if err := stream.Close(); err != nil && !transport.IsConnectionError(err) {
		log.Debug("Close after session", zap.Error(err))
	}

	if serveErr != nil {
		return &exitError{code: exitCode(serveErr)}
	}

	log.Info("Exiting")
	return nil
}

// exitCode is the platform error code behind err, or 1 when there is none.
func exitCode(err error) int {
	var terr *transport.TransportError
	if errors.As(err, &terr) && terr.Code != 0 {
		return terr.Code
	}

	return 1
}

// openBackend picks the registry to serve. For the memory backend with
// in-memory hives it also returns the hive store, otherwise nil.
func openBackend(conf *env.Config) (registry.Backend, *storage.InmemoryStore, error) {
	backend := conf.Backend
	if backend == "" {
		backend = env.BackendMemory
		if runtime.GOOS == "windows" {
			backend = env.BackendNative
		}
	}

	if backend == env.BackendNative {
		native, err := registry.OpenNative()
		return native, nil, err
	}

	if conf.HiveStore == env.HiveStoreMemory {
		hives := storage.NewInmemoryStore()
		return registry.NewMemory(registry.WithStore(hives)), hives, nil
	}

	return registry.NewMemory(registry.WithStore(&storage.FileStore{})), nil, nil
}

// newDebugRouter serves /ping and /stats and, when hives is set, the saved
// hives under /hives.
func newDebugRouter(debugHTTP bool, stats *bridge.Stats, hives *storage.InmemoryStore, log *zap.Logger) *gin.Engine {
	router := setupRouter(debugHTTP, log)

	// Ping test
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	router.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"commands": stats.Snapshot(),
			"ignored":  stats.Ignored(),
		})
	})

	if hives != nil {
		router.GET("/hives", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"paths": hives.Paths()})
		})

		router.GET("/hives/backup", func(c *gin.Context) {
			backup, err := hives.Backup()
			if err != nil {
				c.AbortWithError(http.StatusInternalServerError, err)
				return
			}

			c.Data(http.StatusOK, "application/json", backup)
		})

		router.PUT("/hives/backup", func(c *gin.Context) {
			backup, err := c.GetRawData()
			if err != nil {
				c.AbortWithError(http.StatusBadRequest, err)
				return
			}

			if err := hives.Restore(backup); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			c.JSON(http.StatusOK, gin.H{"paths": hives.Paths()})
		})
	}

	return router
}

func startDebugServer(httpPort string, router *gin.Engine, log *zap.Logger) *http.Server {
	s := &http.Server{
		Addr:    net.JoinHostPort(transport.DefaultHost, httpPort),
		Handler: router,
	}

	// Serve in a goroutine so the session is not held up by it
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Http server errored", zap.Error(err))
		}
	}()

	return s
}

func setupRouter(debugHTTP bool, log *zap.Logger) *gin.Engine {
	gin.DisableConsoleColor()
	if !debugHTTP {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Add a ginzap middleware, which:
	//   - Logs all requests, like a combined access and error log.
	//   - RFC3339 with UTC time format.
	r.Use(ginzap.GinzapWithConfig(log, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/ping"},
	}))

	// Logs all panic to error log
	//   - stack means whether output the stack info.
	r.Use(ginzap.RecoveryWithZap(log, true))

	return r
}
