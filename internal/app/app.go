// Package app wires configuration, storage, services and the HTTP engine
// into a runnable deployer.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"deployer-backend/internal/config"
	"deployer-backend/internal/deploy"
	"deployer-backend/internal/handler"
	"deployer-backend/internal/pkg/local"
	"deployer-backend/internal/pkg/logger"
	"deployer-backend/internal/pkg/ssh"
	"deployer-backend/internal/router"
	"deployer-backend/internal/service"
	"deployer-backend/internal/store"
)

type App struct {
	Config  *config.Config
	Logger  *logger.Logger
	Store   *store.Store
	Deploys *service.DeployService
	SSH     *service.SSHService
}

// New builds every component from cfg. The store directory is created when
// missing.
func New(cfg *config.Config, log *logger.Logger) (*App, error) {
	st := store.New(cfg.Store.DataDir)
	if err := st.Init(); err != nil {
		return nil, err
	}

	timeout := cfg.SSH.ConnectTimeoutDuration()
	newSession := func() deploy.RemoteSession {
		return ssh.NewSession(ssh.WithConnectTimeout(timeout))
	}
	orch := deploy.NewOrchestrator(local.New(), newSession, log)

	return &App{
		Config:  cfg,
		Logger:  log,
		Store:   st,
		Deploys: service.NewDeployService(st, orch, log),
		SSH:     service.NewSSHService(newSession, log),
	}, nil
}

// Engine returns the gin engine serving the API.
func (a *App) Engine() *gin.Engine {
	if !a.Config.Logging.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(requestLogger(a.Logger))
	r.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = a.Config.Server.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	router.RegisterRoutes(r,
		handler.NewSSHHandler(a.SSH),
		handler.NewConfigHandler(a.Store, a.Logger),
		handler.NewDeployHandler(a.Deploys, a.Config.Server.CORSOrigins, a.Logger),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

// Serve runs the HTTP server until ctx is cancelled, then drains requests
// and background runs.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:        a.Config.Server.Addr(),
		Handler:     a.Engine(),
		ReadTimeout: time.Duration(a.Config.Server.ReadTimeout) * time.Second,
		// No WriteTimeout: run streams are long-lived websockets.
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("Server starting", zap.String("address", srv.Addr), zap.String("data_dir", a.Store.Dir()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.Logger.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.Config.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return a.Deploys.Shutdown(shutdownCtx)
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
