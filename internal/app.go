// Package internal wires the org-switcher demo together: configuration,
// session storage, the Scalekit client, and the HTTP surface.
package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scalekit-inc/org-switcher-demo/internal/config"
	"github.com/scalekit-inc/org-switcher-demo/internal/connector"
	"github.com/scalekit-inc/org-switcher-demo/internal/log"
	"github.com/scalekit-inc/org-switcher-demo/internal/scalekit"
	"github.com/scalekit-inc/org-switcher-demo/internal/server"
	"github.com/scalekit-inc/org-switcher-demo/internal/storage"
)

// sessionCleanupInterval is how often expired sessions are purged from
// the store.
const sessionCleanupInterval = 10 * time.Minute

// App is the assembled org-switcher application.
type App struct {
	config     *config.Config
	httpServer *server.HTTPServer
	cleanup    *storage.CleanupManager
}

// NewApp builds the application with all dependencies wired.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	log.LogInfoWithFields("app", "Building org-switcher application", map[string]any{
		"env":   cfg.EnvURL,
		"addr":  cfg.Addr,
		"store": string(cfg.SessionStore),
	})

	store, err := setupStorage(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup storage: %w", err)
	}

	identity := scalekit.New(cfg)
	connectors := connector.NewService(identity, connector.DefaultCatalog())

	mux := buildHTTPHandler(cfg, store, identity, connectors)

	return &App{
		config:     cfg,
		httpServer: server.NewHTTPServer(mux, cfg.Addr),
		cleanup:    storage.NewCleanupManager(store, sessionCleanupInterval),
	}, nil
}

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.cleanup.Start(ctx)
	defer a.cleanup.Stop()

	errChan := make(chan error, 1)
	go func() {
		if err := a.httpServer.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var shutdownReason string
	select {
	case sig := <-sigChan:
		shutdownReason = fmt.Sprintf("signal %v", sig)
		log.LogInfoWithFields("app", "Received shutdown signal", map[string]any{
			"signal": sig.String(),
		})
	case err := <-errChan:
		shutdownReason = fmt.Sprintf("error: %v", err)
		log.LogErrorWithFields("app", "Shutting down due to error", map[string]any{
			"error": err.Error(),
		})
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		log.LogErrorWithFields("app", "HTTP server shutdown error", map[string]any{
			"error": err.Error(),
		})
		return err
	}

	log.LogInfoWithFields("app", "Application shutdown complete", map[string]any{
		"reason": shutdownReason,
	})
	return nil
}

func setupStorage(ctx context.Context, cfg *config.Config) (storage.SessionStore, error) {
	if cfg.SessionStore == config.StoreKindFirestore {
		log.LogInfoWithFields("storage", "Using Firestore session store", map[string]any{
			"project":    cfg.FirestoreProjectID,
			"database":   cfg.FirestoreDatabase,
			"collection": cfg.FirestoreCollection,
		})
		return storage.NewFirestoreStore(ctx, cfg.FirestoreProjectID, cfg.FirestoreDatabase, cfg.FirestoreCollection)
	}

	log.LogInfoWithFields("storage", "Using in-memory session store", map[string]any{})
	return storage.NewMemoryStore(), nil
}

func buildHTTPHandler(
	cfg *config.Config,
	store storage.SessionStore,
	identity server.IdentityClient,
	connectors *connector.Service,
) http.Handler {
	authHandlers := server.NewAuthHandlers(store, identity, cfg.SessionTTL)
	connectorHandlers := server.NewConnectorHandlers(connectors)
	sessionAuth := server.NewSessionAuthenticator(store, identity).Middleware()

	mux := http.NewServeMux()

	mux.Handle("GET /{$}", server.NewHomeHandler(store))
	mux.Handle("GET /api/health", server.NewHealthHandler())

	mux.Handle("POST /api/auth/url", http.HandlerFunc(authHandlers.AuthURLHandler))
	mux.Handle("POST /api/auth/callback", http.HandlerFunc(authHandlers.CallbackHandler))
	mux.Handle("POST /api/auth/logout", http.HandlerFunc(authHandlers.LogoutHandler))
	mux.Handle("GET /api/auth/user",
		server.ChainMiddleware(http.HandlerFunc(authHandlers.UserInfoHandler), sessionAuth))
	mux.Handle("POST /api/auth/switch-org",
		server.ChainMiddleware(http.HandlerFunc(authHandlers.SwitchOrgHandler), sessionAuth))

	mux.Handle("GET /api/connectors",
		server.ChainMiddleware(http.HandlerFunc(connectorHandlers.ListHandler), sessionAuth))
	mux.Handle("POST /api/connectors/connect",
		server.ChainMiddleware(http.HandlerFunc(connectorHandlers.ConnectHandler), sessionAuth))
	mux.Handle("GET /api/connectors/{name}/status",
		server.ChainMiddleware(http.HandlerFunc(connectorHandlers.StatusHandler), sessionAuth))
	mux.Handle("POST /api/connectors/{name}/disconnect",
		server.ChainMiddleware(http.HandlerFunc(connectorHandlers.DisconnectHandler), sessionAuth))

	return server.ChainMiddleware(mux,
		server.NewCORSMiddleware(cfg.AllowedOrigins),
		server.NewLoggerMiddleware("http"),
		server.NewRecoverMiddleware("http"),
	)
}
