package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"booklibrary/internal/app"
	"booklibrary/internal/catalog"
	"booklibrary/internal/config"
	"booklibrary/internal/httpx"
)

const (
	version      = "1.0.0"
	maxBodyBytes = 1 << 20
)

func main() {
	config.LoadEnvFiles()
	cfg := config.Load()
	if cfg.Debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("cannot open catalog: %v", err)
	}
	defer a.Close()

	if cfg.JWTSecret == "" {
		log.Println("JWT_SECRET not set: mutating routes are open")
	}

	httpServer := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      newRouter(ctx, cfg, a.Service, a.Ping),
		ReadTimeout:  5 * time.Second,
		// POST /books waits on Open Library for up to both lookup timeouts.
		WriteTimeout: cfg.BookTimeout + cfg.AuthorTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", cfg.ServerAddress)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
	log.Println("Server shut down.")
}

// newRouter mounts the catalog API and probes behind the middleware chain.
// ctx bounds the rate limiter's background cleanup.
func newRouter(ctx context.Context, cfg config.Config, svc *catalog.Service, ping func(context.Context) error) http.Handler {
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := ping(r.Context()); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	catalog.NewHTTPHandler(svc, version).RegisterRoutes(router, httpx.AuthMiddleware(cfg.JWTSecret))

	var handler http.Handler = router
	if cfg.RateLimitRPS > 0 {
		handler = httpx.NewRateLimitMiddleware(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.TrustedProxies).Middleware(handler)
	}
	handler = httpx.RequestSizeLimitMiddleware(maxBodyBytes)(handler)
	handler = httpx.CORSMiddleware(cfg.AllowedOrigins)(handler)
	handler = httpx.SecurityHeadersMiddleware(cfg.EnableHSTS)(handler)
	handler = httpx.RecoveryMiddleware(handler)
	handler = httpx.AccessLogMiddleware(handler)
	handler = httpx.RequestIDMiddleware(handler)
	return handler
}
