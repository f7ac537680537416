package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/niche-communities/backend/internal/auth"
	"github.com/anonto42/niche-communities/backend/internal/push"
	"github.com/anonto42/niche-communities/backend/internal/router"
	"github.com/anonto42/niche-communities/backend/internal/services"
	"github.com/anonto42/niche-communities/backend/pkg/config"
	"github.com/anonto42/niche-communities/backend/pkg/media"
	"github.com/anonto42/niche-communities/backend/validators"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg := config.Load()
	setupLogging(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackends(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize backends: %v", err)
	}
	defer b.close()

	var pusher services.Pusher
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		pusher = push.NewWebPusher(b.pushSubscriptions, push.Config{
			VAPIDPublicKey:  cfg.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.VAPIDPrivateKey,
			Subscriber:      cfg.VAPIDSubscriber,
		})
	} else {
		log.Println("VAPID keys not set, web push is disabled.")
	}

	deps := router.Dependencies{
		Users:             b.users,
		PushSubscriptions: b.pushSubscriptions,
		Provider:          b.provider,
		Sessions:          auth.NewSessions(),
		JWTSecret:         cfg.JWTSecret,
		VAPIDPublicKey:    cfg.VAPIDPublicKey,
	}
	if cfg.CloudinaryURL != "" {
		uploader, err := media.NewUploader(cfg.CloudinaryURL, cfg.CloudinaryFolder)
		if err != nil {
			log.Fatalf("Failed to configure uploads: %v", err)
		}
		deps.Uploader = uploader
	}

	notifier := services.NewNotifier(b.notifications, pusher)
	reconciler := services.NewReconciler(b.users, b.communities, b.memberships)
	deps.Membership = services.NewMembershipCoordinator(b.users, b.communities, b.memberships, b.posts, notifier, reconciler)
	deps.Interactions = services.NewInteractionCoordinator(b.posts, b.communities, b.memberships, b.users, notifier, services.NewPostView(0))
	deps.Notifications = services.NewNotificationReader(b.notifications)
	deps.Reconciler = reconciler

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e)
	router.SetupRoutes(e, deps)

	metrics := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("API listening on :%s", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Printf("Metrics listening on :%s", cfg.MetricsPort)
		if err := metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if b.feed != nil {
		g.Go(func() error { return b.feed.Run(gctx) })
	}
	g.Go(func() error { return reconciler.Run(gctx, cfg.ReconcileInterval) })
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down...")
		// ends open notification streams before the server waits on them
		deps.Sessions.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(e.Shutdown(shutdownCtx), metrics.Shutdown(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		log.Printf("Server stopped with error: %v", err)
	}
}

func setupLogging(env string) {
	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))
}
