package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"choreboard/internal/config"
	"choreboard/internal/database"
	"choreboard/internal/handlers"
	"choreboard/internal/identity"
	"choreboard/internal/metrics"
	"choreboard/internal/notify"
	"choreboard/internal/pairing"
	"choreboard/internal/repository"
	"choreboard/internal/security"
	"choreboard/internal/service"
	"choreboard/internal/session"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database (supports sqlite, postgres, mysql)
	db, err := database.Open(database.Options{
		Type: cfg.DatabaseType,
		URL:  cfg.DatabaseURL,
		Path: cfg.DatabasePath,
	})
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Change-event hub
	hub := notify.NewHub()

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(db)
	parentRepo := repository.NewParentRepository(db, hub)
	childRepo := repository.NewChildRepository(db, hub)
	taskRepo := repository.NewTaskRepository(db, hub)
	rewardRepo := repository.NewRewardRepository(db, hub)

	// Identity, pairing and session bootstrap
	identityService := identity.NewService(accountRepo, cfg.DeviceTokenSecret, cfg.SessionDuration)
	snapshotCache := session.NewSnapshotCache(cfg.SnapshotCacheTTL)
	protocol := pairing.NewProtocol(childRepo, identityService, snapshotCache, pairing.NewCodeGenerator(), cfg.PairingCodeTTL)
	bootstrap := session.NewBootstrap(parentRepo, childRepo, identityService, snapshotCache)
	bootstrap.Start()
	defer bootstrap.Stop()

	// Domain services
	familyService := service.NewFamilyService(identityService, parentRepo, childRepo)
	taskService := service.NewTaskService(taskRepo, childRepo)
	rewardService := service.NewRewardService(rewardRepo, childRepo)

	emailService, err := service.NewEmailService(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}
	notifier := service.NewNotifier(emailService, parentRepo, childRepo, taskRepo)
	notifier.Start(hub)
	defer notifier.Stop()

	oauthProviders := map[string]handlers.OAuthProvider{
		"google": {
			Name: "google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		},
		"apple": {
			Name: "apple",
			Config: &oauth2.Config{
				ClientID:     cfg.AppleClientID,
				ClientSecret: cfg.AppleClientSecret,
				Endpoint: oauth2.Endpoint{
					AuthURL:  "https://appleid.apple.com/auth/authorize",
					TokenURL: "https://appleid.apple.com/auth/token",
				},
				Scopes: []string{"name", "email"},
			},
			AuthParams: map[string]string{
				"response_mode": "query",
			},
		},
	}

	// Initialize handlers
	limiter := security.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)
	middleware := handlers.NewMiddleware(identityService, bootstrap, limiter)
	authHandler := handlers.NewAuthHandler(identityService, familyService, emailService, oauthProviders, cfg.AppBaseURL)
	deviceHandler := handlers.NewDeviceHandler(protocol)
	parentHandler := handlers.NewParentHandler(familyService, protocol, cfg.PairingCodeTTL)
	taskHandler := handlers.NewTaskHandler(taskService)
	rewardHandler := handlers.NewRewardHandler(rewardService)

	// Setup routes
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/auth/register", middleware.RateLimit(authHandler.Register))
	mux.HandleFunc("POST /api/auth/login", middleware.RateLimit(authHandler.Login))
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.HandleFunc("POST /api/auth/forgot-password", middleware.RateLimit(authHandler.ForgotPassword))
	mux.HandleFunc("POST /api/auth/reset-password", middleware.RateLimit(authHandler.ResetPassword))
	mux.HandleFunc("GET /api/auth/{provider}/start", authHandler.StartOAuth)
	mux.HandleFunc("GET /api/auth/{provider}/callback", authHandler.OAuthCallback)

	// Device pairing
	mux.HandleFunc("POST /api/device/pair", middleware.RateLimit(deviceHandler.Pair))
	mux.HandleFunc("GET /api/device/session", middleware.RequireChild(deviceHandler.Session))

	// Parent profile and children
	mux.HandleFunc("GET /api/parent", middleware.RequireParent(parentHandler.Me))
	mux.HandleFunc("PUT /api/parent", middleware.RequireParent(parentHandler.UpdateMe))
	mux.HandleFunc("GET /api/children", parentHandler.ListChildren)
	mux.HandleFunc("POST /api/children", middleware.RequireParent(parentHandler.AddChild))
	mux.HandleFunc("GET /api/children/{id}", middleware.RequireParent(parentHandler.GetChild))
	mux.HandleFunc("PUT /api/children/{id}", middleware.RequireParent(parentHandler.UpdateChild))
	mux.HandleFunc("DELETE /api/children/{id}", middleware.RequireParent(parentHandler.DeleteChild))
	mux.HandleFunc("POST /api/children/{id}/pairing-code", middleware.RequireParent(parentHandler.IssuePairingCode))
	mux.HandleFunc("DELETE /api/children/{id}/pairing-code", middleware.RequireParent(parentHandler.ClearPairingCode))

	// Tasks
	mux.HandleFunc("GET /api/tasks", taskHandler.List)
	mux.HandleFunc("POST /api/tasks", middleware.RequireParent(taskHandler.Create))
	mux.HandleFunc("PUT /api/tasks/{id}", middleware.RequireParent(taskHandler.Update))
	mux.HandleFunc("POST /api/tasks/{id}/start", taskHandler.Start)
	mux.HandleFunc("POST /api/tasks/{id}/submit", taskHandler.Submit)
	mux.HandleFunc("POST /api/tasks/{id}/approve", middleware.RequireParent(taskHandler.Approve))
	mux.HandleFunc("POST /api/tasks/{id}/reject", middleware.RequireParent(taskHandler.Reject))
	mux.HandleFunc("DELETE /api/tasks/{id}", middleware.RequireParent(taskHandler.Delete))

	// Rewards
	mux.HandleFunc("GET /api/rewards", rewardHandler.List)
	mux.HandleFunc("POST /api/rewards", middleware.RequireParent(rewardHandler.Create))
	mux.HandleFunc("PUT /api/rewards/{id}", middleware.RequireParent(rewardHandler.Update))
	mux.HandleFunc("DELETE /api/rewards/{id}", middleware.RequireParent(rewardHandler.Delete))
	mux.HandleFunc("POST /api/rewards/{id}/redeem", middleware.RequireChild(rewardHandler.Redeem))
	mux.HandleFunc("GET /api/children/{childId}/redemptions", rewardHandler.Redemptions)

	// Metrics
	mux.Handle("GET /metrics", metrics.Handler())

	// Wrap with identity resolution, metrics and logging middleware
	handler := handlers.Logging(metrics.Instrument(middleware.ResolveIdentity(mux)))

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background session cleanup
	go cleanupExpiredSessions(accountRepo)

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}

// cleanupExpiredSessions periodically removes expired sessions
func cleanupExpiredSessions(accounts *repository.AccountRepository) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		n, err := accounts.DeleteExpiredSessions(ctx)
		cancel()
		if err != nil {
			log.Printf("Error cleaning up expired sessions: %v", err)
			continue
		}
		if n > 0 {
			log.Printf("Expired sessions cleaned up: %d", n)
		}
	}
}
