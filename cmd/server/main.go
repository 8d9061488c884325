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
	_ "time/tzdata"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/spellbuddy/backend/internal/auth"
	"github.com/spellbuddy/backend/internal/config"
	"github.com/spellbuddy/backend/internal/database"
	"github.com/spellbuddy/backend/internal/feedback"
	"github.com/spellbuddy/backend/internal/gamification"
	"github.com/spellbuddy/backend/internal/logger"
	"github.com/spellbuddy/backend/internal/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.Open(ctx, cfg, logg)
	if err != nil {
		logg.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	// Initialize services
	gamificationService := gamification.NewService(db, logg, gamification.WithLocation(cfg.StreakLocation))
	if err := gamificationService.SeedCatalog(ctx, gamification.Catalog); err != nil {
		logg.Fatal("Failed to seed achievements", "error", err)
	}

	var coach gamification.Explainer
	if c := feedback.NewCoachFromConfig(cfg, logg); c != nil {
		coach = c
	}

	// Initialize handlers
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	authHandler := auth.NewHandler(gamificationService, tokens, logg)
	gamificationHandler := gamification.NewHandler(gamificationService, coach, logg)

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.RequestIDs, middleware.AccessLog(logg))
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth(tokens))
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")
	protected.HandleFunc("/progress", gamificationHandler.GetProgress).Methods("GET")
	protected.HandleFunc("/activity", gamificationHandler.TouchActivity).Methods("POST")
	protected.HandleFunc("/exercises/complete", gamificationHandler.CompleteExercise).Methods("POST")
	protected.HandleFunc("/achievements", gamificationHandler.ListAchievements).Methods("GET")
	protected.HandleFunc("/achievements/seen", gamificationHandler.MarkAchievementsSeen).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logg.Info("Server starting", "port", cfg.ServerPort, "db", cfg.DatabaseType)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("Server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logg.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("Graceful shutdown failed", "error", err)
	}
}
