package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/spacebook/spacebook-api/internal/config"
	"github.com/spacebook/spacebook-api/internal/domain/booking"
	"github.com/spacebook/spacebook-api/internal/domain/resolution"
	"github.com/spacebook/spacebook-api/internal/domain/session"
	"github.com/spacebook/spacebook-api/internal/domain/space"
	"github.com/spacebook/spacebook-api/internal/middleware"
	"github.com/spacebook/spacebook-api/internal/pkg/database"
	"github.com/spacebook/spacebook-api/internal/pkg/imaging"
	"github.com/spacebook/spacebook-api/internal/pkg/logger"
	"github.com/spacebook/spacebook-api/internal/pkg/officeapi"
	"github.com/spacebook/spacebook-api/internal/pkg/response"
	"github.com/spacebook/spacebook-api/internal/pkg/storage"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Str("backend", cfg.BackendURL).
		Msg("Starting Spacebook API")

	ctx := context.Background()

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	// ---------- Resolution audit trail ----------
	var resolutionStore resolution.Store
	if db != nil {
		repo := resolution.NewRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to create resolution_attempts table")
		}
		resolutionStore = repo
	}
	resolutionService := resolution.NewService(resolutionStore)

	// ---------- Backend client ----------
	client := officeapi.NewClient(officeapi.Config{
		BaseURL:   cfg.BackendURL,
		Timeout:   cfg.BackendTimeout(),
		UserAgent: cfg.BackendUserAgent,
		CacheBust: cfg.BackendCacheBust,
		Debug:     cfg.BackendDebug,
	}, officeapi.TokenFunc(session.TokenFromContext))
	client.SetRecorder(resolutionService)

	// ---------- Avatars ----------
	avatars, err := newAvatarStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create avatar storage")
	}

	// ---------- Services ----------
	sessionStore := session.NewStore(redis)
	sessionService := session.NewService(client, sessionStore, cfg.SessionTTL, avatars, imaging.NewProcessor(imaging.DefaultConfig()))
	spaceService := space.NewService(client, space.NewRedisCache(redis), cfg.SpacesCacheTTL, cfg.BrandedNames)
	bookingService := booking.NewService(client, spaceService, viewerSource(sessionService), cfg.Location())

	router := newRouter(cfg, routerDeps{
		sessionStore: sessionStore,
		sessions:     session.NewHandler(sessionService, cfg.SessionCookie, cfg.IsProduction()),
		users:        sessionService,
		spaces:       space.NewHandler(spaceService),
		bookings:     booking.NewHandler(bookingService),
		resolutions:  resolution.NewHandler(resolutionService),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

type routerDeps struct {
	sessionStore session.Store
	sessions     *session.Handler
	users        middleware.UserLoader
	spaces       *space.Handler
	bookings     *booking.Handler
	resolutions  *resolution.Handler
}

func newRouter(cfg *config.Config, d routerDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{"status": "ok"})
	})

	if !cfg.S3Enabled() && cfg.AvatarLocalDir != "" {
		r.Handle("/avatars/*", http.StripPrefix("/avatars", http.FileServer(http.Dir(cfg.AvatarLocalDir))))
	}

	authMiddleware := middleware.RequireAuth
	adminMiddleware := middleware.RequireAdmin(d.users)
	loginLimiter := middleware.NewRateLimiter(cfg.LoginRatePerMinute).Limit

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Session(d.sessionStore, cfg.SessionCookie))

		r.Mount("/auth", d.sessions.Routes(authMiddleware, loginLimiter))
		r.Mount("/users", d.sessions.UserRoutes(authMiddleware))
		r.Mount("/spaces", d.spaces.Routes())
		r.Mount("/bookings", d.bookings.Routes(authMiddleware))

		r.Route("/admin", func(r chi.Router) {
			r.Mount("/bookings", d.bookings.AdminRoutes(authMiddleware, adminMiddleware))
			r.Mount("/resolutions", d.resolutions.Routes(authMiddleware, adminMiddleware))
		})
	})

	return r
}

// viewerSource identifies the caller for my-bookings filtering.
func viewerSource(sessions *session.Service) booking.ViewerSource {
	return booking.ViewerFunc(func(ctx context.Context) (booking.Viewer, bool) {
		user, err := sessions.CurrentUser(ctx)
		if err != nil || user == nil {
			return booking.Viewer{}, false
		}
		return booking.Viewer{ID: user.ID, Email: user.Email}, true
	})
}

func newAvatarStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	if cfg.S3Enabled() {
		return storage.NewS3Storage(ctx, storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	}
	if cfg.AvatarLocalDir == "" {
		log.Warn().Msg("Avatar storage not configured, uploads disabled")
		return nil, nil
	}
	return storage.NewLocalStorage(cfg.AvatarLocalDir, cfg.AvatarPublicURL)
}

func setupLogger(cfg *config.Config) {
	if err := logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		LogFile:     cfg.LogFile,
	}); err != nil {
		log.Error().Err(err).Msg("Failed to initialise logger")
	}
}
