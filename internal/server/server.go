package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	_ "github.com/joho/godotenv/autoload"

	"spendly/internal/database"
	"spendly/internal/middlewares"
	"spendly/internal/repositories"
	"spendly/internal/services"
)

// Config is everything the server reads from the environment.
type Config struct {
	Port           int
	SessionKey     []byte
	JWTSecret      []byte
	AllowedOrigins []string
	SecureCookies  bool
	SMTP           services.SMTPConfig
}

// ConfigFromEnv reads PORT, SESSION_KEY, JWT_SECRET, ALLOWED_ORIGINS,
// SECURE_COOKIES and the SMTP_* variables.
func ConfigFromEnv() Config {
	portStr := os.Getenv("PORT")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Warn().Str("port", portStr).Msg("Invalid PORT environment variable. Using default 8080.")
		port = 8080
	}

	secure, _ := strconv.ParseBool(os.Getenv("SECURE_COOKIES"))

	cfg := Config{
		Port:           port,
		SessionKey:     []byte(os.Getenv("SESSION_KEY")),
		JWTSecret:      []byte(os.Getenv("JWT_SECRET")),
		AllowedOrigins: middlewares.ParseOrigins(os.Getenv("ALLOWED_ORIGINS")),
		SecureCookies:  secure,
		SMTP:           services.SMTPConfigFromEnv(),
	}
	if len(cfg.SessionKey) == 0 || len(cfg.JWTSecret) == 0 {
		log.Fatal().Msg("SESSION_KEY and JWT_SECRET must be set")
	}
	return cfg
}

type Server struct {
	port           int
	httpServer     *http.Server
	db             database.Service
	userService    services.UserService
	expenseService services.ExpenseService
	authService    services.AuthService
	limiter        *middlewares.RateLimiter
	allowedOrigins []string

	background context.Context
	stopAll    context.CancelFunc
}

func NewServer() *Server {
	cfg := ConfigFromEnv()
	db := database.New()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to create database indexes")
	}

	return newServer(cfg, db)
}

func newServer(cfg Config, db database.Service) *Server {
	userRepo := repositories.NewUserRepository(db)
	expenseRepo := repositories.NewExpenseRepository(db)

	store := services.NewCookieStore(cfg.SessionKey, cfg.SecureCookies)
	background, stopAll := context.WithCancel(context.Background())

	s := &Server{
		port:           cfg.Port,
		db:             db,
		userService:    services.NewUserService(userRepo, services.NewEmailService(cfg.SMTP)),
		expenseService: services.NewExpenseService(expenseRepo),
		authService:    services.NewAuthService(store, cfg.JWTSecret),
		limiter:        middlewares.NewRateLimiter(rate.Limit(3), 5),
		allowedOrigins: cfg.AllowedOrigins,
		background:     background,
		stopAll:        stopAll,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	go s.limiter.CleanupVisitors(s.background, time.Minute)
	go s.userService.TrackTotalUsers(s.background, 30*time.Second)

	log.Info().Int("port", s.port).Strs("origins", s.allowedOrigins).Msg("Starting server")
	return s.httpServer.ListenAndServe()
}

func (s *Server) GracefulShutdown(done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info().Msg("Shutting down gracefully, press Ctrl+C again to force")
	stop()
	s.stopAll()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown with error")
	}
	if err := s.db.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to disconnect from database")
	}

	log.Info().Msg("Server exiting")
	done <- true
}
