// Server runs the auth HTTP API. Requires JWT_SECRET and DATABASE_URL; see
// .env.example for the full set of knobs.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"nutriflow/auth/internal/audit"
	auditrepo "nutriflow/auth/internal/audit/repository"
	"nutriflow/auth/internal/auth/handler"
	authservice "nutriflow/auth/internal/auth/service"
	"nutriflow/auth/internal/config"
	"nutriflow/auth/internal/db"
	policyengine "nutriflow/auth/internal/policy/engine"
	policyrepo "nutriflow/auth/internal/policy/repository"
	"nutriflow/auth/internal/ratelimit"
	"nutriflow/auth/internal/security"
	"nutriflow/auth/internal/server"
	teleotel "nutriflow/auth/internal/telemetry/otel"
	userrepo "nutriflow/auth/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set; logins cannot be served without a signing key")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := teleotel.NewProviders(ctx, cfg.OTLPEndpoint, "nutriflow-auth", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("telemetry shutdown: %v", err)
		}
	}()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	users := userrepo.NewPostgresRepository(conn)
	audits := auditrepo.NewPostgresRepository(conn)
	policies := policyrepo.NewPostgresRepository(conn)

	evaluator := policyengine.NewOPAEvaluator(policies)
	auditor := audit.NewLogger(audits, handler.ClientIPFromContext)

	limiter := ratelimit.NewMemoryLimiter(cfg.LoginMaxAttempts, cfg.LoginWindowDuration())
	defer limiter.Close()

	svc := authservice.NewAuthService(
		users,
		security.NewHasher(cfg.BcryptCost),
		security.NewTokenService([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.TokenTTL()),
		limiter,
		evaluator,
		auditor,
	)

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.NewHandler(server.Deps{
			Auth:                svc,
			SecureCookies:       cfg.IsProduction(),
			HealthPinger:        conn,
			HealthPolicyChecker: evaluator,
			Emitter:             teleotel.NewEventEmitter(providers.LoggerProvider),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("auth server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down auth server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("auth server stopped")
}
