// Worker prunes expired audit logs on a fixed interval.
// Set DATABASE_URL; AUDIT_RETENTION_DAYS and AUDIT_PRUNE_INTERVAL tune the
// retention window and cadence.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	auditrepo "nutriflow/auth/internal/audit/repository"
	"nutriflow/auth/internal/config"
	"nutriflow/auth/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("worker: DATABASE_URL is required")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	audits := auditrepo.NewPostgresRepository(conn)
	retention := time.Duration(cfg.AuditRetentionDays) * 24 * time.Hour
	interval := cfg.AuditPruneIntervalDuration()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("worker: pruning audit logs older than %d days every %s", cfg.AuditRetentionDays, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prune := func() {
		pruneCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		cutoff := time.Now().UTC().Add(-retention)
		n, err := audits.DeleteOlderThan(pruneCtx, cutoff)
		if err != nil {
			log.Printf("worker: prune failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("worker: pruned %d audit logs older than %s", n, cutoff.Format(time.RFC3339))
		}
	}

	prune()
	for {
		select {
		case <-ctx.Done():
			log.Println("worker: stopped")
			return
		case <-ticker.C:
			prune()
		}
	}
}
