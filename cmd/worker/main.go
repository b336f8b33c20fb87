// worker runs the background maintenance loop: it sweeps expired sessions and
// verification codes on a ticker and drains the auth event stream from Kafka
// into the audit log. Set KAFKA_BROKERS to enable the consumer; the sweeper
// always runs.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	auditdomain "social-platform/backend/internal/audit/domain"
	auditrepo "social-platform/backend/internal/audit/repository"
	"social-platform/backend/internal/config"
	"social-platform/backend/internal/db"
	"social-platform/backend/internal/events"
	"social-platform/backend/internal/logging"
	sessionrepo "social-platform/backend/internal/session/repository"
	verificationrepo "social-platform/backend/internal/verification/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)

	pool, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("db", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	sessions := sessionrepo.NewPostgresRepository(pool)
	codes := verificationrepo.NewPostgresRepository(pool)
	audits := auditrepo.NewPostgresRepository(pool)

	ctx, cancel := context.WithCancel(logging.IntoContext(context.Background(), logger))
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("worker shutting down")
		cancel()
	}()

	go sweepLoop(ctx, logger, cfg.SweepEvery(), sessions, codes)

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		logger.Info("KAFKA_BROKERS not set, running sweeper only")
		<-ctx.Done()
		return
	}
	consumeEvents(ctx, logger, brokers, cfg.KafkaTopic, cfg.KafkaGroupID, audits)
}

// sweepLoop deletes expired sessions and verification codes every interval.
// The sweeps inside Create keep tables bounded under traffic; this loop covers
// idle periods.
func sweepLoop(ctx context.Context, logger *slog.Logger, every time.Duration, sessions *sessionrepo.PostgresRepository, codes *verificationrepo.PostgresRepository) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if n, err := sessions.DeleteExpired(sweepCtx); err != nil {
			logger.Error("session sweep failed", slog.String("error", err.Error()))
		} else if n > 0 {
			logger.Info("swept expired sessions", slog.Int64("count", n))
		}
		if n, err := codes.DeleteExpired(sweepCtx); err != nil {
			logger.Error("code sweep failed", slog.String("error", err.Error()))
		} else if n > 0 {
			logger.Info("swept expired codes", slog.Int64("count", n))
		}
		cancel()
	}
}

// consumeEvents reads auth lifecycle events and records them in the audit log,
// so the event stream and the audit trail converge even for events emitted by
// other services on the same topic.
func consumeEvents(ctx context.Context, logger *slog.Logger, brokers []string, topic, groupID string, audits auditrepo.Repository) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
	defer reader.Close()

	logger.Info("consuming auth events",
		slog.String("topic", topic), slog.String("group", groupID))

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("worker stopped")
				return
			}
			logger.Error("kafka read error", slog.String("error", err.Error()))
			continue
		}

		var ev events.Event
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			logger.Warn("skipping malformed event", slog.String("error", err.Error()))
			continue
		}

		at := ev.At
		if at.IsZero() {
			at = time.Now().UTC()
		}
		saveCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = audits.Save(saveCtx, &auditdomain.AuditLog{
			ID:        uuid.New().String(),
			UserID:    ev.UserID,
			Action:    ev.Type,
			Resource:  "event",
			IP:        "stream",
			Metadata:  string(msg.Value),
			CreatedAt: at,
		})
		cancel()
		if err != nil {
			logger.Error("audit save failed", slog.String("error", err.Error()))
		}
	}
}
