package infra

import (
	"context"
	"testing"

	"github.com/arriviste0/personal-finance-sub000/internal/config"
)

func TestNewPostgresPoolRejectsBadURLs(t *testing.T) {
	ctx := context.Background()

	if _, err := NewPostgresPool(ctx, config.Config{AppName: "PennyLedger"}); err == nil {
		t.Fatal("expected error for empty database url")
	}
	cfg := config.Config{AppName: "PennyLedger", DatabaseURL: "postgres://host:not-a-port/db", DBMaxConns: 4}
	if _, err := NewPostgresPool(ctx, cfg); err == nil {
		t.Fatal("expected error for malformed database url")
	}
}

func TestNewRedisClientRejectsBadURLs(t *testing.T) {
	ctx := context.Background()

	if _, err := NewRedisClient(ctx, config.Config{AppName: "PennyLedger"}); err == nil {
		t.Fatal("expected error for empty redis url")
	}
	cfg := config.Config{AppName: "PennyLedger", RedisURL: "http://localhost:6379"}
	if _, err := NewRedisClient(ctx, cfg); err == nil {
		t.Fatal("expected error for malformed redis url")
	}
}
