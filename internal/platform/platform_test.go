package platform

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	"internship/internal/config"
	"internship/internal/model"
	"internship/internal/queue"
	"internship/internal/store"
)

func roundTrip(t *testing.T, b *Backends) {
	t.Helper()
	ctx := context.Background()
	if !b.Store.Healthy(ctx) {
		t.Fatal("store not healthy")
	}
	if err := b.Store.InsertRequest(ctx, model.Request{ID: "r1", Status: model.StatusPendingAdvisor}); err != nil {
		t.Fatalf("InsertRequest: %v", err)
	}
	if err := b.Store.InsertRequest(ctx, model.Request{ID: "r1"}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate got %v", err)
	}
}

func TestOpenMemory(t *testing.T) {
	b, err := Open(context.Background(), config.App{StoreBackend: "memory", QueueBackend: "memory"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()
	if b.Redis != nil {
		t.Fatal("memory backends must not dial redis")
	}
	if _, ok := b.Queue.(*queue.InMemory); !ok {
		t.Fatalf("unexpected queue %T", b.Queue)
	}
	roundTrip(t, b)
}

func TestOpenSQLiteFile(t *testing.T) {
	cfg := config.App{StoreBackend: "sqlite", QueueBackend: "memory", SQLitePath: filepath.Join(t.TempDir(), "portal.db")}
	b, err := Open(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()
	roundTrip(t, b)
}

func TestOpenRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.App{StoreBackend: "redis", QueueBackend: "redis", RedisAddr: mr.Addr(), RedisKeyPrefix: "t:", QueueKey: "t:events"}
	b, err := Open(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()
	if _, ok := b.Queue.(*queue.RedisQueue); !ok {
		t.Fatalf("unexpected queue %T", b.Queue)
	}
	roundTrip(t, b)
	if !mr.Exists("t:requests") {
		t.Fatal("expected requests document under the key prefix")
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(context.Background(), config.App{StoreBackend: "mongo", QueueBackend: "memory"}, zerolog.Nop()); err == nil {
		t.Fatal("expected error")
	}
}
