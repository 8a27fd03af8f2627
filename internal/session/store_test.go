package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewStore(rdb), mr
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	rec := Record{UserID: "u-1", Email: "alice@example.com", Role: "user"}
	if err := store.PutAccess(ctx, "tok", rec, 900*time.Second); err != nil {
		t.Fatalf("PutAccess failed: %v", err)
	}

	got, err := store.GetAccess(ctx, "tok")
	if err != nil {
		t.Fatalf("GetAccess failed: %v", err)
	}
	if *got != rec {
		t.Fatalf("record mismatch: got %+v want %+v", *got, rec)
	}

	if ttl := mr.TTL("session:tok"); ttl != 900*time.Second {
		t.Fatalf("unexpected TTL: %v", ttl)
	}
}

func TestGetAbsentKey(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if _, err := store.GetAccess(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEntryExpiresViaTTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	if err := store.PutAccess(ctx, "tok", Record{UserID: "u-1"}, time.Second); err != nil {
		t.Fatalf("PutAccess failed: %v", err)
	}

	mr.FastForward(2 * time.Second)

	if _, err := store.GetAccess(ctx, "tok"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after TTL, got %v", err)
	}
}

func TestPutResetsTTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	if err := store.PutRefresh(ctx, "tok", Record{UserID: "u-1"}, 100*time.Second); err != nil {
		t.Fatalf("PutRefresh failed: %v", err)
	}
	mr.FastForward(60 * time.Second)
	if err := store.PutRefresh(ctx, "tok", Record{UserID: "u-1"}, 100*time.Second); err != nil {
		t.Fatalf("PutRefresh failed: %v", err)
	}

	if ttl := mr.TTL("refresh:tok"); ttl != 100*time.Second {
		t.Fatalf("overwrite must reset TTL, got %v", ttl)
	}
}

func TestConsumeRefreshIsSingleUse(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	rec := Record{UserID: "u-1", Email: "a@x.com", Role: "user"}
	if err := store.PutRefresh(ctx, "tok", rec, time.Hour); err != nil {
		t.Fatalf("PutRefresh failed: %v", err)
	}

	got, err := store.ConsumeRefresh(ctx, "tok")
	if err != nil {
		t.Fatalf("first ConsumeRefresh failed: %v", err)
	}
	if *got != rec {
		t.Fatalf("record mismatch: got %+v", *got)
	}

	if _, err := store.ConsumeRefresh(ctx, "tok"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second consume must fail with ErrNotFound, got %v", err)
	}
}

func TestConsumeRefreshSingleWinner(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if err := store.PutRefresh(ctx, "tok", Record{UserID: "u-1"}, time.Hour); err != nil {
		t.Fatalf("PutRefresh failed: %v", err)
	}

	const workers = 16
	start := make(chan struct{})
	results := make(chan error, workers)
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			_, err := store.ConsumeRefresh(ctx, "tok")
			results <- err
		}()
	}

	close(start)
	wg.Wait()
	close(results)

	winners := 0
	for err := range results {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrNotFound):
		default:
			t.Fatalf("unexpected consume error: %v", err)
		}
	}

	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

func TestTTLReporting(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	if err := store.PutAccess(ctx, "tok", Record{UserID: "u-1"}, 900*time.Second); err != nil {
		t.Fatalf("PutAccess failed: %v", err)
	}

	ttl, err := store.AccessTTL(ctx, "tok")
	if err != nil {
		t.Fatalf("AccessTTL failed: %v", err)
	}
	if ttl != 900*time.Second {
		t.Fatalf("unexpected TTL: %v", ttl)
	}

	mr.FastForward(300 * time.Second)
	if ttl, _ = store.AccessTTL(ctx, "tok"); ttl != 600*time.Second {
		t.Fatalf("TTL must count down: %v", ttl)
	}

	if _, err := store.RefreshTTL(ctx, "never-stored"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for absent entry, got %v", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if err := store.PutAccess(ctx, "tok", Record{UserID: "u-1"}, time.Hour); err != nil {
		t.Fatalf("PutAccess failed: %v", err)
	}

	if err := store.DeleteAccess(ctx, "tok"); err != nil {
		t.Fatalf("DeleteAccess failed: %v", err)
	}
	if err := store.DeleteAccess(ctx, "tok"); err != nil {
		t.Fatalf("deleting an absent key must not error: %v", err)
	}
	if err := store.DeleteRefresh(ctx, "never-existed"); err != nil {
		t.Fatalf("deleting an absent refresh key must not error: %v", err)
	}
}

func TestUnavailableStoreIsNotNotFound(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)

	if err := store.PutAccess(ctx, "tok", Record{UserID: "u-1"}, time.Hour); err != nil {
		t.Fatalf("PutAccess failed: %v", err)
	}

	mr.Close()

	_, err := store.GetAccess(ctx, "tok")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("connectivity failure must not look like a missing session")
	}

	if err := store.Ping(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from Ping, got %v", err)
	}
}
