package user

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := OpenSQLite(filepath.Join(t.TempDir(), "users.db"))
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestCreateAndFind(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	created, err := store.Create(ctx, "Alice", "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected a generated ID")
	}
	if created.Role != DefaultRole {
		t.Fatalf("expected default role, got %q", created.Role)
	}
	if created.PasswordHash == "correct-horse" {
		t.Fatal("password must not be stored in plaintext")
	}

	byEmail, err := store.FindByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if byEmail.ID != created.ID {
		t.Fatalf("ID mismatch: %q vs %q", byEmail.ID, created.ID)
	}

	byID, err := store.FindByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if byID.Email != "alice@example.com" {
		t.Fatalf("email mismatch: %q", byID.Email)
	}
}

func TestFindMissing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if _, err := store.FindByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.FindByID(ctx, "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	if _, err := store.Create(ctx, "Alice", "alice@example.com", "pw-one"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Create(ctx, "Imposter", "alice@example.com", "pw-two"); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestVerifyPassword(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	u, err := store.Create(ctx, "Alice", "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if !VerifyPassword(u, "correct-horse") {
		t.Fatal("correct password rejected")
	}
	if VerifyPassword(u, "wrong-horse") {
		t.Fatal("wrong password accepted")
	}
}
