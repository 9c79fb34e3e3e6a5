package credentials

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "credentials.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() }) //nolint:errcheck // test cleanup
	return store
}

func TestStore_LoadEmpty(t *testing.T) {
	store := testStore(t)

	_, err := store.Load(context.Background())
	if !errors.Is(err, ErrNoCredentials) {
		t.Errorf("Load() error = %v, want ErrNoCredentials", err)
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	creds := &Credentials{
		Endpoint: "https://hub.example.com:8123",
		Token:    "llat-token",
	}
	if err := store.Save(ctx, creds); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Endpoint != creds.Endpoint {
		t.Errorf("Endpoint = %q, want %q", got.Endpoint, creds.Endpoint)
	}
	if got.Token != creds.Token {
		t.Errorf("Token = %q, want %q", got.Token, creds.Token)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set on save")
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	store.Save(ctx, &Credentials{Endpoint: "http://old.local:8123", Token: "old"}) //nolint:errcheck // test setup
	if err := store.Save(ctx, &Credentials{Endpoint: "http://new.local:8123", Token: "new"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Endpoint != "http://new.local:8123" || got.Token != "new" {
		t.Errorf("Load() = %+v, want the overwritten credentials", got)
	}
}

func TestStore_Clear(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	store.Save(ctx, &Credentials{Endpoint: "http://hub.local:8123", Token: "tok"}) //nolint:errcheck // test setup
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	if _, err := store.Load(ctx); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("Load() after Clear() error = %v, want ErrNoCredentials", err)
	}

	// Clearing again is a no-op.
	if err := store.Clear(ctx); err != nil {
		t.Errorf("Clear() on empty store error = %v", err)
	}
}

func TestStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.db")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	store.Save(ctx, &Credentials{Endpoint: "http://hub.local:8123", Token: "tok"}) //nolint:errcheck // test setup
	store.Close()                                                                 //nolint:errcheck // test cleanup

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close() //nolint:errcheck // test cleanup

	got, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load() after reopen error = %v", err)
	}
	if got.Token != "tok" {
		t.Errorf("Token = %q, want %q", got.Token, "tok")
	}
}
