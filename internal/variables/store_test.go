package variables

import (
	"context"
	"testing"

	"github.com/feedrig/feedrig/internal/loader"
)

func TestMemoryStore_SetGet(t *testing.T) {
	store := NewStore()
	store.Set("username", "john")
	store.Set("token", "abc123")

	value, ok := store.Get("username")
	if !ok {
		t.Fatal("expected to find 'username' key")
	}
	if value != "john" {
		t.Errorf("expected 'john', got %q", value)
	}

	value, ok = store.Get("missing")
	if ok {
		t.Errorf("expected ok=false for missing key, got value %q", value)
	}
}

func TestMemoryStore_GetAllReturnsCopy(t *testing.T) {
	store := NewStore()
	store.Set("username", "john")
	store.Set("id", "42")

	all := store.GetAll()
	if len(all) != 2 {
		t.Fatalf("expected 2 variables, got %d", len(all))
	}

	all["username"] = "mallory"
	if v, _ := store.Get("username"); v != "john" {
		t.Error("mutating GetAll() result should not affect the store")
	}
}

func TestMemoryStore_MergeVariablesWin(t *testing.T) {
	store := NewStore()
	store.Set("user", "override")
	store.Set("session", "s-1")

	record := loader.Record{"user": "from-feed", "city": "Lisbon"}
	merged := store.Merge(record)

	if merged["user"] != "override" {
		t.Errorf("merged user = %q, want variable to win over feed record", merged["user"])
	}
	if merged["city"] != "Lisbon" {
		t.Errorf("merged city = %q, want feed record field preserved", merged["city"])
	}
	if merged["session"] != "s-1" {
		t.Errorf("merged session = %q, want variable included", merged["session"])
	}

	if record["user"] != "from-feed" {
		t.Error("Merge() must not mutate the input record")
	}
}

func TestMemoryStore_Clear(t *testing.T) {
	store := NewStore()
	store.Set("a", "1")
	store.Clear()

	if _, ok := store.Get("a"); ok {
		t.Error("expected store to be empty after Clear()")
	}
}

func TestContextRoundTrip(t *testing.T) {
	store := NewStore()
	store.Set("k", "v")

	ctx := NewContext(context.Background(), store)
	got := FromContext(ctx)
	if got == nil {
		t.Fatal("FromContext() returned nil for a context carrying a store")
	}
	if v, _ := got.Get("k"); v != "v" {
		t.Errorf("store from context returned %q, want %q", v, "v")
	}

	if FromContext(context.Background()) != nil {
		t.Error("FromContext() on a bare context should return nil")
	}
}
