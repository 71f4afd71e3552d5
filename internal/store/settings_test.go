package store

import (
	"context"
	"testing"

	"github.com/campuslend/campuslend/internal/db"
)

func TestGetJWTSecret_GeneratesAndPersists(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	secret1, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if len(secret1) != 64 { // 32 bytes = 64 hex chars
		t.Fatalf("expected 64 hex chars, got %d", len(secret1))
	}

	secret2, err := GetJWTSecret(ctx, database)
	if err != nil {
		t.Fatal(err)
	}
	if secret1 != secret2 {
		t.Fatalf("expected same secret, got %q and %q", secret1, secret2)
	}
}

func TestEnsureSettingKeepsFirstValue(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	v, err := EnsureSetting(ctx, database, "k", "first")
	if err != nil || v != "first" {
		t.Fatalf("EnsureSetting = %q, %v", v, err)
	}
	v, _ = EnsureSetting(ctx, database, "k", "second")
	if v != "first" {
		t.Errorf("expected stored value 'first', got %q", v)
	}
}
