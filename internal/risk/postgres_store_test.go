package risk

import (
	"context"
	"testing"
	"time"

	"github.com/scamsquatch/scamsquatch/internal/testutil"
)

func TestPostgresStore_RecordAndList(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, rec := range []*Record{
		{ID: "assess_1", RouteID: "route-a", FromToken: "0x1", ToToken: "0x2", FromChain: 11155111, ToChain: 11155111, Overall: 12, Level: LevelLow, Warnings: []string{}},
		{ID: "assess_2", RouteID: "route-b", FromToken: "0x1", ToToken: "0x3", FromChain: 11155111, ToChain: 2, Overall: 68, Level: LevelHigh, Warnings: []string{"Untrusted or unknown bridge protocol detected"}},
	} {
		rec.AssessedAt = base.Add(time.Duration(i) * time.Minute)
		if err := store.Record(ctx, rec); err != nil {
			t.Fatalf("Record(%s) failed: %v", rec.ID, err)
		}
	}

	got, err := store.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}

	// Newest first
	if got[0].ID != "assess_2" {
		t.Errorf("expected assess_2 first, got %s", got[0].ID)
	}
	if got[0].Level != LevelHigh {
		t.Errorf("expected HIGH, got %s", got[0].Level)
	}
	if len(got[0].Warnings) != 1 {
		t.Errorf("expected 1 warning, got %d", len(got[0].Warnings))
	}
	if !got[0].AssessedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("assessed_at mismatch: %v", got[0].AssessedAt)
	}
}

func TestPostgresStore_ListRespectsLimit(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := &Record{
			ID:         "assess_limit_" + string(rune('a'+i)),
			RouteID:    "route-x",
			FromToken:  "0x1",
			ToToken:    "0x2",
			FromChain:  1,
			ToChain:    1,
			Overall:    10,
			Level:      LevelLow,
			Warnings:   []string{},
			AssessedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		if err := store.Record(ctx, rec); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	got, err := store.ListRecent(ctx, 3)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 records, got %d", len(got))
	}
}
