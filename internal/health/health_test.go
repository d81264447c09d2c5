package health

import (
	"context"
	"errors"
	"testing"
)

func TestCheckAll_Empty(t *testing.T) {
	r := NewRegistry()
	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Error("empty registry should be healthy")
	}
	if len(statuses) != 0 {
		t.Errorf("statuses = %v, want empty", statuses)
	}
}

func TestCheckAll_AllHealthy(t *testing.T) {
	r := NewRegistry()
	r.Register("database", func(ctx context.Context) error { return nil })
	r.Register("rpc", func(ctx context.Context) error { return nil })

	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Error("all checkers healthy, aggregate should be healthy")
	}
	if len(statuses) != 2 {
		t.Fatalf("got %d statuses, want 2", len(statuses))
	}
	for _, s := range statuses {
		if !s.Healthy || s.Detail != "" {
			t.Errorf("status %v, want healthy with no detail", s)
		}
	}
}

func TestCheckAll_OneUnhealthy(t *testing.T) {
	r := NewRegistry()
	r.Register("database", func(ctx context.Context) error { return nil })
	r.Register("route_source", func(ctx context.Context) error {
		return errors.New("circuit open")
	})

	healthy, statuses := r.CheckAll(context.Background())
	if healthy {
		t.Error("aggregate should be unhealthy when a checker fails")
	}

	found := false
	for _, s := range statuses {
		if s.Name == "route_source" && !s.Healthy && s.Detail == "circuit open" {
			found = true
		}
	}
	if !found {
		t.Errorf("unhealthy status not reported: %v", statuses)
	}
}
