package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mvidalr/gramreach/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()

	repo, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("close repository: %v", err)
		}
	})
	return repo
}

func TestPing(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestCreateCampaignAndDeliveries(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	campaign := &domain.Campaign{
		RunID:    "run-1",
		Username: "ana",
		Config: domain.RunConfig{
			Competitors:      []string{"comp1", "comp2"},
			MessagesPerCycle: 10,
			TotalMessages:    40,
			DurationHours:    6,
		},
		StartedAt: time.Now(),
	}
	if err := repo.CreateCampaign(ctx, campaign); err != nil {
		t.Fatalf("CreateCampaign failed: %v", err)
	}

	base := time.Now().Add(-time.Minute)
	for i, recipient := range []string{"a", "b", "c"} {
		d := &Delivery{
			RunID:         "run-1",
			RecipientID:   recipient,
			RecipientName: "user " + recipient,
			Message:       "hi " + recipient,
			SentAt:        base.Add(time.Duration(i) * time.Second),
		}
		if err := repo.RecordDelivery(ctx, d); err != nil {
			t.Fatalf("RecordDelivery failed: %v", err)
		}
	}

	count, err := repo.CountDeliveries(ctx, "run-1")
	if err != nil {
		t.Fatalf("CountDeliveries failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 deliveries, got %d", count)
	}

	recent, err := repo.RecentDeliveries(ctx, "run-1", 2)
	if err != nil {
		t.Fatalf("RecentDeliveries failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 recent deliveries, got %d", len(recent))
	}
	if recent[0].RecipientID != "c" {
		t.Errorf("expected newest delivery first, got %q", recent[0].RecipientID)
	}
	if recent[0].Message != "hi c" {
		t.Errorf("unexpected message %q", recent[0].Message)
	}
}

func TestCountDeliveriesUnknownRun(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	count, err := repo.CountDeliveries(context.Background(), "nope")
	if err != nil {
		t.Fatalf("CountDeliveries failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 deliveries for unknown run, got %d", count)
	}
}
