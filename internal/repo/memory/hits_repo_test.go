package memory

import (
	"context"
	"testing"
	"time"

	"github.com/afisha-dev/afisha/internal/domain/stats"
	"github.com/google/uuid"
)

func hitAt(uri, ip string, ts time.Time) stats.EndpointHit {
	return stats.EndpointHit{
		ID:        uuid.NewString(),
		App:       "afisha",
		URI:       uri,
		IP:        ip,
		Timestamp: stats.DateTime(ts),
	}
}

func TestHitsQuery(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	repo := NewHitsRepo()

	// three hits on one uri from two ips
	for _, ip := range []string{"10.0.0.1", "10.0.0.1", "10.0.0.2"} {
		if _, err := repo.Create(ctx, hitAt("/events/1", ip, base)); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := repo.Create(ctx, hitAt("/events/2", "10.0.0.3", base.Add(time.Minute))); err != nil {
		t.Fatal(err)
	}

	t.Run("total hits", func(t *testing.T) {
		views, err := repo.Query(ctx, stats.QueryFilter{
			Start: base.Add(-time.Hour),
			End:   base.Add(time.Hour),
		})
		if err != nil {
			t.Fatal(err)
		}

		if len(views) != 2 {
			t.Fatalf("len = %d, want 2", len(views))
		}
		// sorted by hits desc
		if views[0].URI != "/events/1" || views[0].Hits != 3 {
			t.Fatalf("top = %+v, want /events/1 with 3", views[0])
		}
		if views[1].Hits != 1 {
			t.Fatalf("second = %+v, want 1 hit", views[1])
		}
	})

	t.Run("unique ips", func(t *testing.T) {
		views, err := repo.Query(ctx, stats.QueryFilter{
			Start:  base.Add(-time.Hour),
			End:    base.Add(time.Hour),
			URIs:   []string{"/events/1"},
			Unique: true,
		})
		if err != nil {
			t.Fatal(err)
		}

		if len(views) != 1 || views[0].Hits != 2 {
			t.Fatalf("views = %+v, want /events/1 with 2 unique", views)
		}
	})

	t.Run("window is inclusive and start==end works", func(t *testing.T) {
		views, err := repo.Query(ctx, stats.QueryFilter{Start: base, End: base})
		if err != nil {
			t.Fatal(err)
		}

		if len(views) != 1 || views[0].URI != "/events/1" || views[0].Hits != 3 {
			t.Fatalf("views = %+v, want only /events/1 at the exact instant", views)
		}
	})

	t.Run("out of range", func(t *testing.T) {
		views, err := repo.Query(ctx, stats.QueryFilter{
			Start: base.Add(2 * time.Hour),
			End:   base.Add(3 * time.Hour),
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(views) != 0 {
			t.Fatalf("views = %+v, want empty", views)
		}
	})
}
