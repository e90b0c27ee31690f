package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/afisha-dev/afisha/internal/domain/stats"
)

type HitsRepo struct {
	mu    sync.RWMutex
	items []stats.EndpointHit
}

func NewHitsRepo() *HitsRepo {
	return &HitsRepo{items: make([]stats.EndpointHit, 0)}
}

func (r *HitsRepo) Create(_ context.Context, hit stats.EndpointHit) (stats.EndpointHit, error) {
	r.mu.Lock()
	r.items = append(r.items, hit)
	r.mu.Unlock()

	return hit, nil
}

func (r *HitsRepo) Query(_ context.Context, filter stats.QueryFilter) ([]stats.ViewStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type key struct{ app, uri string }
	counts := make(map[key]int64)
	seen := make(map[key]map[string]bool)

	for _, hit := range r.items {
		ts := hit.Timestamp.Time()
		if ts.Before(filter.Start) || ts.After(filter.End) {
			continue
		}
		if len(filter.URIs) > 0 && !containsString(filter.URIs, hit.URI) {
			continue
		}

		k := key{app: hit.App, uri: hit.URI}

		if filter.Unique {
			if seen[k] == nil {
				seen[k] = make(map[string]bool)
			}
			if seen[k][hit.IP] {
				continue
			}
			seen[k][hit.IP] = true
		}

		counts[k]++
	}

	out := make([]stats.ViewStats, 0, len(counts))
	for k, hits := range counts {
		out = append(out, stats.ViewStats{App: k.app, URI: k.uri, Hits: hits})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Hits == out[j].Hits {
			return out[i].URI < out[j].URI
		}
		return out[i].Hits > out[j].Hits
	})

	return out, nil
}
