package postgres

import (
	"context"
	"fmt"

	"github.com/afisha-dev/afisha/internal/domain/stats"
	"github.com/afisha-dev/afisha/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type HitsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewHitsRepo(pool *pgxpool.Pool, prom *observability.Prom) *HitsRepo {
	return &HitsRepo{pool: pool, prom: prom}
}

func (repo *HitsRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (repo *HitsRepo) Create(ctx context.Context, hit stats.EndpointHit) (stats.EndpointHit, error) {
	err := repo.observe("hits.create", func() error {
		_, err := repo.pool.Exec(ctx,
			`INSERT INTO endpoint_hits (id, app, uri, ip, ts) VALUES ($1,$2,$3,$4,$5)`,
			hit.ID, hit.App, hit.URI, hit.IP, hit.Timestamp.Time())
		return err
	})

	if err != nil {
		return stats.EndpointHit{}, err
	}

	return hit, nil
}

// Query aggregates hits per app/uri over [start, end] inclusive. Unique mode
// counts distinct IPs instead of raw hits.
func (repo *HitsRepo) Query(ctx context.Context, filter stats.QueryFilter) ([]stats.ViewStats, error) {
	agg := "COUNT(id)"
	if filter.Unique {
		agg = "COUNT(DISTINCT ip)"
	}

	q := fmt.Sprintf(
		`SELECT app, uri, %s AS hits FROM endpoint_hits WHERE ts BETWEEN $1 AND $2`, agg)
	args := []any{filter.Start, filter.End}

	if len(filter.URIs) > 0 {
		q += ` AND uri = ANY($3)`
		args = append(args, filter.URIs)
	}

	q += ` GROUP BY app, uri ORDER BY hits DESC, uri ASC`

	var rows pgx.Rows
	err := repo.observe("hits.query", func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx, q, args...)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]stats.ViewStats, 0)
	for rows.Next() {
		var v stats.ViewStats
		if err := rows.Scan(&v.App, &v.URI, &v.Hits); err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	return out, rows.Err()
}
