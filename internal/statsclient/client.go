package statsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/afisha-dev/afisha/internal/domain/stats"
	"github.com/afisha-dev/afisha/internal/observability"
)

// Client talks to the stats service. Every call is best-effort: a stats
// outage must never fail the caller's request, so errors are logged and
// counted, not returned up the handler chain.
type Client struct {
	baseURL string
	app     string
	httpc   *http.Client
	log     *slog.Logger
	prom    *observability.Prom
}

func New(baseURL, app string, log *slog.Logger, prom *observability.Prom) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		app:     app,
		httpc:   &http.Client{Timeout: 2 * time.Second},
		log:     log,
		prom:    prom,
	}
}

func (c *Client) count(op, result string) {
	if c.prom != nil {
		c.prom.StatsCallsTotal.WithLabelValues(op, result).Inc()
	}
}

// Hit records one endpoint view. Failures are swallowed.
func (c *Client) Hit(ctx context.Context, uri, ip string) {
	body, err := json.Marshal(stats.CreateHitRequest{
		App:       c.app,
		URI:       uri,
		IP:        ip,
		Timestamp: stats.DateTime(time.Now()),
	})
	if err != nil {
		c.count("hit", "error")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/hit", bytes.NewReader(body))
	if err != nil {
		c.count("hit", "error")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.count("hit", "error")
		c.log.Warn("stats hit failed", "uri", uri, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		c.count("hit", "error")
		c.log.Warn("stats hit rejected", "uri", uri, "status", resp.StatusCode)
		return
	}

	c.count("hit", "ok")
}

// Views returns hit counts per uri. On any failure it returns an empty map
// so callers render zero views instead of an error.
func (c *Client) Views(ctx context.Context, uris []string, start, end time.Time, unique bool) map[string]int64 {
	out := make(map[string]int64, len(uris))

	q := url.Values{}
	q.Set("start", start.Format(stats.DateTimeLayout))
	q.Set("end", end.Format(stats.DateTimeLayout))
	q.Set("unique", strconv.FormatBool(unique))
	for _, uri := range uris {
		q.Add("uris", uri)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/stats?"+q.Encode(), nil)
	if err != nil {
		c.count("views", "error")
		return out
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		c.count("views", "error")
		c.log.Warn("stats query failed", "error", err)
		return out
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.count("views", "error")
		c.log.Warn("stats query rejected", "status", resp.StatusCode)
		return out
	}

	var views []stats.ViewStats
	if err := json.NewDecoder(resp.Body).Decode(&views); err != nil {
		c.count("views", "error")
		c.log.Warn("stats response unreadable", "error", err)
		return out
	}

	for _, v := range views {
		out[v.URI] = v.Hits
	}

	c.count("views", "ok")

	return out
}

// EventURI builds the public uri a single event is tracked under.
func EventURI(eventID string) string {
	return fmt.Sprintf("/events/%s", eventID)
}
