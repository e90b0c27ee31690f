package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/afisha-dev/afisha/internal/repo/memory"
	"github.com/gin-gonic/gin"
)

func newStatsRouter(repo HitsStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	h := NewStatsHandler(repo)
	r.POST("/hit", h.CreateHit)
	r.GET("/stats", h.GetStats)

	return r
}

func postHit(t *testing.T, r *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/hit", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	return w
}

func TestCreateHit(t *testing.T) {
	r := newStatsRouter(memory.NewHitsRepo())

	t.Run("created", func(t *testing.T) {
		w := postHit(t, r, `{"app":"afisha","uri":"/events/1","ip":"10.0.0.1","timestamp":"2026-08-01 12:00:00"}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201, body %s", w.Code, w.Body.String())
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		w := postHit(t, r, `{"uri":"/events/1"}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})

	t.Run("bad timestamp format", func(t *testing.T) {
		w := postHit(t, r, `{"app":"afisha","uri":"/x","ip":"10.0.0.1","timestamp":"2026-08-01T12:00:00Z"}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})
}

func TestGetStats(t *testing.T) {
	repo := memory.NewHitsRepo()
	r := newStatsRouter(repo)

	// three hits, two unique ips, one uri
	for _, ip := range []string{"10.0.0.1", "10.0.0.1", "10.0.0.2"} {
		w := postHit(t, r, `{"app":"afisha","uri":"/events/1","ip":"`+ip+`","timestamp":"2026-08-01 12:00:00"}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("seed hit: %d", w.Code)
		}
	}

	get := func(t *testing.T, query string) *httptest.ResponseRecorder {
		t.Helper()
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/stats?"+query, nil)
		r.ServeHTTP(w, req)
		return w
	}

	enc := url.QueryEscape

	t.Run("total count", func(t *testing.T) {
		w := get(t, "start="+enc("2026-08-01 00:00:00")+"&end="+enc("2026-08-02 00:00:00"))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), `"hits":3`) {
			t.Fatalf("body = %s, want hits 3", w.Body.String())
		}
	})

	t.Run("unique count", func(t *testing.T) {
		w := get(t, "start="+enc("2026-08-01 00:00:00")+"&end="+enc("2026-08-02 00:00:00")+"&unique=true")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"hits":2`) {
			t.Fatalf("body = %s, want hits 2", w.Body.String())
		}
	})

	t.Run("start equals end is allowed", func(t *testing.T) {
		w := get(t, "start="+enc("2026-08-01 12:00:00")+"&end="+enc("2026-08-01 12:00:00"))
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"hits":3`) {
			t.Fatalf("body = %s, want hits 3 at the exact instant", w.Body.String())
		}
	})

	t.Run("end before start", func(t *testing.T) {
		w := get(t, "start="+enc("2026-08-02 00:00:00")+"&end="+enc("2026-08-01 00:00:00"))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})

	t.Run("missing range", func(t *testing.T) {
		w := get(t, "unique=true")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})

	t.Run("uris filter", func(t *testing.T) {
		w := get(t, "start="+enc("2026-08-01 00:00:00")+"&end="+enc("2026-08-02 00:00:00")+"&uris=/nothing")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if strings.TrimSpace(w.Body.String()) != "[]" {
			t.Fatalf("body = %s, want empty list", w.Body.String())
		}
	})
}
