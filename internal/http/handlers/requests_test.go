package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/afisha-dev/afisha/internal/domain/event"
	"github.com/afisha-dev/afisha/internal/repo/memory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newRequestsRouter(repo RequestsStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	h := NewRequestsHandler(repo)
	r.POST("/users/:userId/requests", h.Create)
	r.GET("/users/:userId/requests", h.ListOwn)
	r.PATCH("/users/:userId/requests/:requestId/cancel", h.Cancel)
	r.GET("/users/:userId/events/:eventId/requests", h.ListForEvent)
	r.PATCH("/users/:userId/events/:eventId/requests", h.UpdateStatuses)

	return r
}

func seedPublishedEvent(t *testing.T, events *memory.EventsRepo, limit int, moderation bool) event.Event {
	t.Helper()

	e := event.Event{
		ID:                uuid.NewString(),
		Title:             "Jazz night",
		InitiatorID:       "initiator",
		State:             event.StatePublished,
		EventDate:         time.Now().Add(24 * time.Hour),
		ParticipantLimit:  limit,
		RequestModeration: moderation,
		CreatedOn:         time.Now(),
	}

	if _, err := events.Create(context.Background(), e); err != nil {
		t.Fatal(err)
	}

	return e
}

func TestRequestsCreateEndpoint(t *testing.T) {
	events := memory.NewEventsRepo()
	requests := memory.NewRequestsRepo(events)
	requests.AddUser("initiator")
	requests.AddUser("alice")

	e := seedPublishedEvent(t, events, 1, false)
	r := newRequestsRouter(requests)

	do := func(userID, eventID string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/users/"+userID+"/requests?eventId="+eventID, nil)
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("missing eventId", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/users/alice/requests", nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})

	t.Run("unknown user is 404", func(t *testing.T) {
		if w := do("ghost", e.ID); w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", w.Code)
		}
	})

	t.Run("own event is 409", func(t *testing.T) {
		if w := do("initiator", e.ID); w.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", w.Code)
		}
	})

	t.Run("created and auto-confirmed", func(t *testing.T) {
		w := do("alice", e.ID)
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), `"status":"CONFIRMED"`) {
			t.Fatalf("body = %s, want CONFIRMED", w.Body.String())
		}
	})

	t.Run("duplicate is 409", func(t *testing.T) {
		if w := do("alice", e.ID); w.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", w.Code)
		}
	})

	t.Run("limit reached is 409", func(t *testing.T) {
		requests.AddUser("bob")
		if w := do("bob", e.ID); w.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", w.Code)
		}
	})
}

func TestRequestsModerationEndpoint(t *testing.T) {
	events := memory.NewEventsRepo()
	requests := memory.NewRequestsRepo(events)
	requests.AddUser("initiator")
	requests.AddUser("alice")
	requests.AddUser("bob")

	e := seedPublishedEvent(t, events, 1, true)
	r := newRequestsRouter(requests)

	create := func(t *testing.T, userID string) string {
		t.Helper()
		req, err := requests.Create(context.Background(), userID, e.ID)
		if err != nil {
			t.Fatal(err)
		}
		return req.ID
	}

	aliceReq := create(t, "alice")
	bobReq := create(t, "bob")

	patch := func(userID, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPatch,
			"/users/"+userID+"/events/"+e.ID+"/requests", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("outsider is 409", func(t *testing.T) {
		w := patch("alice", `{"requestIds":["`+aliceReq+`"],"status":"CONFIRMED"}`)
		if w.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", w.Code)
		}
	})

	t.Run("batch over limit is 409 and commits nothing", func(t *testing.T) {
		w := patch("initiator", `{"requestIds":["`+aliceReq+`","`+bobReq+`"],"status":"CONFIRMED"}`)
		if w.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409, body %s", w.Code, w.Body.String())
		}

		got, _ := events.GetByID(context.Background(), e.ID)
		if got.ConfirmedRequests != 0 {
			t.Fatalf("confirmedRequests = %d, want 0", got.ConfirmedRequests)
		}
	})

	t.Run("confirm one", func(t *testing.T) {
		w := patch("initiator", `{"requestIds":["`+aliceReq+`"],"status":"CONFIRMED"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), `"confirmedRequests"`) {
			t.Fatalf("body = %s, want confirmedRequests list", w.Body.String())
		}
	})

	t.Run("reject the other", func(t *testing.T) {
		w := patch("initiator", `{"requestIds":["`+bobReq+`"],"status":"REJECTED"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
	})

	t.Run("cancel rejected is 409", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPatch, "/users/bob/requests/"+bobReq+"/cancel", nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", w.Code)
		}
	})

	t.Run("list for event as initiator", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/users/initiator/events/"+e.ID+"/requests", nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
	})

	t.Run("list own requests", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/users/alice/requests", nil)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), aliceReq) {
			t.Fatalf("body = %s, want request %s", w.Body.String(), aliceReq)
		}
	})
}
