package request

import (
	"testing"

	"github.com/afisha-dev/afisha/internal/domain/event"
)

func TestInitialStatus(t *testing.T) {
	tests := []struct {
		name       string
		moderation bool
		limit      int
		want       Status
	}{
		{"moderated with limit", true, 5, StatusPending},
		{"moderation off", false, 5, StatusConfirmed},
		{"no limit", true, 0, StatusConfirmed},
		{"moderation off and no limit", false, 0, StatusConfirmed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := event.Event{
				RequestModeration: tt.moderation,
				ParticipantLimit:  tt.limit,
			}

			if got := InitialStatus(e); got != tt.want {
				t.Fatalf("InitialStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	r := New("u1", "e1", StatusPending)

	if r.ID == "" {
		t.Fatal("id must be assigned")
	}
	if r.RequesterID != "u1" || r.EventID != "e1" {
		t.Fatalf("unexpected refs: %+v", r)
	}
	if r.Created.IsZero() {
		t.Fatal("created must be set")
	}
}
