package compilation

import (
	"errors"

	"github.com/afisha-dev/afisha/internal/domain/event"
	"github.com/google/uuid"
)

type Compilation struct {
	ID     string        `json:"id"`
	Title  string        `json:"title"`
	Pinned bool          `json:"pinned"`
	Events []event.Event `json:"events"`
}

var ErrNotFound = errors.New("compilation not found")

type CreateCompilationRequest struct {
	Title  string   `json:"title" binding:"required,min=1,max=50"`
	Pinned *bool    `json:"pinned"`
	Events []string `json:"events"`
}

type UpdateCompilationRequest struct {
	Title  *string   `json:"title" binding:"omitempty,min=1,max=50"`
	Pinned *bool     `json:"pinned"`
	Events *[]string `json:"events"`
}

func NewFromCreateRequest(req CreateCompilationRequest) Compilation {
	pinned := false
	if req.Pinned != nil {
		pinned = *req.Pinned
	}

	return Compilation{
		ID:     uuid.NewString(),
		Title:  req.Title,
		Pinned: pinned,
		Events: []event.Event{},
	}
}
