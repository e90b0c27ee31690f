package category

import (
	"errors"

	"github.com/google/uuid"
)

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var ErrNotFound = errors.New("category not found")
var ErrNameTaken = errors.New("category name must be unique")

// a category cannot be removed while events still reference it
var ErrInUse = errors.New("the category is not empty")

type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required,min=1,max=50"`
}

type UpdateCategoryRequest struct {
	Name string `json:"name" binding:"required,min=1,max=50"`
}

func NewFromCreateRequest(req CreateCategoryRequest) Category {
	return Category{
		ID:   uuid.NewString(),
		Name: req.Name,
	}
}
