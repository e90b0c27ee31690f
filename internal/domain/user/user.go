package user

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

var ErrNotFound = errors.New("user not found")

// email must stay unique across all users
var ErrEmailTaken = errors.New("email already exists")

// user still owns events or requests
var ErrInUse = errors.New("user has related data")

type CreateUserRequest struct {
	Name  string `json:"name" binding:"required,min=2,max=250"`
	Email string `json:"email" binding:"required,email,max=254"`
}

type ListUsersFilter struct {
	IDs  []string
	From int
	Size int
}

func NewFromCreateRequest(req CreateUserRequest) User {
	return User{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Email:     req.Email,
		CreatedAt: time.Now().UTC(),
	}
}
