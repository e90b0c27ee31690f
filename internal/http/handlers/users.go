package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/afisha-dev/afisha/internal/config"
	"github.com/afisha-dev/afisha/internal/domain/user"
	"github.com/afisha-dev/afisha/internal/utils"
	"github.com/gin-gonic/gin"
)

type UsersStore interface {
	Create(ctx context.Context, req user.CreateUserRequest) (user.User, error)
	List(ctx context.Context, filter user.ListUsersFilter) ([]user.User, error)
	Delete(ctx context.Context, id string) error
}

type UsersHandler struct {
	repo UsersStore
}

func NewUsersHandler(repo UsersStore) *UsersHandler {
	return &UsersHandler{repo: repo}
}

func (h *UsersHandler) Create(ctx *gin.Context) {
	var req user.CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.repo.Create(cctx, req)

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "User with this email already exists.")
			return
		}
		RespondInternal(ctx, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, u)
}

func (h *UsersHandler) List(ctx *gin.Context) {
	from, size, err := utils.ParseFromSize(ctx.Query("from"), ctx.Query("size"))
	if err != nil {
		RespondBadRequest(ctx, err.Error())
		return
	}

	filter := user.ListUsersFilter{
		IDs:  ctx.QueryArray("ids"),
		From: from,
		Size: size,
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	users, err := h.repo.List(cctx, filter)
	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	ctx.JSON(http.StatusOK, users)
}

func (h *UsersHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("userId")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "user id must be a valid UUID")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, id)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User with id="+id+" was not found")
		case errors.Is(err, user.ErrInUse):
			RespondConflict(ctx, "User still has events or requests")
		default:
			RespondInternal(ctx, "Could not delete user")
		}
		return
	}

	ctx.Status(http.StatusNoContent)
}
