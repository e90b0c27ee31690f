package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/afisha-dev/afisha/internal/cache"
	"github.com/afisha-dev/afisha/internal/config"
	"github.com/afisha-dev/afisha/internal/domain/compilation"
	"github.com/afisha-dev/afisha/internal/domain/event"
	"github.com/afisha-dev/afisha/internal/utils"
	"github.com/gin-gonic/gin"
)

type CompilationsStore interface {
	Create(ctx context.Context, req compilation.CreateCompilationRequest) (compilation.Compilation, error)
	Update(ctx context.Context, id string, req compilation.UpdateCompilationRequest) (compilation.Compilation, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (compilation.Compilation, error)
	List(ctx context.Context, pinned *bool, from, size int) ([]compilation.Compilation, error)
}

type CompilationsHandler struct {
	repo      CompilationsStore
	listCache *cache.Cache
}

func NewCompilationsHandler(repo CompilationsStore, listCache *cache.Cache) *CompilationsHandler {
	return &CompilationsHandler{repo: repo, listCache: listCache}
}

func (h *CompilationsHandler) Create(ctx *gin.Context) {
	var req compilation.CreateCompilationRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	c, err := h.repo.Create(cctx, req)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "One of the listed events was not found")
			return
		}
		RespondInternal(ctx, "Could not create compilation")
		return
	}

	h.invalidateLists()

	ctx.JSON(http.StatusCreated, c)
}

func (h *CompilationsHandler) Update(ctx *gin.Context) {
	id := ctx.Param("compId")

	var req compilation.UpdateCompilationRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	c, err := h.repo.Update(cctx, id, req)
	if err != nil {
		switch {
		case errors.Is(err, compilation.ErrNotFound):
			RespondNotFound(ctx, "Compilation with id="+id+" was not found")
		case errors.Is(err, event.ErrNotFound):
			RespondNotFound(ctx, "One of the listed events was not found")
		default:
			RespondInternal(ctx, "Could not update compilation")
		}
		return
	}

	h.invalidateLists()

	ctx.JSON(http.StatusOK, c)
}

func (h *CompilationsHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("compId")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, id)
	if err != nil {
		if errors.Is(err, compilation.ErrNotFound) {
			RespondNotFound(ctx, "Compilation with id="+id+" was not found")
			return
		}
		RespondInternal(ctx, "Could not delete compilation")
		return
	}

	h.invalidateLists()

	ctx.Status(http.StatusNoContent)
}

func (h *CompilationsHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("compId")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	c, err := h.repo.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, compilation.ErrNotFound) {
			RespondNotFound(ctx, "Compilation with id="+id+" was not found")
			return
		}
		RespondInternal(ctx, "Could not fetch compilation")
		return
	}

	ctx.JSON(http.StatusOK, c)
}

func (h *CompilationsHandler) List(ctx *gin.Context) {
	from, size, err := utils.ParseFromSize(ctx.Query("from"), ctx.Query("size"))
	if err != nil {
		RespondBadRequest(ctx, err.Error())
		return
	}

	var pinned *bool
	extras := []string{"pinned="}

	if raw := ctx.Query("pinned"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			RespondBadRequest(ctx, "pinned must be a boolean")
			return
		}
		pinned = &v
		extras = []string{"pinned=" + raw}
	}

	key := utils.BuildListCacheKey("compilations:list", from, size, extras...)

	if h.listCache != nil {
		if cached, ok := h.listCache.Get(key); ok {
			if compilations, ok := cached.([]compilation.Compilation); ok {
				RespondJSONWithETag(ctx, http.StatusOK, compilations)
				return
			}
		}
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	compilations, err := h.repo.List(cctx, pinned, from, size)
	if err != nil {
		RespondInternal(ctx, "Could not list compilations")
		return
	}

	if h.listCache != nil {
		h.listCache.Set(key, compilations)
	}

	RespondJSONWithETag(ctx, http.StatusOK, compilations)
}

func (h *CompilationsHandler) invalidateLists() {
	if h.listCache != nil {
		h.listCache.Clear()
	}
}
