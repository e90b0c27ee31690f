package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/afisha-dev/afisha/internal/cache"
	"github.com/afisha-dev/afisha/internal/config"
	"github.com/afisha-dev/afisha/internal/domain/category"
	"github.com/afisha-dev/afisha/internal/utils"
	"github.com/gin-gonic/gin"
)

type CategoriesStore interface {
	Create(ctx context.Context, req category.CreateCategoryRequest) (category.Category, error)
	Update(ctx context.Context, id string, req category.UpdateCategoryRequest) (category.Category, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (category.Category, error)
	List(ctx context.Context, from, size int) ([]category.Category, error)
}

type CategoriesHandler struct {
	repo      CategoriesStore
	listCache *cache.Cache
}

func NewCategoriesHandler(repo CategoriesStore, listCache *cache.Cache) *CategoriesHandler {
	return &CategoriesHandler{repo: repo, listCache: listCache}
}

func (h *CategoriesHandler) Create(ctx *gin.Context) {
	var req category.CreateCategoryRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	c, err := h.repo.Create(cctx, req)
	if err != nil {
		if errors.Is(err, category.ErrNameTaken) {
			RespondConflict(ctx, "Category name must be unique.")
			return
		}
		RespondInternal(ctx, "Could not create category")
		return
	}

	h.invalidateLists()

	ctx.JSON(http.StatusCreated, c)
}

func (h *CategoriesHandler) Update(ctx *gin.Context) {
	id := ctx.Param("catId")

	var req category.UpdateCategoryRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	c, err := h.repo.Update(cctx, id, req)
	if err != nil {
		switch {
		case errors.Is(err, category.ErrNotFound):
			RespondNotFound(ctx, "Category with id="+id+" was not found")
		case errors.Is(err, category.ErrNameTaken):
			RespondConflict(ctx, "Category name must be unique.")
		default:
			RespondInternal(ctx, "Could not update category")
		}
		return
	}

	h.invalidateLists()

	ctx.JSON(http.StatusOK, c)
}

func (h *CategoriesHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("catId")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	err := h.repo.Delete(cctx, id)
	if err != nil {
		switch {
		case errors.Is(err, category.ErrNotFound):
			RespondNotFound(ctx, "Category with id="+id+" was not found")
		case errors.Is(err, category.ErrInUse):
			RespondConflict(ctx, "The category is not empty.")
		default:
			RespondInternal(ctx, "Could not delete category")
		}
		return
	}

	h.invalidateLists()

	ctx.Status(http.StatusNoContent)
}

func (h *CategoriesHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("catId")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	c, err := h.repo.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, category.ErrNotFound) {
			RespondNotFound(ctx, "Category with id="+id+" was not found")
			return
		}
		RespondInternal(ctx, "Could not fetch category")
		return
	}

	ctx.JSON(http.StatusOK, c)
}

func (h *CategoriesHandler) List(ctx *gin.Context) {
	from, size, err := utils.ParseFromSize(ctx.Query("from"), ctx.Query("size"))
	if err != nil {
		RespondBadRequest(ctx, err.Error())
		return
	}

	key := utils.BuildListCacheKey("categories:list", from, size)

	if h.listCache != nil {
		if cached, ok := h.listCache.Get(key); ok {
			if categories, ok := cached.([]category.Category); ok {
				RespondJSONWithETag(ctx, http.StatusOK, categories)
				return
			}
		}
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	categories, err := h.repo.List(cctx, from, size)
	if err != nil {
		RespondInternal(ctx, "Could not list categories")
		return
	}

	if h.listCache != nil {
		h.listCache.Set(key, categories)
	}

	RespondJSONWithETag(ctx, http.StatusOK, categories)
}

func (h *CategoriesHandler) invalidateLists() {
	if h.listCache != nil {
		h.listCache.Clear()
	}
}
