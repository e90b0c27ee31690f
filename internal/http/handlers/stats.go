package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/afisha-dev/afisha/internal/config"
	"github.com/afisha-dev/afisha/internal/domain/stats"
	"github.com/gin-gonic/gin"
)

type HitsStore interface {
	Create(ctx context.Context, hit stats.EndpointHit) (stats.EndpointHit, error)
	Query(ctx context.Context, filter stats.QueryFilter) ([]stats.ViewStats, error)
}

type StatsHandler struct {
	repo HitsStore
}

func NewStatsHandler(repo HitsStore) *StatsHandler {
	return &StatsHandler{repo: repo}
}

func (h *StatsHandler) CreateHit(ctx *gin.Context) {
	var req stats.CreateHitRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	hit, err := h.repo.Create(cctx, stats.NewFromCreateRequest(req))
	if err != nil {
		RespondInternal(ctx, "Could not record hit")
		return
	}

	ctx.JSON(http.StatusCreated, hit)
}

// GetStats aggregates hits over [start, end] inclusive. start == end is a
// valid single-instant window.
func (h *StatsHandler) GetStats(ctx *gin.Context) {
	startRaw := ctx.Query("start")
	endRaw := ctx.Query("end")

	if startRaw == "" || endRaw == "" {
		RespondBadRequest(ctx, "start and end are required")
		return
	}

	start, err := time.Parse(stats.DateTimeLayout, startRaw)
	if err != nil {
		RespondBadRequest(ctx, "start must use format "+stats.DateTimeLayout)
		return
	}

	end, err := time.Parse(stats.DateTimeLayout, endRaw)
	if err != nil {
		RespondBadRequest(ctx, "end must use format "+stats.DateTimeLayout)
		return
	}

	if end.Before(start) {
		RespondBadRequest(ctx, stats.ErrInvalidRange.Error())
		return
	}

	unique := false
	if raw := ctx.Query("unique"); raw == "true" {
		unique = true
	}

	filter := stats.QueryFilter{
		Start:  start,
		End:    end,
		URIs:   ctx.QueryArray("uris"),
		Unique: unique,
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	views, err := h.repo.Query(cctx, filter)
	if err != nil {
		RespondInternal(ctx, "Could not query stats")
		return
	}

	ctx.JSON(http.StatusOK, views)
}
