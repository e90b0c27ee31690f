package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const errorTimeLayout = "2006-01-02 15:04:05"

// APIError is the error body every endpoint returns.
type APIError struct {
	Status    string `json:"status"`
	Reason    string `json:"reason"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

func RespondError(ctx *gin.Context, status int, statusName, reason, message string) {
	ctx.JSON(status, APIError{
		Status:    statusName,
		Reason:    reason,
		Message:   message,
		Timestamp: time.Now().Format(errorTimeLayout),
	})
}

func RespondBadRequest(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusBadRequest, "BAD_REQUEST",
		"Incorrectly made request.", message)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, "NOT_FOUND",
		"The required object was not found.", message)
}

func RespondConflict(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusConflict, "CONFLICT",
		"For the requested operation the conditions are not met.", message)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR",
		"Unexpected error.", message)
}
