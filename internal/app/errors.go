package app

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"timeslot-service/internal/booking"
	"timeslot-service/internal/catalog"
	"timeslot-service/internal/store"
	"timeslot-service/internal/timezone"
)

var (
	errAdminOnly       = errors.New("admin access required")
	errSlotNotVisible  = errors.New("slot not found")
	errCalendarMissing = errors.New("calendar sync not configured")
)

// inputError marks a problem with the request itself.
type inputError struct {
	msg string
	err error
}

func (e *inputError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *inputError) Unwrap() error { return e.err }

func badInput(msg string, err error) error {
	return &inputError{msg: msg, err: err}
}

// writeError maps service errors onto HTTP responses.
func (a *App) writeError(c *gin.Context, err error) {
	if rej, ok := booking.AsRejection(err); ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": rej.Message(), "reason": rej.Reason})
		return
	}
	var in *inputError
	if errors.As(err, &in) {
		c.JSON(http.StatusBadRequest, gin.H{"error": in.Error()})
		return
	}
	var refresh *catalog.RefreshError
	if errors.As(err, &refresh) {
		c.JSON(http.StatusBadGateway, gin.H{"error": refresh.Error()})
		return
	}

	switch {
	case errors.Is(err, errAdminOnly):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown client type"})
	case errors.Is(err, errSlotNotVisible), errors.Is(err, store.ErrSlotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "slot not found"})
	case errors.Is(err, catalog.ErrNotOffered):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "reason": "meeting_type_not_offered"})
	case errors.Is(err, catalog.ErrDurationUnresolved):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "reason": string(booking.ReasonDurationUnresolved)})
	case errors.Is(err, store.ErrSlotTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "slot already booked at that time"})
	case errors.Is(err, errCalendarMissing):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		// Includes timezone.ErrInvalidInstant from stored slots.
		a.Logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Bool("invalid_instant", errors.Is(err, timezone.ErrInvalidInstant)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
