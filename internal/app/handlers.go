package app

import (
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"timeslot-service/internal/availability"
	"timeslot-service/internal/booking"
	"timeslot-service/internal/segment"
	"timeslot-service/internal/slot"
)

// GET /api/slots?view=week|month&date=YYYY-MM-DD&client_type=T
func (a *App) ListSlotsHandler(c *gin.Context) {
	view, err := availability.ParseView(c.Query("view"))
	if err != nil {
		a.writeError(c, badInput("view must be week or month", err))
		return
	}
	anchor, err := a.parseAnchor(c.Query("date"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	active, err := activeClientTypes(c, a.Catalog.View())
	if err != nil {
		a.writeError(c, err)
		return
	}

	buckets, from, to, err := a.slotsForView(c.Request.Context(), view, anchor, active)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, SlotsResponse{
		View:     string(view),
		From:     dayKey(a.Norm, from),
		To:       dayKey(a.Norm, to.AddDate(0, 0, -1)),
		Timezone: a.Norm.Location().String(),
		Days:     a.daysInRange(buckets, from, to),
		Count:    len(buckets.Slots()),
	})
}

// GET /api/slots/:id/meeting-types?client_type=T
func (a *App) SlotMeetingTypesHandler(c *gin.Context) {
	view := a.Catalog.View()
	token, active, err := resolveToken(c, view, c.Query("client_type"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	w, err := a.visibleSlot(c.Request.Context(), c.Param("id"), active)
	if err != nil {
		a.writeError(c, err)
		return
	}
	names, err := view.AllowedMeetingTypes(token, w.MeetingTypeList())
	if err != nil {
		a.writeError(c, err)
		return
	}

	out := make([]MeetingType, 0, len(names))
	for _, name := range names {
		mt := MeetingType{Name: name}
		// Listed even without a duration; booking it is rejected later.
		if d, err := view.DurationFor(token, name); err == nil {
			mt.Minutes, mt.Fallback = d.Minutes, d.Fallback
		}
		out = append(out, mt)
	}
	c.JSON(http.StatusOK, gin.H{"slot_id": w.ID, "meeting_types": out})
}

// GET /api/slots/:id/segments?meeting_type=M&client_type=T
func (a *App) SlotSegmentsHandler(c *gin.Context) {
	meetingType := c.Query("meeting_type")
	if meetingType == "" {
		a.writeError(c, badInput("meeting_type required", nil))
		return
	}
	view := a.Catalog.View()
	token, active, err := resolveToken(c, view, c.Query("client_type"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	w, err := a.visibleSlot(c.Request.Context(), c.Param("id"), active)
	if err != nil {
		a.writeError(c, err)
		return
	}
	// Same gate as admission, so no segments are offered for a type that cannot be booked.
	allowed, err := view.AllowedMeetingTypes(token, w.MeetingTypeList())
	if err != nil {
		a.writeError(c, err)
		return
	}
	if !slices.Contains(allowed, meetingType) {
		a.writeError(c, &booking.Rejection{Reason: booking.ReasonMeetingTypeNotAllowed, MeetingType: meetingType})
		return
	}
	plan, err := segment.NewResolver(view).Resolve(w, meetingType, token)
	if err != nil {
		a.writeError(c, err)
		return
	}

	resp := SegmentsResponse{
		SlotID:          w.ID,
		MeetingType:     meetingType,
		DurationMinutes: plan.Duration.Minutes,
		Atomic:          plan.Atomic,
		Starts:          make([]time.Time, 0, len(plan.Starts)),
	}
	for _, s := range plan.Starts {
		local, _ := a.Norm.In(s)
		resp.Starts = append(resp.Starts, local)
	}
	// A slot shorter than one meeting has no starts and no default.
	if len(resp.Starts) > 0 {
		def := resp.Starts[0]
		resp.Default = &def
	}
	c.JSON(http.StatusOK, resp)
}

// POST /api/bookings
func (a *App) CreateBookingHandler(c *gin.Context) {
	var req createBookingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		a.writeError(c, badInput("invalid booking request", err))
		return
	}
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		a.writeError(c, badInput("start must be RFC3339", err))
		return
	}

	ctx := c.Request.Context()
	token, active, err := resolveToken(c, a.Catalog.View(), req.ClientType)
	if err != nil {
		a.writeError(c, err)
		return
	}
	if token == slot.Wildcard {
		a.writeError(c, badInput("bookings need a concrete client_type", nil))
		return
	}
	w, err := a.visibleSlot(ctx, req.SlotID, active)
	if err != nil {
		a.writeError(c, err)
		return
	}

	b, err := a.Checker.Admit(w, req.MeetingType, start, req.ClientType, req.Contact.toContact())
	if err != nil {
		a.writeError(c, err)
		return
	}
	b, err = a.Store.CreateBooking(ctx, b)
	if err != nil {
		a.writeError(c, err)
		return
	}
	log := a.Logger.With(zap.String("booking_id", b.ID), zap.String("slot_id", b.SlotID))

	if a.Calendar != nil {
		eventID, err := a.Calendar.InsertBooking(ctx, b, w)
		if err != nil {
			log.Warn("calendar write-back failed; booking kept", zap.Error(err))
		} else {
			b.CalendarEventID = eventID
			if err := a.Store.SetCalendarEvent(ctx, b.ID, eventID); err != nil {
				log.Warn("failed to record calendar event id", zap.Error(err))
			}
		}
	}
	if err := a.Events.BookingCreated(ctx, b); err != nil {
		log.Warn("booking event not published", zap.Error(err))
	}

	log.Info("booking created",
		zap.String("client_type", b.ClientType),
		zap.String("meeting_type", b.MeetingType),
		zap.Time("start", b.Start))
	c.JSON(http.StatusCreated, b)
}

// GET /api/client-types/:token
func (a *App) ClientTypeHandler(c *gin.Context) {
	rule, err := a.Catalog.Resolve(c.Param("token"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ClientTypeResponse{
		ID:           rule.ID,
		Type:         rule.Type,
		DisplayName:  rule.DisplayName,
		MeetingTypes: rule.Offered(),
	})
}

// POST /api/admin/rules/refresh
func (a *App) RefreshRulesHandler(c *gin.Context) {
	if err := a.Catalog.Refresh(c.Request.Context()); err != nil {
		a.writeError(c, err)
		return
	}
	snap := a.Catalog.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"rules":         len(snap.Rules()),
		"meeting_types": len(snap.MeetingTypes()),
		"loaded_at":     snap.LoadedAt(),
	})
}

// GET /api/admin/rules
func (a *App) ListRulesHandler(c *gin.Context) {
	snap := a.Catalog.Snapshot()
	c.JSON(http.StatusOK, RulesResponse{
		Rules:        snap.Rules(),
		MeetingTypes: snap.MeetingTypes(),
		LoadedAt:     snap.LoadedAt(),
	})
}

// POST /api/admin/sync?from=YYYY-MM-DD&to=YYYY-MM-DD
func (a *App) SyncSlotsHandler(c *gin.Context) {
	if a.Calendar == nil {
		a.writeError(c, errCalendarMissing)
		return
	}
	from, to, err := a.parseRange(c.Query("from"), c.Query("to"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	ctx := c.Request.Context()
	fetched, err := a.Calendar.FetchSlots(ctx, from, to)
	if err != nil {
		a.writeError(c, err)
		return
	}
	stored, err := a.Store.UpsertSlots(ctx, fetched)
	if err != nil {
		a.writeError(c, err)
		return
	}
	a.Logger.Info("calendar synced",
		zap.Time("from", from), zap.Time("to", to),
		zap.Int("fetched", len(fetched)), zap.Int("stored", stored))
	c.JSON(http.StatusOK, gin.H{"fetched": len(fetched), "stored": stored})
}

// GET /api/admin/bookings?from=YYYY-MM-DD&to=YYYY-MM-DD&limit=N
func (a *App) ListBookingsHandler(c *gin.Context) {
	from, to, err := a.parseRange(c.Query("from"), c.Query("to"))
	if err != nil {
		a.writeError(c, err)
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			a.writeError(c, badInput("limit must be a non-negative number", err))
			return
		}
	}
	bookings, err := a.Store.ListBookings(c.Request.Context(), from, to, limit)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// GET /healthz
func (a *App) HealthHandler(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok", "rules_loaded_at": a.Catalog.Snapshot().LoadedAt()}
	if p, ok := a.Store.(pinger); ok {
		if err := p.Ping(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["database"] = err.Error()
		}
	}
	c.JSON(status, body)
}
