package app

import (
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"timeslot-service/internal/availability"
	"timeslot-service/internal/booking"
	"timeslot-service/internal/catalog"
	"timeslot-service/internal/events"
	"timeslot-service/internal/timezone"
)

// App carries the collaborators every handler uses.
type App struct {
	Store    SlotStore
	Catalog  *catalog.Catalog
	Norm     *timezone.Normalizer
	Filter   *availability.Filter
	Bucketer *availability.Bucketer
	Checker  *booking.Checker
	Events   events.Publisher
	Logger   *zap.Logger

	// Optional. Nil disables calendar sync/write-back and the consent flow.
	Calendar Calendar
	OAuth    *oauth2.Config
}

// New fills in the derived collaborators (filter, bucketer, checker) when unset.
func New(a App) *App {
	if a.Logger == nil {
		a.Logger = zap.NewNop()
	}
	if a.Events == nil {
		a.Events = events.Nop{}
	}
	if a.Filter == nil {
		a.Filter = availability.NewFilter(a.Norm, availability.WithLogger(a.Logger))
	}
	if a.Bucketer == nil {
		a.Bucketer = availability.NewBucketer(a.Norm)
	}
	if a.Checker == nil {
		a.Checker = booking.NewChecker(a.Catalog, a.Logger)
	}
	return &a
}
