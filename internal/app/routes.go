package app

import (
	"github.com/gin-gonic/gin"
)

type RouterOptions struct {
	JWTSecret         string
	AdminTokens       []string
	MaxRequestsPerMin int
}

// Routes registers every endpoint on router.
func (a *App) Routes(router *gin.Engine, opts RouterOptions) {
	router.GET("/healthz", a.HealthHandler)

	// OAuth2 callback (Google redirects here without our bearer token)
	router.GET("/oauth2callback", a.GoogleOAuth2CallbackHandler)

	api := router.Group("/api")
	api.Use(AdminGate(opts.JWTSecret, opts.AdminTokens))
	{
		slots := api.Group("/slots")
		{
			slots.GET("", a.ListSlotsHandler)
			slots.GET("/:id/meeting-types", a.SlotMeetingTypesHandler)
			slots.GET("/:id/segments", a.SlotSegmentsHandler)
		}
		api.POST("/bookings", RateLimit(opts.MaxRequestsPerMin, a.Logger), a.CreateBookingHandler)
		api.GET("/client-types/:token", a.ClientTypeHandler)

		admin := api.Group("/admin", RequireAdmin())
		{
			admin.POST("/rules/refresh", a.RefreshRulesHandler)
			admin.GET("/rules", a.ListRulesHandler)
			admin.POST("/sync", a.SyncSlotsHandler)
			admin.GET("/bookings", a.ListBookingsHandler)
		}

		// Google Calendar integration routes
		cal := api.Group("/calendar", RequireAdmin())
		{
			cal.GET("/auth", a.GoogleAuthHandler)
		}
	}
}
