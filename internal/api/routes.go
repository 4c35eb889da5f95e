// internal/api/routes.go
// Central route registration for all API endpoints

package api

import (
	"compcore/internal/config"
	"compcore/internal/services"

	"github.com/gin-gonic/gin"
)

// Broadcaster pushes state snapshots to live subscribers after a reload.
type Broadcaster interface {
	BroadcastStateUpdate(state interface{})
}

// RegisterCompetitionRoutes registers the read-only competition queries
func RegisterCompetitionRoutes(router *gin.RouterGroup, services *services.Container, cfg *config.Config) {
	router.GET("/state", HandleGetState(services))
	router.GET("/current", HandleGetCurrentMatches(services))
	router.GET("/next", HandleGetNextSlot(services))

	router.GET("/matches", HandleListMatches(services))
	router.GET("/matches/:num", HandleGetMatch(services))

	router.GET("/standings", HandleGetStandings(services, cfg))
	router.GET("/knockout", HandleGetKnockout(services))

	router.GET("/teams", HandleListTeams(services))
	router.GET("/teams/:id", HandleGetTeam(services))
	router.GET("/arenas", HandleListArenas(services))
	router.GET("/awards", HandleGetAwards(services))
}

// RegisterAdminRoutes registers the operational endpoints
func RegisterAdminRoutes(router *gin.RouterGroup, services *services.Container, broadcaster Broadcaster) {
	router.POST("/reload", HandleReload(services, broadcaster))
}
