// internal/api/competition_handlers.go
// Read-only handlers over the evaluated competition. Every query is a
// pure function of the loaded state and an explicit instant; `?at=` lets
// callers ask about any point in time.

package api

import (
	"net/http"
	"strconv"
	"time"

	"compcore/internal/config"
	"compcore/internal/models"
	"compcore/internal/services"

	"github.com/gin-gonic/gin"
)

// queryTime resolves the instant a query asks about: the `at` parameter
// when present, the wall clock otherwise.
func queryTime(c *gin.Context) (time.Time, bool) {
	raw := c.Query("at")
	if raw == "" {
		return time.Now(), true
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'at' timestamp, want RFC 3339"})
		return time.Time{}, false
	}
	return at, true
}

// HandleGetState returns the full consistent view at an instant
func HandleGetState(svc *services.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		now, ok := queryTime(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, svc.Current().StateAt(now))
	}
}

// HandleGetCurrentMatches returns the matches in progress at an instant
func HandleGetCurrentMatches(svc *services.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		now, ok := queryTime(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"matches": svc.Current().MatchesAt(now)})
	}
}

// HandleGetNextSlot returns the next match slot after an instant
func HandleGetNextSlot(svc *services.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		now, ok := queryTime(c)
		if !ok {
			return
		}
		slot := svc.Current().NextMatchSlot(now)
		if slot == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no further matches scheduled"})
			return
		}
		c.JSON(http.StatusOK, slot)
	}
}

// HandleListMatches returns the full timetable
func HandleListMatches(svc *services.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"matches": svc.Current().Schedule()})
	}
}

// HandleGetMatch returns every arena's match for one number
func HandleGetMatch(svc *services.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		num, err := strconv.Atoi(c.Param("num"))
		if err != nil || num < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match number"})
			return
		}

		matches := svc.Current().MatchesByNumber(models.MatchNumber(num))
		if len(matches) == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"matches": matches})
	}
}

// HandleGetStandings returns the league standings
func HandleGetStandings(svc *services.Container, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Standings only change on reload; cache them briefly.
		cacheKey := "compcore:cache:standings"
		var cached []models.Standing
		if err := svc.Cache.Get(cacheKey, &cached); err == nil {
			c.JSON(http.StatusOK, gin.H{"standings": cached})
			return
		}

		standings := svc.Current().Standings
		if err := svc.Cache.Set(cacheKey, standings, cfg.Redis.CacheTTL); err != nil {
			_ = c.Error(err)
		}
		c.JSON(http.StatusOK, gin.H{"standings": standings})
	}
}

// HandleGetKnockout returns the knockout bracket and tiebreakers
func HandleGetKnockout(svc *services.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		comp := svc.Current()
		c.JSON(http.StatusOK, gin.H{
			"rounds":          comp.KnockoutRounds,
			"tiebreakers":     comp.Tiebreakers,
			"pending_ties":    comp.PendingTies,
			"knockout_winner": comp.KnockoutWinner,
		})
	}
}

// HandleListTeams returns every declared team
func HandleListTeams(svc *services.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"teams": svc.Current().Teams})
	}
}

// HandleGetTeam returns one team with its league position
func HandleGetTeam(svc *services.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		comp := svc.Current()
		id := models.TeamID(c.Param("id"))

		team, ok := comp.Compstate.Team(id)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "team not found"})
			return
		}

		var matches []*models.Match
		for _, match := range comp.Schedule() {
			if match.HasTeam(id) {
				matches = append(matches, match)
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"team":     team,
			"position": comp.PositionOf(id),
			"stats":    comp.Stats[id],
			"matches":  matches,
		})
	}
}

// HandleListArenas returns every declared arena
func HandleListArenas(svc *services.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"arenas": svc.Current().Arenas})
	}
}

// HandleGetAwards returns the configured awards plus the computed winners
func HandleGetAwards(svc *services.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		comp := svc.Current()
		c.JSON(http.StatusOK, gin.H{
			"awards":          comp.Awards,
			"league_winner":   comp.LeagueWinner,
			"knockout_winner": comp.KnockoutWinner,
		})
	}
}

// HandleReload re-evaluates the compstate directory and notifies live
// subscribers.
func HandleReload(svc *services.Container, broadcaster Broadcaster) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.Reload(); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":     err.Error(),
				"exit_code": models.ExitCode(err),
			})
			return
		}

		if broadcaster != nil {
			broadcaster.BroadcastStateUpdate(svc.Current().StateAt(time.Now()))
		}
		c.JSON(http.StatusOK, gin.H{"status": "reloaded"})
	}
}
