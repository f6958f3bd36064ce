package httpapi

import (
	"net/http"

	"github.com/MarkoPoloResearchLab/loppet/pkg/loppet"
	"github.com/gin-gonic/gin"
)

func (server *Server) handleListRaces(ctx *gin.Context) {
	races, err := server.races.List(ctx.Request.Context())
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"races": toRacePayloads(races)})
}

func (server *Server) handleUpcomingRaces(ctx *gin.Context) {
	races, err := server.races.Upcoming(ctx.Request.Context())
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"races": toRacePayloads(races)})
}

func (server *Server) handleGetRace(ctx *gin.Context) {
	raceID, err := loppet.NewRaceID(ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	race, err := server.races.Get(ctx.Request.Context(), raceID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, toRacePayload(race))
}
