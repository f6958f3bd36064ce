package httpapi

import (
	"net/http"

	"github.com/MarkoPoloResearchLab/loppet/pkg/loppet"
	"github.com/gin-gonic/gin"
)

type googleExchangeRequest struct {
	Credential string `json:"credential"`
	Username   string `json:"username"`
}

type profileUpdateRequest struct {
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
	Phone       *string `json:"phone"`
	Location    *string `json:"location"`
	Bio         *string `json:"bio"`
}

func (server *Server) handleGoogleExchange(ctx *gin.Context) {
	var request googleExchangeRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorBody(codeValidation, "expected JSON body with credential"))
		return
	}
	claims, err := server.verifier.Verify(ctx.Request.Context(), request.Credential)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	account, err := server.accounts.ResolveIdentity(ctx.Request.Context(), claims, request.Username)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	token, err := server.sessions.Issue(account.ID, account.Email)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"token":   token,
		"account": toAccountPayload(account),
	})
}

func (server *Server) handleCurrentAccount(ctx *gin.Context) {
	actorID, _ := server.actorID(ctx)
	account, err := server.accounts.Get(ctx.Request.Context(), actorID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, toAccountPayload(account))
}

func (server *Server) handleUpdateProfile(ctx *gin.Context) {
	actorID, _ := server.actorID(ctx)
	var request profileUpdateRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorBody(codeValidation, "expected JSON body"))
		return
	}
	account, err := server.accounts.UpdateProfile(ctx.Request.Context(), actorID, loppet.ProfilePatch{
		DisplayName: request.DisplayName,
		AvatarURL:   request.AvatarURL,
		Phone:       request.Phone,
		Location:    request.Location,
		Bio:         request.Bio,
	})
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, toAccountPayload(account))
}

func (server *Server) handlePublicProfile(ctx *gin.Context) {
	accountID, err := loppet.NewAccountID(ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	profile, err := server.accounts.PublicProfile(ctx.Request.Context(), accountID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, publicProfilePayload{
		accountSummaryPayload: toAccountSummaryPayload(profile.Summary),
		Location:              profile.Location,
		Bio:                   profile.Bio,
		MemberAt:              timestamp(profile.MemberAt),
		Listings:              toListingPayloads(profile.Listings),
	})
}

func (server *Server) handleDashboard(ctx *gin.Context) {
	actorID, _ := server.actorID(ctx)
	dashboard, err := server.accounts.Dashboard(ctx.Request.Context(), actorID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dashboardPayload{
		ActiveListings: dashboard.ActiveListings,
		SoldListings:   dashboard.SoldListings,
		EarningsOre:    dashboard.EarningsOre,
		Favorites:      dashboard.Favorites,
	})
}

func (server *Server) handleListFavorites(ctx *gin.Context) {
	actorID, _ := server.actorID(ctx)
	favorites, err := server.listings.ListFavorites(ctx.Request.Context(), actorID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"items": toListingDetailPayloads(favorites)})
}
