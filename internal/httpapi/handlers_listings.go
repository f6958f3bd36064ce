package httpapi

import (
	"net/http"
	"strconv"

	"github.com/MarkoPoloResearchLab/loppet/pkg/loppet"
	"github.com/gin-gonic/gin"
)

type createListingRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	PriceOre    int64    `json:"price_ore"`
	Category    string   `json:"category"`
	Condition   string   `json:"condition"`
	Location    string   `json:"location"`
	Images      []string `json:"images"`
}

type updateListingRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	PriceOre    *int64    `json:"price_ore"`
	Category    *string   `json:"category"`
	Condition   *string   `json:"condition"`
	Location    *string   `json:"location"`
	Images      *[]string `json:"images"`
	Status      *string   `json:"status"`
}

func (server *Server) handleSearchListings(ctx *gin.Context) {
	request := loppet.SearchRequest{
		Text:      ctx.Query("search"),
		Category:  ctx.Query("category"),
		Condition: ctx.Query("condition"),
		Location:  ctx.Query("location"),
		SortBy:    ctx.Query("sortBy"),
		SortOrder: ctx.Query("sortOrder"),
	}
	var err error
	if request.Page, err = intQuery(ctx, "page"); err != nil {
		ctx.JSON(http.StatusBadRequest, errorBody(codeValidation, "page must be an integer"))
		return
	}
	if request.Limit, err = intQuery(ctx, "limit"); err != nil {
		ctx.JSON(http.StatusBadRequest, errorBody(codeValidation, "limit must be an integer"))
		return
	}
	if request.MinPriceOre, err = int64Query(ctx, "minPrice"); err != nil {
		ctx.JSON(http.StatusBadRequest, errorBody(codeValidation, "minPrice must be an integer"))
		return
	}
	if request.MaxPriceOre, err = int64Query(ctx, "maxPrice"); err != nil {
		ctx.JSON(http.StatusBadRequest, errorBody(codeValidation, "maxPrice must be an integer"))
		return
	}

	query, err := loppet.NormalizeSearch(request)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	result, err := server.listings.Search(ctx.Request.Context(), server.actor(ctx), query)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, searchResultPayload{
		Items:      toListingDetailPayloads(result.Items),
		Total:      result.Total,
		Page:       result.Page,
		Limit:      result.Limit,
		TotalPages: result.TotalPages,
	})
}

func (server *Server) handleGetListing(ctx *gin.Context) {
	listingID, err := loppet.NewListingID(ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	detail, err := server.listings.Get(ctx.Request.Context(), server.actor(ctx), listingID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, toListingDetailPayload(detail))
}

func (server *Server) handleCreateListing(ctx *gin.Context) {
	actorID, _ := server.actorID(ctx)
	var request createListingRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorBody(codeValidation, "expected JSON body"))
		return
	}
	price, err := loppet.NewPriceOre(request.PriceOre)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	category, err := loppet.ParseCategory(request.Category)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	condition, err := loppet.ParseCondition(request.Condition)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	listing, err := server.listings.Create(ctx.Request.Context(), loppet.NewListing{
		SellerID:    actorID,
		Title:       request.Title,
		Description: request.Description,
		PriceOre:    price,
		Category:    category,
		Condition:   condition,
		Location:    request.Location,
		ImageURLs:   request.Images,
	})
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, toListingPayload(listing))
}

func (server *Server) handleUpdateListing(ctx *gin.Context) {
	actorID, _ := server.actorID(ctx)
	listingID, err := loppet.NewListingID(ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	var request updateListingRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorBody(codeValidation, "expected JSON body"))
		return
	}
	patch := loppet.ListingPatch{
		Title:       request.Title,
		Description: request.Description,
		Location:    request.Location,
		ImageURLs:   request.Images,
	}
	if request.PriceOre != nil {
		price, err := loppet.NewPriceOre(*request.PriceOre)
		if err != nil {
			server.respondError(ctx, err)
			return
		}
		patch.PriceOre = &price
	}
	if request.Category != nil {
		category, err := loppet.ParseCategory(*request.Category)
		if err != nil {
			server.respondError(ctx, err)
			return
		}
		patch.Category = &category
	}
	if request.Condition != nil {
		condition, err := loppet.ParseCondition(*request.Condition)
		if err != nil {
			server.respondError(ctx, err)
			return
		}
		patch.Condition = &condition
	}
	if request.Status != nil {
		status, err := loppet.ParseListingStatus(*request.Status)
		if err != nil {
			server.respondError(ctx, err)
			return
		}
		patch.Status = &status
	}
	listing, err := server.listings.Update(ctx.Request.Context(), actorID, listingID, patch)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, toListingPayload(listing))
}

func (server *Server) handleDeleteListing(ctx *gin.Context) {
	actorID, _ := server.actorID(ctx)
	listingID, err := loppet.NewListingID(ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	if err := server.listings.Delete(ctx.Request.Context(), actorID, listingID); err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (server *Server) handleToggleFavorite(ctx *gin.Context) {
	actorID, _ := server.actorID(ctx)
	listingID, err := loppet.NewListingID(ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	state, err := server.listings.ToggleFavorite(ctx.Request.Context(), actorID, listingID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"state": string(state)})
}

func intQuery(ctx *gin.Context, name string) (int, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func int64Query(ctx *gin.Context, name string) (*int64, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &value, nil
}
