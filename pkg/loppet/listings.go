package loppet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	maxListingImages      = 5
	maxListingTitleLength = 100
	maxDescriptionLength  = 2000
	maxLocationLength     = 120
	defaultSearchLimit    = 20
	maxSearchLimit        = 50

	operationCreateListing  = "create_listing"
	operationGetListing     = "get_listing"
	operationUpdateListing  = "update_listing"
	operationDeleteListing  = "delete_listing"
	operationToggleFavorite = "toggle_favorite"

	subjectListing  = "listing"
	subjectFavorite = "favorite"
)

// FavoriteState reports the outcome of a favorite toggle.
type FavoriteState string

const (
	FavoriteStateFavorited   FavoriteState = "favorited"
	FavoriteStateUnfavorited FavoriteState = "unfavorited"
)

// ListingDetail is a listing with its seller summary and the caller's
// favorite flag embedded.
type ListingDetail struct {
	Listing
	Seller    AccountSummary
	Favorited bool
}

// SearchResult is one page of matching ACTIVE listings. Total and TotalPages
// are computed before any favorite-first reordering of the page.
type SearchResult struct {
	Items      []ListingDetail
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// SearchRequest carries raw, un-normalized search parameters as they arrive
// from the transport layer. Zero values mean "not set".
type SearchRequest struct {
	Text        string
	Category    string
	Condition   string
	Location    string
	MinPriceOre *int64
	MaxPriceOre *int64
	Page        int
	Limit       int
	SortBy      string
	SortOrder   string
}

// ListingService contains the listing and favorite domain logic over a Store.
type ListingService struct {
	store   Store
	nowFn   func() time.Time
	logging operationLogging
}

// NewListingService wires a ListingService.
func NewListingService(store Store, now func() time.Time, options ...ServiceOption) (*ListingService, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &ListingService{store: store, nowFn: now}
	service.logging.applyOptions(options)
	return service, nil
}

// Create persists a new ACTIVE listing owned by the actor.
func (service *ListingService) Create(ctx context.Context, input NewListing) (Listing, error) {
	if err := validateListingContent(input.Title, input.Description, input.Location, input.ImageURLs); err != nil {
		return Listing{}, err
	}
	listing, operationError := service.store.CreateListing(ctx, input)
	service.logging.logOperation(ctx, OperationLog{
		Operation: operationCreateListing,
		ActorID:   input.SellerID,
		Subject:   subjectListing,
		SubjectID: listing.ID.String(),
		Error:     operationError,
	})
	if operationError != nil {
		return Listing{}, operationError
	}
	return listing, nil
}

// Get fetches a listing by id, increments its view counter by exactly one,
// and annotates it with the seller summary and the caller's favorite flag.
func (service *ListingService) Get(ctx context.Context, actor Actor, listingID ListingID) (ListingDetail, error) {
	listing, err := service.store.GetListing(ctx, listingID)
	if err != nil {
		return ListingDetail{}, err
	}
	if err := service.store.IncrementViews(ctx, listingID); err != nil {
		return ListingDetail{}, err
	}
	listing.Views++
	seller, err := service.store.GetAccount(ctx, listing.SellerID)
	if err != nil {
		return ListingDetail{}, err
	}
	detail := ListingDetail{Listing: listing, Seller: seller.Summary()}
	if actorID, present := actor.ID(); present {
		favorited, err := service.store.IsFavorite(ctx, actorID, listingID)
		if err != nil {
			return ListingDetail{}, err
		}
		detail.Favorited = favorited
	}
	return detail, nil
}

// NormalizeSearch validates raw search parameters into a SearchQuery.
func NormalizeSearch(request SearchRequest) (SearchQuery, error) {
	query := SearchQuery{
		Text:        strings.TrimSpace(request.Text),
		Location:    strings.TrimSpace(request.Location),
		MinPriceOre: request.MinPriceOre,
		MaxPriceOre: request.MaxPriceOre,
		Page:        request.Page,
		Limit:       request.Limit,
		Descending:  true,
	}
	if request.Category != "" {
		category, err := ParseCategory(request.Category)
		if err != nil {
			return SearchQuery{}, err
		}
		query.Category = &category
	}
	if request.Condition != "" {
		condition, err := ParseCondition(request.Condition)
		if err != nil {
			return SearchQuery{}, err
		}
		query.Condition = &condition
	}
	if query.Page == 0 {
		query.Page = 1
	}
	if query.Page < 1 {
		return SearchQuery{}, fmt.Errorf("%w: page must be at least 1", ErrInvalidPageRequest)
	}
	if query.Limit == 0 {
		query.Limit = defaultSearchLimit
	}
	if query.Limit < 1 || query.Limit > maxSearchLimit {
		return SearchQuery{}, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidPageRequest, maxSearchLimit)
	}
	if query.MinPriceOre != nil && *query.MinPriceOre < 0 {
		return SearchQuery{}, fmt.Errorf("%w: negative price bound", ErrInvalidPrice)
	}
	if query.MinPriceOre != nil && query.MaxPriceOre != nil && *query.MinPriceOre > *query.MaxPriceOre {
		return SearchQuery{}, fmt.Errorf("%w: minPrice above maxPrice", ErrInvalidPrice)
	}
	sortKey, err := ParseSortKey(request.SortBy)
	if err != nil {
		return SearchQuery{}, err
	}
	query.SortBy = sortKey
	switch strings.ToLower(request.SortOrder) {
	case "", "desc":
		query.Descending = true
	case "asc":
		query.Descending = false
	default:
		return SearchQuery{}, fmt.Errorf("%w: unknown sort order %q", ErrInvalidPageRequest, request.SortOrder)
	}
	return query, nil
}

// Search returns one page of ACTIVE listings matching the query. When the
// caller is signed in, their favorited listings are moved to the front of the
// page (stable otherwise); totals are unaffected by the reorder.
func (service *ListingService) Search(ctx context.Context, actor Actor, query SearchQuery) (SearchResult, error) {
	listings, total, err := service.store.SearchListings(ctx, query)
	if err != nil {
		return SearchResult{}, err
	}
	favorites := map[ListingID]bool{}
	if actorID, present := actor.ID(); present && len(listings) > 0 {
		listingIDs := make([]ListingID, 0, len(listings))
		for _, listing := range listings {
			listingIDs = append(listingIDs, listing.ID)
		}
		favorites, err = service.store.FavoriteSet(ctx, actorID, listingIDs)
		if err != nil {
			return SearchResult{}, err
		}
	}
	items, err := service.annotate(ctx, listings, favorites)
	if err != nil {
		return SearchResult{}, err
	}
	items = favoritesFirst(items)
	totalPages := int((total + int64(query.Limit) - 1) / int64(query.Limit))
	return SearchResult{
		Items:      items,
		Total:      total,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalPages: totalPages,
	}, nil
}

// Update applies a partial update to a listing owned by the actor.
func (service *ListingService) Update(ctx context.Context, actorID AccountID, listingID ListingID, patch ListingPatch) (Listing, error) {
	updated, operationError := service.updateOwned(ctx, actorID, listingID, patch)
	service.logging.logOperation(ctx, OperationLog{
		Operation: operationUpdateListing,
		ActorID:   actorID,
		Subject:   subjectListing,
		SubjectID: listingID.String(),
		Error:     operationError,
	})
	return updated, operationError
}

func (service *ListingService) updateOwned(ctx context.Context, actorID AccountID, listingID ListingID, patch ListingPatch) (Listing, error) {
	if err := validateListingPatch(patch); err != nil {
		return Listing{}, err
	}
	listing, err := service.store.GetListing(ctx, listingID)
	if err != nil {
		return Listing{}, err
	}
	if listing.SellerID != actorID {
		return Listing{}, ErrNotOwner
	}
	if patch.IsEmpty() {
		return listing, nil
	}
	return service.store.UpdateListing(ctx, listingID, patch)
}

// Delete removes a listing owned by the actor together with its favorites.
func (service *ListingService) Delete(ctx context.Context, actorID AccountID, listingID ListingID) error {
	operationError := service.deleteOwned(ctx, actorID, listingID)
	service.logging.logOperation(ctx, OperationLog{
		Operation: operationDeleteListing,
		ActorID:   actorID,
		Subject:   subjectListing,
		SubjectID: listingID.String(),
		Error:     operationError,
	})
	return operationError
}

func (service *ListingService) deleteOwned(ctx context.Context, actorID AccountID, listingID ListingID) error {
	listing, err := service.store.GetListing(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.SellerID != actorID {
		return ErrNotOwner
	}
	return service.store.DeleteListing(ctx, listingID)
}

// ToggleFavorite flips the (actor, listing) favorite relation. The toggle is
// an involution and a concurrent duplicate create resolves to the favorited
// state instead of a second row.
func (service *ListingService) ToggleFavorite(ctx context.Context, actorID AccountID, listingID ListingID) (FavoriteState, error) {
	state, operationError := service.toggleFavorite(ctx, actorID, listingID)
	service.logging.logOperation(ctx, OperationLog{
		Operation: operationToggleFavorite,
		ActorID:   actorID,
		Subject:   subjectFavorite,
		SubjectID: listingID.String(),
		Status:    string(state),
		Error:     operationError,
	})
	return state, operationError
}

func (service *ListingService) toggleFavorite(ctx context.Context, actorID AccountID, listingID ListingID) (FavoriteState, error) {
	if _, err := service.store.GetListing(ctx, listingID); err != nil {
		return "", err
	}
	deleted, err := service.store.DeleteFavorite(ctx, actorID, listingID)
	if err != nil {
		return "", err
	}
	if deleted {
		return FavoriteStateUnfavorited, nil
	}
	if err := service.store.CreateFavorite(ctx, actorID, listingID); err != nil {
		if errors.Is(err, ErrFavoriteExists) {
			return FavoriteStateFavorited, nil
		}
		return "", err
	}
	return FavoriteStateFavorited, nil
}

// ListFavorites returns the actor's favorited listings, newest favorite first.
func (service *ListingService) ListFavorites(ctx context.Context, actorID AccountID) ([]ListingDetail, error) {
	listings, err := service.store.ListFavoriteListings(ctx, actorID)
	if err != nil {
		return nil, err
	}
	favorites := make(map[ListingID]bool, len(listings))
	for _, listing := range listings {
		favorites[listing.ID] = true
	}
	return service.annotate(ctx, listings, favorites)
}

// ListBySeller returns a seller's listings; callers other than the seller
// only see ACTIVE ones.
func (service *ListingService) ListBySeller(ctx context.Context, actor Actor, sellerID AccountID) ([]Listing, error) {
	onlyActive := true
	if actorID, present := actor.ID(); present && actorID == sellerID {
		onlyActive = false
	}
	return service.store.ListListingsBySeller(ctx, sellerID, onlyActive)
}

func (service *ListingService) annotate(ctx context.Context, listings []Listing, favorites map[ListingID]bool) ([]ListingDetail, error) {
	sellers := map[AccountID]AccountSummary{}
	items := make([]ListingDetail, 0, len(listings))
	for _, listing := range listings {
		summary, cached := sellers[listing.SellerID]
		if !cached {
			seller, err := service.store.GetAccount(ctx, listing.SellerID)
			if err != nil {
				return nil, err
			}
			summary = seller.Summary()
			sellers[listing.SellerID] = summary
		}
		items = append(items, ListingDetail{
			Listing:   listing,
			Seller:    summary,
			Favorited: favorites[listing.ID],
		})
	}
	return items, nil
}

// favoritesFirst stably partitions a page so favorited items lead.
func favoritesFirst(items []ListingDetail) []ListingDetail {
	if len(items) < 2 {
		return items
	}
	ordered := make([]ListingDetail, 0, len(items))
	for _, item := range items {
		if item.Favorited {
			ordered = append(ordered, item)
		}
	}
	for _, item := range items {
		if !item.Favorited {
			ordered = append(ordered, item)
		}
	}
	return ordered
}

func validateListingContent(title string, description string, location string, imageURLs []string) error {
	if strings.TrimSpace(title) == "" || len([]rune(title)) > maxListingTitleLength {
		return fmt.Errorf("%w: title must be 1-%d characters", ErrInvalidListingInput, maxListingTitleLength)
	}
	if strings.TrimSpace(description) == "" || len([]rune(description)) > maxDescriptionLength {
		return fmt.Errorf("%w: description must be 1-%d characters", ErrInvalidListingInput, maxDescriptionLength)
	}
	if len([]rune(location)) > maxLocationLength {
		return fmt.Errorf("%w: location longer than %d characters", ErrInvalidListingInput, maxLocationLength)
	}
	if len(imageURLs) > maxListingImages {
		return fmt.Errorf("%w: at most %d images", ErrInvalidListingInput, maxListingImages)
	}
	return nil
}

func validateListingPatch(patch ListingPatch) error {
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" || len([]rune(*patch.Title)) > maxListingTitleLength {
			return fmt.Errorf("%w: title must be 1-%d characters", ErrInvalidListingInput, maxListingTitleLength)
		}
	}
	if patch.Description != nil {
		if strings.TrimSpace(*patch.Description) == "" || len([]rune(*patch.Description)) > maxDescriptionLength {
			return fmt.Errorf("%w: description must be 1-%d characters", ErrInvalidListingInput, maxDescriptionLength)
		}
	}
	if patch.Location != nil && len([]rune(*patch.Location)) > maxLocationLength {
		return fmt.Errorf("%w: location longer than %d characters", ErrInvalidListingInput, maxLocationLength)
	}
	if patch.ImageURLs != nil && len(*patch.ImageURLs) > maxListingImages {
		return fmt.Errorf("%w: at most %d images", ErrInvalidListingInput, maxListingImages)
	}
	return nil
}
