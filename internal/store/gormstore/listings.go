package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/loppet/pkg/loppet"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func (store *Store) CreateListing(ctx context.Context, input loppet.NewListing) (loppet.Listing, error) {
	images, err := imagesJSON(input.ImageURLs)
	if err != nil {
		return loppet.Listing{}, wrapStoreError(errorSubjectListing, errorCodeInvalid, err)
	}
	now := time.Now().UTC()
	row := Listing{
		SellerID:    input.SellerID.String(),
		Title:       input.Title,
		Description: input.Description,
		PriceOre:    input.PriceOre.Int64(),
		Category:    input.Category.String(),
		Condition:   input.Condition.String(),
		Location:    input.Location,
		Images:      images,
		Status:      loppet.ListingStatusActive.String(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return loppet.Listing{}, wrapStoreError(errorSubjectListing, errorCodeCreate, err)
	}
	return mapListing(row)
}

func (store *Store) GetListing(ctx context.Context, listingID loppet.ListingID) (loppet.Listing, error) {
	var row Listing
	err := store.db.WithContext(ctx).
		Where("listing_id = ?", listingID.String()).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return loppet.Listing{}, wrapStoreError(errorSubjectListing, errorCodeGet, loppet.ErrListingNotFound)
		}
		return loppet.Listing{}, wrapStoreError(errorSubjectListing, errorCodeGet, err)
	}
	return mapListing(row)
}

// IncrementViews bumps the counter with a single atomic update.
func (store *Store) IncrementViews(ctx context.Context, listingID loppet.ListingID) error {
	result := store.db.WithContext(ctx).
		Model(&Listing{}).
		Where("listing_id = ?", listingID.String()).
		UpdateColumn("views", gorm.Expr("views + 1"))
	if result.Error != nil {
		return wrapStoreError(errorSubjectListing, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectListing, errorCodeUpdate, loppet.ErrListingNotFound)
	}
	return nil
}

func (store *Store) SearchListings(ctx context.Context, query loppet.SearchQuery) ([]loppet.Listing, int64, error) {
	scope := store.db.WithContext(ctx).
		Model(&Listing{}).
		Where("status = ?", loppet.ListingStatusActive.String())
	if query.Text != "" {
		pattern := "%" + strings.ToLower(query.Text) + "%"
		scope = scope.Where("lower(title) LIKE ? OR lower(description) LIKE ?", pattern, pattern)
	}
	if query.Category != nil {
		scope = scope.Where("category = ?", query.Category.String())
	}
	if query.Condition != nil {
		scope = scope.Where("condition = ?", query.Condition.String())
	}
	if query.Location != "" {
		scope = scope.Where("lower(location) LIKE ?", "%"+strings.ToLower(query.Location)+"%")
	}
	if query.MinPriceOre != nil {
		scope = scope.Where("price_ore >= ?", *query.MinPriceOre)
	}
	if query.MaxPriceOre != nil {
		scope = scope.Where("price_ore <= ?", *query.MaxPriceOre)
	}

	var total int64
	if err := scope.Count(&total).Error; err != nil {
		return nil, 0, wrapStoreError(errorSubjectListing, errorCodeSearch, err)
	}

	var rows []Listing
	err := scope.
		Order(searchOrderClause(query)).
		Offset(query.Offset()).
		Limit(query.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, wrapStoreError(errorSubjectListing, errorCodeSearch, err)
	}
	listings, err := mapListings(rows)
	if err != nil {
		return nil, 0, err
	}
	return listings, total, nil
}

func searchOrderClause(query loppet.SearchQuery) string {
	column := "created_at"
	switch query.SortBy {
	case loppet.SortByPrice:
		column = "price_ore"
	case loppet.SortByViews:
		column = "views"
	}
	direction := "ASC"
	if query.Descending {
		direction = "DESC"
	}
	// Listing id as a tiebreaker keeps page unions duplicate-free.
	return column + " " + direction + ", listing_id ASC"
}

func (store *Store) UpdateListing(ctx context.Context, listingID loppet.ListingID, patch loppet.ListingPatch) (loppet.Listing, error) {
	assignments := map[string]any{"updated_at": time.Now().UTC()}
	if patch.Title != nil {
		assignments["title"] = *patch.Title
	}
	if patch.Description != nil {
		assignments["description"] = *patch.Description
	}
	if patch.PriceOre != nil {
		assignments["price_ore"] = patch.PriceOre.Int64()
	}
	if patch.Category != nil {
		assignments["category"] = patch.Category.String()
	}
	if patch.Condition != nil {
		assignments["condition"] = patch.Condition.String()
	}
	if patch.Location != nil {
		assignments["location"] = *patch.Location
	}
	if patch.ImageURLs != nil {
		images, err := imagesJSON(*patch.ImageURLs)
		if err != nil {
			return loppet.Listing{}, wrapStoreError(errorSubjectListing, errorCodeInvalid, err)
		}
		assignments["images"] = images
	}
	if patch.Status != nil {
		assignments["status"] = patch.Status.String()
	}
	result := store.db.WithContext(ctx).
		Model(&Listing{}).
		Where("listing_id = ?", listingID.String()).
		Updates(assignments)
	if result.Error != nil {
		return loppet.Listing{}, wrapStoreError(errorSubjectListing, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return loppet.Listing{}, wrapStoreError(errorSubjectListing, errorCodeUpdate, loppet.ErrListingNotFound)
	}
	return store.GetListing(ctx, listingID)
}

// DeleteListing removes the listing and cascades its favorites in the same
// transaction.
func (store *Store) DeleteListing(ctx context.Context, listingID loppet.ListingID) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		if err := transaction.
			Where("listing_id = ?", listingID.String()).
			Delete(&Favorite{}).Error; err != nil {
			return wrapStoreError(errorSubjectFavorite, errorCodeDelete, err)
		}
		result := transaction.
			Where("listing_id = ?", listingID.String()).
			Delete(&Listing{})
		if result.Error != nil {
			return wrapStoreError(errorSubjectListing, errorCodeDelete, result.Error)
		}
		if result.RowsAffected == 0 {
			return wrapStoreError(errorSubjectListing, errorCodeDelete, loppet.ErrListingNotFound)
		}
		return nil
	})
}

func (store *Store) ListListingsBySeller(ctx context.Context, sellerID loppet.AccountID, onlyActive bool) ([]loppet.Listing, error) {
	scope := store.db.WithContext(ctx).
		Where("seller_id = ?", sellerID.String())
	if onlyActive {
		scope = scope.Where("status = ?", loppet.ListingStatusActive.String())
	}
	var rows []Listing
	if err := scope.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectListing, errorCodeList, err)
	}
	return mapListings(rows)
}

func (store *Store) CreateFavorite(ctx context.Context, accountID loppet.AccountID, listingID loppet.ListingID) error {
	row := Favorite{
		AccountID: accountID.String(),
		ListingID: listingID.String(),
		CreatedAt: time.Now().UTC(),
	}
	err := store.db.WithContext(ctx).Create(&row).Error
	if isUniqueViolation(err, "") {
		return wrapStoreError(errorSubjectFavorite, errorCodeDuplicate, loppet.ErrFavoriteExists)
	}
	if err != nil {
		return wrapStoreError(errorSubjectFavorite, errorCodeInsert, err)
	}
	return nil
}

func (store *Store) DeleteFavorite(ctx context.Context, accountID loppet.AccountID, listingID loppet.ListingID) (bool, error) {
	result := store.db.WithContext(ctx).
		Where("account_id = ? AND listing_id = ?", accountID.String(), listingID.String()).
		Delete(&Favorite{})
	if result.Error != nil {
		return false, wrapStoreError(errorSubjectFavorite, errorCodeDelete, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (store *Store) IsFavorite(ctx context.Context, accountID loppet.AccountID, listingID loppet.ListingID) (bool, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&Favorite{}).
		Where("account_id = ? AND listing_id = ?", accountID.String(), listingID.String()).
		Count(&count).Error
	if err != nil {
		return false, wrapStoreError(errorSubjectFavorite, errorCodeGet, err)
	}
	return count > 0, nil
}

func (store *Store) FavoriteSet(ctx context.Context, accountID loppet.AccountID, listingIDs []loppet.ListingID) (map[loppet.ListingID]bool, error) {
	if len(listingIDs) == 0 {
		return map[loppet.ListingID]bool{}, nil
	}
	rawIDs := make([]string, 0, len(listingIDs))
	for _, listingID := range listingIDs {
		rawIDs = append(rawIDs, listingID.String())
	}
	var rows []Favorite
	err := store.db.WithContext(ctx).
		Where("account_id = ? AND listing_id IN ?", accountID.String(), rawIDs).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectFavorite, errorCodeList, err)
	}
	favorites := make(map[loppet.ListingID]bool, len(rows))
	for _, row := range rows {
		listingID, err := loppet.NewListingID(row.ListingID)
		if err != nil {
			return nil, wrapStoreError(errorSubjectFavorite, errorCodeInvalid, err)
		}
		favorites[listingID] = true
	}
	return favorites, nil
}

func (store *Store) ListFavoriteListings(ctx context.Context, accountID loppet.AccountID) ([]loppet.Listing, error) {
	var rows []Listing
	err := store.db.WithContext(ctx).
		Joins("JOIN favorites ON favorites.listing_id = listings.listing_id").
		Where("favorites.account_id = ?", accountID.String()).
		Order("favorites.created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectFavorite, errorCodeList, err)
	}
	return mapListings(rows)
}

func (store *Store) CountFavorites(ctx context.Context, accountID loppet.AccountID) (int64, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&Favorite{}).
		Where("account_id = ?", accountID.String()).
		Count(&count).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectFavorite, errorCodeList, err)
	}
	return count, nil
}

func imagesJSON(imageURLs []string) (datatypes.JSON, error) {
	if imageURLs == nil {
		imageURLs = []string{}
	}
	raw, err := json.Marshal(imageURLs)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func mapListings(rows []Listing) ([]loppet.Listing, error) {
	listings := make([]loppet.Listing, 0, len(rows))
	for _, row := range rows {
		listing, err := mapListing(row)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

func mapListing(row Listing) (loppet.Listing, error) {
	listingID, err := loppet.NewListingID(row.ListingID)
	if err != nil {
		return loppet.Listing{}, wrapStoreError(errorSubjectListing, errorCodeInvalid, err)
	}
	sellerID, err := loppet.NewAccountID(row.SellerID)
	if err != nil {
		return loppet.Listing{}, wrapStoreError(errorSubjectListing, errorCodeInvalid, err)
	}
	status, err := loppet.ParseListingStatus(row.Status)
	if err != nil {
		return loppet.Listing{}, wrapStoreError(errorSubjectListing, errorCodeInvalid, err)
	}
	category, err := loppet.ParseCategory(row.Category)
	if err != nil {
		return loppet.Listing{}, wrapStoreError(errorSubjectListing, errorCodeInvalid, err)
	}
	condition, err := loppet.ParseCondition(row.Condition)
	if err != nil {
		return loppet.Listing{}, wrapStoreError(errorSubjectListing, errorCodeInvalid, err)
	}
	priceOre, err := loppet.NewPriceOre(row.PriceOre)
	if err != nil {
		return loppet.Listing{}, wrapStoreError(errorSubjectListing, errorCodeInvalid, err)
	}
	var imageURLs []string
	if len(row.Images) > 0 {
		if err := json.Unmarshal(row.Images, &imageURLs); err != nil {
			return loppet.Listing{}, wrapStoreError(errorSubjectListing, errorCodeInvalid, err)
		}
	}
	return loppet.Listing{
		ID:          listingID,
		SellerID:    sellerID,
		Title:       row.Title,
		Description: row.Description,
		PriceOre:    priceOre,
		Category:    category,
		Condition:   condition,
		Location:    row.Location,
		ImageURLs:   imageURLs,
		Status:      status,
		Views:       row.Views,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}
