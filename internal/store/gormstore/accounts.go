package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/loppet/pkg/loppet"
	"gorm.io/gorm"
)

func (store *Store) GetAccount(ctx context.Context, accountID loppet.AccountID) (loppet.Account, error) {
	var row Account
	err := store.db.WithContext(ctx).
		Where("account_id = ?", accountID.String()).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return loppet.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, loppet.ErrAccountNotFound)
		}
		return loppet.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, err)
	}
	return mapAccount(row)
}

func (store *Store) GetAccountByEmail(ctx context.Context, email string) (loppet.Account, error) {
	var row Account
	err := store.db.WithContext(ctx).
		Where("email = ?", email).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return loppet.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, loppet.ErrAccountNotFound)
		}
		return loppet.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, err)
	}
	return mapAccount(row)
}

func (store *Store) CreateAccount(ctx context.Context, input loppet.NewAccount) (loppet.Account, error) {
	row := Account{
		Email:       input.Email,
		Username:    input.Username,
		DisplayName: input.DisplayName,
		AvatarURL:   input.AvatarURL,
		CreatedAt:   time.Now().UTC(),
	}
	err := store.db.WithContext(ctx).Create(&row).Error
	if isUniqueViolation(err, constraintAccountsUsername) {
		return loppet.Account{}, wrapStoreError(errorSubjectAccount, errorCodeDuplicate, loppet.ErrUsernameTaken)
	}
	if err != nil {
		return loppet.Account{}, wrapStoreError(errorSubjectAccount, errorCodeCreate, err)
	}
	return mapAccount(row)
}

func (store *Store) UpdateAccountProfile(ctx context.Context, accountID loppet.AccountID, patch loppet.ProfilePatch) (loppet.Account, error) {
	assignments := map[string]any{}
	if patch.DisplayName != nil {
		assignments["display_name"] = *patch.DisplayName
	}
	if patch.AvatarURL != nil {
		assignments["avatar_url"] = *patch.AvatarURL
	}
	if patch.Phone != nil {
		assignments["phone"] = *patch.Phone
	}
	if patch.Location != nil {
		assignments["location"] = *patch.Location
	}
	if patch.Bio != nil {
		assignments["bio"] = *patch.Bio
	}
	if len(assignments) > 0 {
		result := store.db.WithContext(ctx).
			Model(&Account{}).
			Where("account_id = ?", accountID.String()).
			Updates(assignments)
		if result.Error != nil {
			return loppet.Account{}, wrapStoreError(errorSubjectAccount, errorCodeUpdate, result.Error)
		}
		if result.RowsAffected == 0 {
			return loppet.Account{}, wrapStoreError(errorSubjectAccount, errorCodeUpdate, loppet.ErrAccountNotFound)
		}
	}
	return store.GetAccount(ctx, accountID)
}

func (store *Store) SellerStats(ctx context.Context, accountID loppet.AccountID) (loppet.SellerStats, error) {
	type statusCount struct {
		Status string
		Total  int64
	}
	var counts []statusCount
	err := store.db.WithContext(ctx).
		Model(&Listing{}).
		Select("status, count(*) as total").
		Where("seller_id = ?", accountID.String()).
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return loppet.SellerStats{}, wrapStoreError(errorSubjectAccount, errorCodeList, err)
	}
	stats := loppet.SellerStats{}
	for _, count := range counts {
		switch loppet.ListingStatus(count.Status) {
		case loppet.ListingStatusActive:
			stats.ActiveListings = count.Total
		case loppet.ListingStatusSold:
			stats.SoldListings = count.Total
		}
	}
	var earnings sqlSum
	err = store.db.WithContext(ctx).
		Model(&Listing{}).
		Select("coalesce(sum(price_ore),0) as total").
		Where("seller_id = ? AND status = ?", accountID.String(), loppet.ListingStatusSold.String()).
		Scan(&earnings).Error
	if err != nil {
		return loppet.SellerStats{}, wrapStoreError(errorSubjectAccount, errorCodeList, err)
	}
	stats.EarningsOre = earnings.Total
	return stats, nil
}

type sqlSum struct {
	Total int64
}

func mapAccount(row Account) (loppet.Account, error) {
	accountID, err := loppet.NewAccountID(row.AccountID)
	if err != nil {
		return loppet.Account{}, wrapStoreError(errorSubjectAccount, errorCodeInvalid, err)
	}
	return loppet.Account{
		ID:          accountID,
		Email:       row.Email,
		Username:    row.Username,
		DisplayName: row.DisplayName,
		AvatarURL:   row.AvatarURL,
		Phone:       row.Phone,
		Location:    row.Location,
		Bio:         row.Bio,
		Rating:      row.Rating,
		TotalSales:  row.TotalSales,
		EarningsOre: row.EarningsOre,
		CreatedAt:   row.CreatedAt,
	}, nil
}
