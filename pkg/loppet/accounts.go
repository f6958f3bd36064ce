package loppet

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	operationResolveIdentity = "resolve_identity"
	operationUpdateProfile   = "update_profile"

	subjectAccount = "account"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)

// IdentityClaims are the verified facts extracted from a third-party
// identity token.
type IdentityClaims struct {
	Subject   string
	Email     string
	Name      string
	AvatarURL string
}

// PublicProfile is the anonymous-visible view of an account together with
// its ACTIVE listings. Email is deliberately absent.
type PublicProfile struct {
	Summary  AccountSummary
	Location string
	Bio      string
	MemberAt time.Time
	Listings []Listing
}

// Dashboard aggregates the signed-in account's marketplace state.
type Dashboard struct {
	ActiveListings int64
	SoldListings   int64
	EarningsOre    int64
	Favorites      int64
}

// AccountService contains the account and profile domain logic over a Store.
type AccountService struct {
	store   Store
	nowFn   func() time.Time
	logging operationLogging
}

// NewAccountService wires an AccountService.
func NewAccountService(store Store, now func() time.Time, options ...ServiceOption) (*AccountService, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &AccountService{store: store, nowFn: now}
	service.logging.applyOptions(options)
	return service, nil
}

// ResolveIdentity maps verified identity claims onto a local account,
// creating one on first sight. A new account requires a username
// (ErrNeedsUsername otherwise) that is unique (ErrUsernameTaken); the
// username is trimmed and lowercased before validation. For an existing
// account the avatar is refreshed opportunistically.
func (service *AccountService) ResolveIdentity(ctx context.Context, claims IdentityClaims, username string) (Account, error) {
	account, operationError := service.resolveIdentity(ctx, claims, username)
	service.logging.logOperation(ctx, OperationLog{
		Operation: operationResolveIdentity,
		ActorID:   account.ID,
		Subject:   subjectAccount,
		SubjectID: account.ID.String(),
		Error:     operationError,
	})
	return account, operationError
}

func (service *AccountService) resolveIdentity(ctx context.Context, claims IdentityClaims, username string) (Account, error) {
	account, err := service.store.GetAccountByEmail(ctx, claims.Email)
	if err == nil {
		if claims.AvatarURL != "" && claims.AvatarURL != account.AvatarURL {
			refreshed, updateErr := service.store.UpdateAccountProfile(ctx, account.ID, ProfilePatch{AvatarURL: &claims.AvatarURL})
			if updateErr == nil {
				account = refreshed
			}
		}
		return account, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return Account{}, err
	}
	normalized := strings.ToLower(strings.TrimSpace(username))
	if normalized == "" {
		return Account{}, ErrNeedsUsername
	}
	if !usernamePattern.MatchString(normalized) {
		return Account{}, fmt.Errorf("%w: 3-30 lowercase letters, digits, underscore", ErrInvalidUsername)
	}
	displayName := strings.TrimSpace(claims.Name)
	if displayName == "" {
		displayName = normalized
	}
	return service.store.CreateAccount(ctx, NewAccount{
		Email:       claims.Email,
		Username:    normalized,
		DisplayName: displayName,
		AvatarURL:   claims.AvatarURL,
	})
}

// Get fetches an account by id.
func (service *AccountService) Get(ctx context.Context, accountID AccountID) (Account, error) {
	return service.store.GetAccount(ctx, accountID)
}

// UpdateProfile applies a partial profile update to the actor's own account.
func (service *AccountService) UpdateProfile(ctx context.Context, actorID AccountID, patch ProfilePatch) (Account, error) {
	var account Account
	var operationError error
	if patch.IsEmpty() {
		account, operationError = service.store.GetAccount(ctx, actorID)
	} else {
		account, operationError = service.store.UpdateAccountProfile(ctx, actorID, patch)
	}
	service.logging.logOperation(ctx, OperationLog{
		Operation: operationUpdateProfile,
		ActorID:   actorID,
		Subject:   subjectAccount,
		SubjectID: actorID.String(),
		Error:     operationError,
	})
	return account, operationError
}

// PublicProfile returns the anonymous-visible view of an account with its
// ACTIVE listings.
func (service *AccountService) PublicProfile(ctx context.Context, accountID AccountID) (PublicProfile, error) {
	account, err := service.store.GetAccount(ctx, accountID)
	if err != nil {
		return PublicProfile{}, err
	}
	listings, err := service.store.ListListingsBySeller(ctx, accountID, true)
	if err != nil {
		return PublicProfile{}, err
	}
	return PublicProfile{
		Summary:  account.Summary(),
		Location: account.Location,
		Bio:      account.Bio,
		MemberAt: account.CreatedAt,
		Listings: listings,
	}, nil
}

// Dashboard aggregates listing counts, earnings, and favorites for the actor.
func (service *AccountService) Dashboard(ctx context.Context, actorID AccountID) (Dashboard, error) {
	stats, err := service.store.SellerStats(ctx, actorID)
	if err != nil {
		return Dashboard{}, err
	}
	favorites, err := service.store.CountFavorites(ctx, actorID)
	if err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		ActiveListings: stats.ActiveListings,
		SoldListings:   stats.SoldListings,
		EarningsOre:    stats.EarningsOre,
		Favorites:      favorites,
	}, nil
}
