package loppet

import (
	"context"
	"fmt"
	"time"
)

// Store is the persistence contract used by the marketplace services.
// (gormstore implements this.)
type Store interface {
	AccountStore
	ListingStore
	MessageStore
	ProjectStore
	RaceStore
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
}

// AccountStore persists accounts and their aggregates.
type AccountStore interface {
	GetAccount(ctx context.Context, accountID AccountID) (Account, error)
	GetAccountByEmail(ctx context.Context, email string) (Account, error)
	CreateAccount(ctx context.Context, input NewAccount) (Account, error)
	UpdateAccountProfile(ctx context.Context, accountID AccountID, patch ProfilePatch) (Account, error)
	SellerStats(ctx context.Context, accountID AccountID) (SellerStats, error)
}

// ListingStore persists listings and the account↔listing favorite relation.
type ListingStore interface {
	CreateListing(ctx context.Context, input NewListing) (Listing, error)
	GetListing(ctx context.Context, listingID ListingID) (Listing, error)
	IncrementViews(ctx context.Context, listingID ListingID) error
	SearchListings(ctx context.Context, query SearchQuery) ([]Listing, int64, error)
	UpdateListing(ctx context.Context, listingID ListingID, patch ListingPatch) (Listing, error)
	DeleteListing(ctx context.Context, listingID ListingID) error
	ListListingsBySeller(ctx context.Context, sellerID AccountID, onlyActive bool) ([]Listing, error)

	CreateFavorite(ctx context.Context, accountID AccountID, listingID ListingID) error
	DeleteFavorite(ctx context.Context, accountID AccountID, listingID ListingID) (bool, error)
	IsFavorite(ctx context.Context, accountID AccountID, listingID ListingID) (bool, error)
	FavoriteSet(ctx context.Context, accountID AccountID, listingIDs []ListingID) (map[ListingID]bool, error)
	ListFavoriteListings(ctx context.Context, accountID AccountID) ([]Listing, error)
	CountFavorites(ctx context.Context, accountID AccountID) (int64, error)
}

// MessageStore persists conversations and their messages.
type MessageStore interface {
	FindConversation(ctx context.Context, listingID ListingID, buyerID AccountID, sellerID AccountID) (Conversation, error)
	CreateConversation(ctx context.Context, input NewConversation) (Conversation, error)
	GetConversation(ctx context.Context, conversationID ConversationID) (Conversation, error)
	ListConversationsByMember(ctx context.Context, accountID AccountID) ([]Conversation, error)
	TouchConversation(ctx context.Context, conversationID ConversationID, at time.Time) error
	CreateMessage(ctx context.Context, input NewMessage) (Message, error)
	ListMessages(ctx context.Context, conversationID ConversationID) ([]Message, error)
	LatestMessage(ctx context.Context, conversationID ConversationID) (Message, bool, error)
}

// ProjectStore persists projects, the review state, and memberships.
type ProjectStore interface {
	CreateProject(ctx context.Context, input NewProject) (Project, error)
	GetProject(ctx context.Context, projectID ProjectID) (Project, error)
	ListProjectsByStatus(ctx context.Context, status ProjectStatus) ([]Project, error)
	ListProjectsByCreator(ctx context.Context, creatorID AccountID) ([]Project, error)
	TransitionProjectStatus(ctx context.Context, projectID ProjectID, from ProjectStatus, to ProjectStatus, reason string) error
	CreateMembership(ctx context.Context, accountID AccountID, projectID ProjectID) error
	DeleteMembership(ctx context.Context, accountID AccountID, projectID ProjectID) (bool, error)
	ListMembers(ctx context.Context, projectID ProjectID) ([]AccountSummary, error)
}

// RaceStore persists read-mostly race reference data.
type RaceStore interface {
	ListRaces(ctx context.Context, activeOnly bool) ([]Race, error)
	ListUpcomingRaces(ctx context.Context, from time.Time) ([]Race, error)
	GetRace(ctx context.Context, raceID RaceID) (Race, error)
	UpsertRace(ctx context.Context, race Race) error
}

// NewAccount is the input for account creation.
type NewAccount struct {
	Email       string
	Username    string
	DisplayName string
	AvatarURL   string
}

// ProfilePatch is a partial profile update; nil fields are left unchanged.
type ProfilePatch struct {
	DisplayName *string
	AvatarURL   *string
	Phone       *string
	Location    *string
	Bio         *string
}

// IsEmpty reports whether the patch carries no changes.
func (patch ProfilePatch) IsEmpty() bool {
	return patch.DisplayName == nil && patch.AvatarURL == nil && patch.Phone == nil && patch.Location == nil && patch.Bio == nil
}

// SellerStats aggregates dashboard counters for one account.
type SellerStats struct {
	ActiveListings int64
	SoldListings   int64
	EarningsOre    int64
}

// NewListing is the input for listing creation.
type NewListing struct {
	SellerID    AccountID
	Title       string
	Description string
	PriceOre    PriceOre
	Category    Category
	Condition   Condition
	Location    string
	ImageURLs   []string
}

// ListingPatch is a partial listing update; nil fields are left unchanged.
type ListingPatch struct {
	Title       *string
	Description *string
	PriceOre    *PriceOre
	Category    *Category
	Condition   *Condition
	Location    *string
	ImageURLs   *[]string
	Status      *ListingStatus
}

// IsEmpty reports whether the patch carries no changes.
func (patch ListingPatch) IsEmpty() bool {
	return patch.Title == nil && patch.Description == nil && patch.PriceOre == nil &&
		patch.Category == nil && patch.Condition == nil && patch.Location == nil &&
		patch.ImageURLs == nil && patch.Status == nil
}

// SortKey selects the search ordering column.
type SortKey string

const (
	SortByCreatedAt SortKey = "createdAt"
	SortByPrice     SortKey = "price"
	SortByViews     SortKey = "views"
)

// ParseSortKey maps a raw string onto the closed sort-key set, defaulting to
// creation time for the empty string.
func ParseSortKey(raw string) (SortKey, error) {
	if raw == "" {
		return SortByCreatedAt, nil
	}
	switch SortKey(raw) {
	case SortByCreatedAt, SortByPrice, SortByViews:
		return SortKey(raw), nil
	}
	return "", fmt.Errorf("%w: unknown sort key %q", ErrInvalidPageRequest, raw)
}

// SearchQuery carries normalized listing search parameters. Build one with
// NormalizeSearch so pagination bounds hold.
type SearchQuery struct {
	Text        string
	Category    *Category
	Condition   *Condition
	Location    string
	MinPriceOre *int64
	MaxPriceOre *int64
	Page        int
	Limit       int
	SortBy      SortKey
	Descending  bool
}

// Offset returns the row offset for the requested page.
func (query SearchQuery) Offset() int {
	return (query.Page - 1) * query.Limit
}

// NewConversation is the input for conversation creation.
type NewConversation struct {
	ListingID ListingID
	BuyerID   AccountID
	SellerID  AccountID
	StartedAt time.Time
}

// NewMessage is the input for message creation.
type NewMessage struct {
	ConversationID ConversationID
	SenderID       AccountID
	Text           MessageText
	SentAt         time.Time
}

// NewProject is the input for project creation.
type NewProject struct {
	CreatorID     AccountID
	Title         string
	Description   string
	Category      string
	TechStack     string
	Impact        string
	RepositoryURL string
}
