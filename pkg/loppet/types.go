package loppet

import (
	"fmt"
	"strings"
	"time"
)

// PriceOre is an integer price in öre (minor currency units).
type PriceOre int64

// AccountID identifies a registered account.
type AccountID struct {
	value string
}

// ListingID identifies a classified ad.
type ListingID struct {
	value string
}

// ConversationID identifies a buyer/seller message thread.
type ConversationID struct {
	value string
}

// ProjectID identifies a GoodHub project.
type ProjectID struct {
	value string
}

// RaceID identifies a race reference record.
type RaceID struct {
	value string
}

// NewAccountID validates and normalizes an account id.
func NewAccountID(raw string) (AccountID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return AccountID{}, fmt.Errorf("%w: empty value", ErrInvalidAccountID)
	}
	return AccountID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id AccountID) String() string {
	return id.value
}

// IsZero reports whether the id carries no value.
func (id AccountID) IsZero() bool {
	return id.value == ""
}

// NewListingID validates and normalizes a listing id.
func NewListingID(raw string) (ListingID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ListingID{}, fmt.Errorf("%w: empty value", ErrInvalidListingID)
	}
	return ListingID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id ListingID) String() string {
	return id.value
}

// NewConversationID validates and normalizes a conversation id.
func NewConversationID(raw string) (ConversationID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ConversationID{}, fmt.Errorf("%w: empty value", ErrInvalidConversationID)
	}
	return ConversationID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id ConversationID) String() string {
	return id.value
}

// NewProjectID validates and normalizes a project id.
func NewProjectID(raw string) (ProjectID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ProjectID{}, fmt.Errorf("%w: empty value", ErrInvalidProjectID)
	}
	return ProjectID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id ProjectID) String() string {
	return id.value
}

// NewRaceID validates and normalizes a race id.
func NewRaceID(raw string) (RaceID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return RaceID{}, fmt.Errorf("%w: empty value", ErrInvalidRaceID)
	}
	return RaceID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id RaceID) String() string {
	return id.value
}

// IsZero reports whether the id carries no value.
func (id RaceID) IsZero() bool {
	return id.value == ""
}

// ListingStatus defines the listing lifecycle.
type ListingStatus string

const (
	ListingStatusActive ListingStatus = "ACTIVE"
	ListingStatusSold   ListingStatus = "SOLD"
	ListingStatusPaused ListingStatus = "PAUSED"
)

// ParseListingStatus maps a raw string onto the closed status set.
func ParseListingStatus(raw string) (ListingStatus, error) {
	switch ListingStatus(raw) {
	case ListingStatusActive, ListingStatusSold, ListingStatusPaused:
		return ListingStatus(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidListingStatus, raw)
}

// String returns the stored representation.
func (status ListingStatus) String() string {
	return string(status)
}

// Category is a closed listing category. The same set drives validation and
// serialization (no parallel label arrays).
type Category string

const (
	CategoryCyklar    Category = "Cyklar"
	CategoryLopning   Category = "Löpning"
	CategorySkidor    Category = "Skidor"
	CategorySimning   Category = "Simning"
	CategoryTriathlon Category = "Triathlon"
	CategoryKlader    Category = "Kläder"
	CategoryTillbehor Category = "Tillbehör"
	CategoryOvrigt    Category = "Övrigt"
)

// Categories enumerates every valid category.
func Categories() []Category {
	return []Category{
		CategoryCyklar,
		CategoryLopning,
		CategorySkidor,
		CategorySimning,
		CategoryTriathlon,
		CategoryKlader,
		CategoryTillbehor,
		CategoryOvrigt,
	}
}

// ParseCategory maps a raw string onto the closed category set.
func ParseCategory(raw string) (Category, error) {
	for _, category := range Categories() {
		if Category(raw) == category {
			return category, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, raw)
}

// String returns the stored representation.
func (category Category) String() string {
	return string(category)
}

// Condition is a closed equipment-condition grade.
type Condition string

const (
	ConditionNy        Condition = "Ny"
	ConditionSomNy     Condition = "Som ny"
	ConditionMycketBra Condition = "Mycket bra"
	ConditionBra       Condition = "Bra"
	ConditionAnvand    Condition = "Använd"
)

// Conditions enumerates every valid condition grade.
func Conditions() []Condition {
	return []Condition{ConditionNy, ConditionSomNy, ConditionMycketBra, ConditionBra, ConditionAnvand}
}

// ParseCondition maps a raw string onto the closed condition set.
func ParseCondition(raw string) (Condition, error) {
	for _, condition := range Conditions() {
		if Condition(raw) == condition {
			return condition, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCondition, raw)
}

// String returns the stored representation.
func (condition Condition) String() string {
	return string(condition)
}

// ProjectStatus defines the moderation lifecycle. PENDING is initial,
// APPROVED and REJECTED are terminal.
type ProjectStatus string

const (
	ProjectStatusPending  ProjectStatus = "PENDING"
	ProjectStatusApproved ProjectStatus = "APPROVED"
	ProjectStatusRejected ProjectStatus = "REJECTED"
)

// ParseProjectStatus maps a raw string onto the closed status set.
func ParseProjectStatus(raw string) (ProjectStatus, error) {
	switch ProjectStatus(raw) {
	case ProjectStatusPending, ProjectStatusApproved, ProjectStatusRejected:
		return ProjectStatus(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidProjectStatus, raw)
}

// String returns the stored representation.
func (status ProjectStatus) String() string {
	return string(status)
}

// MessageText is validated message content (1–1000 characters).
type MessageText struct {
	value string
}

const maxMessageTextLength = 1000

// NewMessageText validates message content length.
func NewMessageText(raw string) (MessageText, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return MessageText{}, fmt.Errorf("%w: empty value", ErrInvalidMessageText)
	}
	if len([]rune(trimmed)) > maxMessageTextLength {
		return MessageText{}, fmt.Errorf("%w: longer than %d characters", ErrInvalidMessageText, maxMessageTextLength)
	}
	return MessageText{value: trimmed}, nil
}

// String returns the normalized content.
func (text MessageText) String() string {
	return text.value
}

// NewPriceOre validates a price (zero allowed, negatives rejected).
func NewPriceOre(raw int64) (PriceOre, error) {
	if raw < 0 {
		return 0, fmt.Errorf("%w: must not be negative", ErrInvalidPrice)
	}
	return PriceOre(raw), nil
}

// Int64 returns the raw öre value.
func (price PriceOre) Int64() int64 {
	return int64(price)
}

// Actor is an explicit optional authenticated identity threaded through
// read paths that serve both anonymous and signed-in callers.
type Actor struct {
	id      AccountID
	present bool
}

// ActorFor wraps an authenticated account id.
func ActorFor(accountID AccountID) Actor {
	return Actor{id: accountID, present: true}
}

// NoActor is the anonymous caller.
func NoActor() Actor {
	return Actor{}
}

// ID returns the account id and whether one is present.
func (actor Actor) ID() (AccountID, bool) {
	return actor.id, actor.present
}

// Account is a registered marketplace identity.
type Account struct {
	ID          AccountID
	Email       string
	Username    string
	DisplayName string
	AvatarURL   string
	Phone       string
	Location    string
	Bio         string
	Rating      float64
	TotalSales  int64
	EarningsOre int64
	CreatedAt   time.Time
}

// AccountSummary is the public projection of an account (no email).
type AccountSummary struct {
	ID          AccountID
	Username    string
	DisplayName string
	AvatarURL   string
	Rating      float64
	TotalSales  int64
}

// Summary projects the public fields of an account.
func (account Account) Summary() AccountSummary {
	return AccountSummary{
		ID:          account.ID,
		Username:    account.Username,
		DisplayName: account.DisplayName,
		AvatarURL:   account.AvatarURL,
		Rating:      account.Rating,
		TotalSales:  account.TotalSales,
	}
}

// Listing is a classified ad for a piece of equipment.
type Listing struct {
	ID          ListingID
	SellerID    AccountID
	Title       string
	Description string
	PriceOre    PriceOre
	Category    Category
	Condition   Condition
	Location    string
	ImageURLs   []string
	Status      ListingStatus
	Views       int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Conversation is the at-most-one thread for a (listing, buyer, seller) triple.
type Conversation struct {
	ID            ConversationID
	ListingID     ListingID
	BuyerID       AccountID
	SellerID      AccountID
	LastMessageAt time.Time
	CreatedAt     time.Time
}

// IsMember reports whether the account participates in the conversation.
func (conversation Conversation) IsMember(accountID AccountID) bool {
	return conversation.BuyerID == accountID || conversation.SellerID == accountID
}

// OtherParty returns the participant that is not the given account.
func (conversation Conversation) OtherParty(accountID AccountID) AccountID {
	if conversation.BuyerID == accountID {
		return conversation.SellerID
	}
	return conversation.BuyerID
}

// Message is a single immutable line in a conversation.
type Message struct {
	ID             string
	ConversationID ConversationID
	SenderID       AccountID
	Text           string
	SentAt         time.Time
}

// Project is a GoodHub open-source project submission.
type Project struct {
	ID              ProjectID
	CreatorID       AccountID
	Title           string
	Description     string
	Category        string
	TechStack       string
	Impact          string
	RepositoryURL   string
	Status          ProjectStatus
	RejectionReason string
	CreatedAt       time.Time
}

// Race is read-mostly event reference data.
type Race struct {
	ID          RaceID
	Name        string
	Date        time.Time
	Location    string
	Description string
	Active      bool
}
