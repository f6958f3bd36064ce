package loppet

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"
)

// stubStore is an in-memory Store with the same conflict semantics as the
// real persistence layer.
type stubStore struct {
	now time.Time

	accounts map[string]Account
	listings map[string]Listing

	favorites     map[string][]string
	conversations map[string]Conversation
	convByTriple  map[string]string
	messages      []Message

	projects    map[string]Project
	memberships map[string][]string
	races       map[string]Race

	nextID int

	// conversationConflict makes CreateConversation lose a simulated race:
	// the row appears (the concurrent winner's) but the call reports the
	// uniqueness violation.
	conversationConflict bool
}

func newStubStore() *stubStore {
	return &stubStore{
		now:           time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC),
		accounts:      map[string]Account{},
		listings:      map[string]Listing{},
		favorites:     map[string][]string{},
		conversations: map[string]Conversation{},
		convByTriple:  map[string]string{},
		projects:      map[string]Project{},
		memberships:   map[string][]string{},
		races:         map[string]Race{},
	}
}

func (s *stubStore) generateID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

func (s *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	return fn(ctx, s)
}

func (s *stubStore) GetAccount(ctx context.Context, accountID AccountID) (Account, error) {
	account, ok := s.accounts[accountID.String()]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (s *stubStore) GetAccountByEmail(ctx context.Context, email string) (Account, error) {
	for _, account := range s.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return Account{}, ErrAccountNotFound
}

func (s *stubStore) CreateAccount(ctx context.Context, input NewAccount) (Account, error) {
	for _, account := range s.accounts {
		if account.Username == input.Username {
			return Account{}, ErrUsernameTaken
		}
	}
	id, _ := NewAccountID(s.generateID("acct"))
	account := Account{
		ID:          id,
		Email:       input.Email,
		Username:    input.Username,
		DisplayName: input.DisplayName,
		AvatarURL:   input.AvatarURL,
		CreatedAt:   s.now,
	}
	s.accounts[id.String()] = account
	return account, nil
}

func (s *stubStore) UpdateAccountProfile(ctx context.Context, accountID AccountID, patch ProfilePatch) (Account, error) {
	account, ok := s.accounts[accountID.String()]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	if patch.DisplayName != nil {
		account.DisplayName = *patch.DisplayName
	}
	if patch.AvatarURL != nil {
		account.AvatarURL = *patch.AvatarURL
	}
	if patch.Phone != nil {
		account.Phone = *patch.Phone
	}
	if patch.Location != nil {
		account.Location = *patch.Location
	}
	if patch.Bio != nil {
		account.Bio = *patch.Bio
	}
	s.accounts[accountID.String()] = account
	return account, nil
}

func (s *stubStore) SellerStats(ctx context.Context, accountID AccountID) (SellerStats, error) {
	stats := SellerStats{}
	for _, listing := range s.listings {
		if listing.SellerID != accountID {
			continue
		}
		switch listing.Status {
		case ListingStatusActive:
			stats.ActiveListings++
		case ListingStatusSold:
			stats.SoldListings++
			stats.EarningsOre += listing.PriceOre.Int64()
		}
	}
	return stats, nil
}

func (s *stubStore) CreateListing(ctx context.Context, input NewListing) (Listing, error) {
	id, _ := NewListingID(s.generateID("listing"))
	listing := Listing{
		ID:          id,
		SellerID:    input.SellerID,
		Title:       input.Title,
		Description: input.Description,
		PriceOre:    input.PriceOre,
		Category:    input.Category,
		Condition:   input.Condition,
		Location:    input.Location,
		ImageURLs:   input.ImageURLs,
		Status:      ListingStatusActive,
		CreatedAt:   s.now,
		UpdatedAt:   s.now,
	}
	s.now = s.now.Add(time.Second)
	s.listings[id.String()] = listing
	return listing, nil
}

func (s *stubStore) GetListing(ctx context.Context, listingID ListingID) (Listing, error) {
	listing, ok := s.listings[listingID.String()]
	if !ok {
		return Listing{}, ErrListingNotFound
	}
	return listing, nil
}

func (s *stubStore) IncrementViews(ctx context.Context, listingID ListingID) error {
	listing, ok := s.listings[listingID.String()]
	if !ok {
		return ErrListingNotFound
	}
	listing.Views++
	s.listings[listingID.String()] = listing
	return nil
}

func (s *stubStore) SearchListings(ctx context.Context, query SearchQuery) ([]Listing, int64, error) {
	matching := make([]Listing, 0)
	for _, listing := range s.listings {
		if listing.Status != ListingStatusActive {
			continue
		}
		if query.Text != "" {
			needle := strings.ToLower(query.Text)
			if !strings.Contains(strings.ToLower(listing.Title), needle) &&
				!strings.Contains(strings.ToLower(listing.Description), needle) {
				continue
			}
		}
		if query.Category != nil && listing.Category != *query.Category {
			continue
		}
		if query.Condition != nil && listing.Condition != *query.Condition {
			continue
		}
		if query.Location != "" && !strings.Contains(strings.ToLower(listing.Location), strings.ToLower(query.Location)) {
			continue
		}
		if query.MinPriceOre != nil && listing.PriceOre.Int64() < *query.MinPriceOre {
			continue
		}
		if query.MaxPriceOre != nil && listing.PriceOre.Int64() > *query.MaxPriceOre {
			continue
		}
		matching = append(matching, listing)
	}
	sortKey := func(listing Listing) int64 {
		switch query.SortBy {
		case SortByPrice:
			return listing.PriceOre.Int64()
		case SortByViews:
			return listing.Views
		default:
			return listing.CreatedAt.UnixNano()
		}
	}
	sort.SliceStable(matching, func(i, j int) bool {
		if query.Descending {
			return sortKey(matching[i]) > sortKey(matching[j])
		}
		return sortKey(matching[i]) < sortKey(matching[j])
	})
	total := int64(len(matching))
	offset := query.Offset()
	if offset >= len(matching) {
		return []Listing{}, total, nil
	}
	end := offset + query.Limit
	if end > len(matching) {
		end = len(matching)
	}
	return matching[offset:end], total, nil
}

func (s *stubStore) UpdateListing(ctx context.Context, listingID ListingID, patch ListingPatch) (Listing, error) {
	listing, ok := s.listings[listingID.String()]
	if !ok {
		return Listing{}, ErrListingNotFound
	}
	if patch.Title != nil {
		listing.Title = *patch.Title
	}
	if patch.Description != nil {
		listing.Description = *patch.Description
	}
	if patch.PriceOre != nil {
		listing.PriceOre = *patch.PriceOre
	}
	if patch.Category != nil {
		listing.Category = *patch.Category
	}
	if patch.Condition != nil {
		listing.Condition = *patch.Condition
	}
	if patch.Location != nil {
		listing.Location = *patch.Location
	}
	if patch.ImageURLs != nil {
		listing.ImageURLs = *patch.ImageURLs
	}
	if patch.Status != nil {
		listing.Status = *patch.Status
	}
	listing.UpdatedAt = s.now
	s.listings[listingID.String()] = listing
	return listing, nil
}

func (s *stubStore) DeleteListing(ctx context.Context, listingID ListingID) error {
	if _, ok := s.listings[listingID.String()]; !ok {
		return ErrListingNotFound
	}
	delete(s.listings, listingID.String())
	for accountID, listingIDs := range s.favorites {
		kept := listingIDs[:0]
		for _, id := range listingIDs {
			if id != listingID.String() {
				kept = append(kept, id)
			}
		}
		s.favorites[accountID] = kept
	}
	return nil
}

func (s *stubStore) ListListingsBySeller(ctx context.Context, sellerID AccountID, onlyActive bool) ([]Listing, error) {
	listings := make([]Listing, 0)
	for _, listing := range s.listings {
		if listing.SellerID != sellerID {
			continue
		}
		if onlyActive && listing.Status != ListingStatusActive {
			continue
		}
		listings = append(listings, listing)
	}
	sort.SliceStable(listings, func(i, j int) bool {
		return listings[i].CreatedAt.After(listings[j].CreatedAt)
	})
	return listings, nil
}

func (s *stubStore) CreateFavorite(ctx context.Context, accountID AccountID, listingID ListingID) error {
	for _, id := range s.favorites[accountID.String()] {
		if id == listingID.String() {
			return ErrFavoriteExists
		}
	}
	s.favorites[accountID.String()] = append(s.favorites[accountID.String()], listingID.String())
	return nil
}

func (s *stubStore) DeleteFavorite(ctx context.Context, accountID AccountID, listingID ListingID) (bool, error) {
	listingIDs := s.favorites[accountID.String()]
	for index, id := range listingIDs {
		if id == listingID.String() {
			s.favorites[accountID.String()] = append(listingIDs[:index], listingIDs[index+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *stubStore) IsFavorite(ctx context.Context, accountID AccountID, listingID ListingID) (bool, error) {
	for _, id := range s.favorites[accountID.String()] {
		if id == listingID.String() {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubStore) FavoriteSet(ctx context.Context, accountID AccountID, listingIDs []ListingID) (map[ListingID]bool, error) {
	set := map[ListingID]bool{}
	for _, listingID := range listingIDs {
		favorited, _ := s.IsFavorite(ctx, accountID, listingID)
		if favorited {
			set[listingID] = true
		}
	}
	return set, nil
}

func (s *stubStore) ListFavoriteListings(ctx context.Context, accountID AccountID) ([]Listing, error) {
	listingIDs := s.favorites[accountID.String()]
	listings := make([]Listing, 0, len(listingIDs))
	for index := len(listingIDs) - 1; index >= 0; index-- {
		if listing, ok := s.listings[listingIDs[index]]; ok {
			listings = append(listings, listing)
		}
	}
	return listings, nil
}

func (s *stubStore) CountFavorites(ctx context.Context, accountID AccountID) (int64, error) {
	return int64(len(s.favorites[accountID.String()])), nil
}

func tripleKey(listingID ListingID, buyerID AccountID, sellerID AccountID) string {
	return listingID.String() + "|" + buyerID.String() + "|" + sellerID.String()
}

func (s *stubStore) FindConversation(ctx context.Context, listingID ListingID, buyerID AccountID, sellerID AccountID) (Conversation, error) {
	conversationID, ok := s.convByTriple[tripleKey(listingID, buyerID, sellerID)]
	if !ok {
		return Conversation{}, ErrConversationNotFound
	}
	return s.conversations[conversationID], nil
}

func (s *stubStore) CreateConversation(ctx context.Context, input NewConversation) (Conversation, error) {
	key := tripleKey(input.ListingID, input.BuyerID, input.SellerID)
	if _, exists := s.convByTriple[key]; exists {
		return Conversation{}, ErrConversationExists
	}
	id, _ := NewConversationID(s.generateID("conv"))
	conversation := Conversation{
		ID:            id,
		ListingID:     input.ListingID,
		BuyerID:       input.BuyerID,
		SellerID:      input.SellerID,
		LastMessageAt: input.StartedAt,
		CreatedAt:     input.StartedAt,
	}
	s.conversations[id.String()] = conversation
	s.convByTriple[key] = id.String()
	if s.conversationConflict {
		s.conversationConflict = false
		return Conversation{}, ErrConversationExists
	}
	return conversation, nil
}

func (s *stubStore) GetConversation(ctx context.Context, conversationID ConversationID) (Conversation, error) {
	conversation, ok := s.conversations[conversationID.String()]
	if !ok {
		return Conversation{}, ErrConversationNotFound
	}
	return conversation, nil
}

func (s *stubStore) ListConversationsByMember(ctx context.Context, accountID AccountID) ([]Conversation, error) {
	conversations := make([]Conversation, 0)
	for _, conversation := range s.conversations {
		if conversation.IsMember(accountID) {
			conversations = append(conversations, conversation)
		}
	}
	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].LastMessageAt.After(conversations[j].LastMessageAt)
	})
	return conversations, nil
}

func (s *stubStore) TouchConversation(ctx context.Context, conversationID ConversationID, at time.Time) error {
	conversation, ok := s.conversations[conversationID.String()]
	if !ok {
		return ErrConversationNotFound
	}
	conversation.LastMessageAt = at
	s.conversations[conversationID.String()] = conversation
	return nil
}

func (s *stubStore) CreateMessage(ctx context.Context, input NewMessage) (Message, error) {
	message := Message{
		ID:             s.generateID("msg"),
		ConversationID: input.ConversationID,
		SenderID:       input.SenderID,
		Text:           input.Text.String(),
		SentAt:         input.SentAt,
	}
	s.messages = append(s.messages, message)
	return message, nil
}

func (s *stubStore) ListMessages(ctx context.Context, conversationID ConversationID) ([]Message, error) {
	messages := make([]Message, 0)
	for _, message := range s.messages {
		if message.ConversationID == conversationID {
			messages = append(messages, message)
		}
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].SentAt.Before(messages[j].SentAt)
	})
	return messages, nil
}

func (s *stubStore) LatestMessage(ctx context.Context, conversationID ConversationID) (Message, bool, error) {
	messages, _ := s.ListMessages(ctx, conversationID)
	if len(messages) == 0 {
		return Message{}, false, nil
	}
	return messages[len(messages)-1], true, nil
}

func (s *stubStore) CreateProject(ctx context.Context, input NewProject) (Project, error) {
	id, _ := NewProjectID(s.generateID("proj"))
	project := Project{
		ID:            id,
		CreatorID:     input.CreatorID,
		Title:         input.Title,
		Description:   input.Description,
		Category:      input.Category,
		TechStack:     input.TechStack,
		Impact:        input.Impact,
		RepositoryURL: input.RepositoryURL,
		Status:        ProjectStatusPending,
		CreatedAt:     s.now,
	}
	s.projects[id.String()] = project
	return project, nil
}

func (s *stubStore) GetProject(ctx context.Context, projectID ProjectID) (Project, error) {
	project, ok := s.projects[projectID.String()]
	if !ok {
		return Project{}, ErrProjectNotFound
	}
	return project, nil
}

func (s *stubStore) ListProjectsByStatus(ctx context.Context, status ProjectStatus) ([]Project, error) {
	projects := make([]Project, 0)
	for _, project := range s.projects {
		if project.Status == status {
			projects = append(projects, project)
		}
	}
	return projects, nil
}

func (s *stubStore) ListProjectsByCreator(ctx context.Context, creatorID AccountID) ([]Project, error) {
	projects := make([]Project, 0)
	for _, project := range s.projects {
		if project.CreatorID == creatorID {
			projects = append(projects, project)
		}
	}
	return projects, nil
}

func (s *stubStore) TransitionProjectStatus(ctx context.Context, projectID ProjectID, from ProjectStatus, to ProjectStatus, reason string) error {
	project, ok := s.projects[projectID.String()]
	if !ok || project.Status != from {
		return ErrAlreadyReviewed
	}
	project.Status = to
	project.RejectionReason = reason
	s.projects[projectID.String()] = project
	return nil
}

func (s *stubStore) CreateMembership(ctx context.Context, accountID AccountID, projectID ProjectID) error {
	for _, memberID := range s.memberships[projectID.String()] {
		if memberID == accountID.String() {
			return ErrAlreadyMember
		}
	}
	s.memberships[projectID.String()] = append(s.memberships[projectID.String()], accountID.String())
	return nil
}

func (s *stubStore) DeleteMembership(ctx context.Context, accountID AccountID, projectID ProjectID) (bool, error) {
	memberIDs := s.memberships[projectID.String()]
	for index, memberID := range memberIDs {
		if memberID == accountID.String() {
			s.memberships[projectID.String()] = append(memberIDs[:index], memberIDs[index+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *stubStore) ListMembers(ctx context.Context, projectID ProjectID) ([]AccountSummary, error) {
	members := make([]AccountSummary, 0)
	for _, memberID := range s.memberships[projectID.String()] {
		if account, ok := s.accounts[memberID]; ok {
			members = append(members, account.Summary())
		}
	}
	return members, nil
}

func (s *stubStore) ListRaces(ctx context.Context, activeOnly bool) ([]Race, error) {
	races := make([]Race, 0)
	for _, race := range s.races {
		if activeOnly && !race.Active {
			continue
		}
		races = append(races, race)
	}
	sort.SliceStable(races, func(i, j int) bool { return races[i].Date.Before(races[j].Date) })
	return races, nil
}

func (s *stubStore) ListUpcomingRaces(ctx context.Context, from time.Time) ([]Race, error) {
	races := make([]Race, 0)
	for _, race := range s.races {
		if race.Active && !race.Date.Before(from) {
			races = append(races, race)
		}
	}
	sort.SliceStable(races, func(i, j int) bool { return races[i].Date.Before(races[j].Date) })
	return races, nil
}

func (s *stubStore) GetRace(ctx context.Context, raceID RaceID) (Race, error) {
	race, ok := s.races[raceID.String()]
	if !ok {
		return Race{}, ErrRaceNotFound
	}
	return race, nil
}

func (s *stubStore) UpsertRace(ctx context.Context, race Race) error {
	if race.ID.IsZero() {
		id, _ := NewRaceID(s.generateID("race"))
		race.ID = id
	}
	s.races[race.ID.String()] = race
	return nil
}

// --- helpers ---

func (s *stubStore) addAccount(t *testing.T, username string) Account {
	t.Helper()
	account, err := s.CreateAccount(context.Background(), NewAccount{
		Email:       username + "@example.com",
		Username:    username,
		DisplayName: username,
	})
	if err != nil {
		t.Fatalf("add account: %v", err)
	}
	return account
}

func (s *stubStore) addListing(t *testing.T, sellerID AccountID, title string, price int64) Listing {
	t.Helper()
	listing, err := s.CreateListing(context.Background(), NewListing{
		SellerID:    sellerID,
		Title:       title,
		Description: "description for " + title,
		PriceOre:    PriceOre(price),
		Category:    CategoryCyklar,
		Condition:   ConditionBra,
	})
	if err != nil {
		t.Fatalf("add listing: %v", err)
	}
	return listing
}

func fixedClock() time.Time {
	return time.Date(2026, time.August, 15, 10, 0, 0, 0, time.UTC)
}
