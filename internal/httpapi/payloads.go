package httpapi

import (
	"time"

	"github.com/MarkoPoloResearchLab/loppet/pkg/loppet"
)

type accountPayload struct {
	ID          string  `json:"id"`
	Email       string  `json:"email"`
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	AvatarURL   string  `json:"avatar_url"`
	Phone       string  `json:"phone"`
	Location    string  `json:"location"`
	Bio         string  `json:"bio"`
	Rating      float64 `json:"rating"`
	TotalSales  int64   `json:"total_sales"`
	CreatedAt   string  `json:"created_at"`
}

type accountSummaryPayload struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name"`
	AvatarURL   string  `json:"avatar_url"`
	Rating      float64 `json:"rating"`
	TotalSales  int64   `json:"total_sales"`
}

type listingPayload struct {
	ID          string   `json:"id"`
	SellerID    string   `json:"seller_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	PriceOre    int64    `json:"price_ore"`
	Category    string   `json:"category"`
	Condition   string   `json:"condition"`
	Location    string   `json:"location"`
	Images      []string `json:"images"`
	Status      string   `json:"status"`
	Views       int64    `json:"views"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

type listingDetailPayload struct {
	listingPayload
	Seller    accountSummaryPayload `json:"seller"`
	Favorited bool                  `json:"favorited"`
}

type searchResultPayload struct {
	Items      []listingDetailPayload `json:"items"`
	Total      int64                  `json:"total"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	TotalPages int                    `json:"total_pages"`
}

type messagePayload struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	Content        string `json:"content"`
	SentAt         string `json:"sent_at"`
}

type conversationPayload struct {
	ID            string `json:"id"`
	ListingID     string `json:"listing_id"`
	BuyerID       string `json:"buyer_id"`
	SellerID      string `json:"seller_id"`
	LastMessageAt string `json:"last_message_at"`
	CreatedAt     string `json:"created_at"`
}

type inboxEntryPayload struct {
	Conversation conversationPayload   `json:"conversation"`
	OtherParty   accountSummaryPayload `json:"other_party"`
	Listing      *listingPayload       `json:"listing"`
	LastMessage  *messagePayload       `json:"last_message"`
}

type projectPayload struct {
	ID              string `json:"id"`
	CreatorID       string `json:"creator_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	TechStack       string `json:"tech_stack"`
	Impact          string `json:"impact"`
	RepositoryURL   string `json:"repository_url"`
	Status          string `json:"status"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	CreatedAt       string `json:"created_at"`
}

type racePayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Date        string `json:"date"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

type dashboardPayload struct {
	ActiveListings int64 `json:"active_listings"`
	SoldListings   int64 `json:"sold_listings"`
	EarningsOre    int64 `json:"earnings_ore"`
	Favorites      int64 `json:"favorites"`
}

type publicProfilePayload struct {
	accountSummaryPayload
	Location string           `json:"location"`
	Bio      string           `json:"bio"`
	MemberAt string           `json:"member_at"`
	Listings []listingPayload `json:"listings"`
}

func timestamp(at time.Time) string {
	return at.UTC().Format(time.RFC3339)
}

func toAccountPayload(account loppet.Account) accountPayload {
	return accountPayload{
		ID:          account.ID.String(),
		Email:       account.Email,
		Username:    account.Username,
		DisplayName: account.DisplayName,
		AvatarURL:   account.AvatarURL,
		Phone:       account.Phone,
		Location:    account.Location,
		Bio:         account.Bio,
		Rating:      account.Rating,
		TotalSales:  account.TotalSales,
		CreatedAt:   timestamp(account.CreatedAt),
	}
}

func toAccountSummaryPayload(summary loppet.AccountSummary) accountSummaryPayload {
	return accountSummaryPayload{
		ID:          summary.ID.String(),
		Username:    summary.Username,
		DisplayName: summary.DisplayName,
		AvatarURL:   summary.AvatarURL,
		Rating:      summary.Rating,
		TotalSales:  summary.TotalSales,
	}
}

func toListingPayload(listing loppet.Listing) listingPayload {
	images := listing.ImageURLs
	if images == nil {
		images = []string{}
	}
	return listingPayload{
		ID:          listing.ID.String(),
		SellerID:    listing.SellerID.String(),
		Title:       listing.Title,
		Description: listing.Description,
		PriceOre:    listing.PriceOre.Int64(),
		Category:    listing.Category.String(),
		Condition:   listing.Condition.String(),
		Location:    listing.Location,
		Images:      images,
		Status:      listing.Status.String(),
		Views:       listing.Views,
		CreatedAt:   timestamp(listing.CreatedAt),
		UpdatedAt:   timestamp(listing.UpdatedAt),
	}
}

func toListingDetailPayload(detail loppet.ListingDetail) listingDetailPayload {
	return listingDetailPayload{
		listingPayload: toListingPayload(detail.Listing),
		Seller:         toAccountSummaryPayload(detail.Seller),
		Favorited:      detail.Favorited,
	}
}

func toListingDetailPayloads(details []loppet.ListingDetail) []listingDetailPayload {
	payloads := make([]listingDetailPayload, 0, len(details))
	for _, detail := range details {
		payloads = append(payloads, toListingDetailPayload(detail))
	}
	return payloads
}

func toListingPayloads(listings []loppet.Listing) []listingPayload {
	payloads := make([]listingPayload, 0, len(listings))
	for _, listing := range listings {
		payloads = append(payloads, toListingPayload(listing))
	}
	return payloads
}

func toMessagePayload(message loppet.Message) messagePayload {
	return messagePayload{
		ID:             message.ID,
		ConversationID: message.ConversationID.String(),
		SenderID:       message.SenderID.String(),
		Content:        message.Text,
		SentAt:         timestamp(message.SentAt),
	}
}

func toConversationPayload(conversation loppet.Conversation) conversationPayload {
	return conversationPayload{
		ID:            conversation.ID.String(),
		ListingID:     conversation.ListingID.String(),
		BuyerID:       conversation.BuyerID.String(),
		SellerID:      conversation.SellerID.String(),
		LastMessageAt: timestamp(conversation.LastMessageAt),
		CreatedAt:     timestamp(conversation.CreatedAt),
	}
}

func toInboxEntryPayload(entry loppet.InboxEntry) inboxEntryPayload {
	payload := inboxEntryPayload{
		Conversation: toConversationPayload(entry.Conversation),
		OtherParty:   toAccountSummaryPayload(entry.OtherParty),
	}
	if entry.Listing != nil {
		listing := toListingPayload(*entry.Listing)
		payload.Listing = &listing
	}
	if entry.LastMessage != nil {
		message := toMessagePayload(*entry.LastMessage)
		payload.LastMessage = &message
	}
	return payload
}

func toProjectPayload(project loppet.Project) projectPayload {
	return projectPayload{
		ID:              project.ID.String(),
		CreatorID:       project.CreatorID.String(),
		Title:           project.Title,
		Description:     project.Description,
		Category:        project.Category,
		TechStack:       project.TechStack,
		Impact:          project.Impact,
		RepositoryURL:   project.RepositoryURL,
		Status:          project.Status.String(),
		RejectionReason: project.RejectionReason,
		CreatedAt:       timestamp(project.CreatedAt),
	}
}

func toProjectPayloads(projects []loppet.Project) []projectPayload {
	payloads := make([]projectPayload, 0, len(projects))
	for _, project := range projects {
		payloads = append(payloads, toProjectPayload(project))
	}
	return payloads
}

func toRacePayload(race loppet.Race) racePayload {
	return racePayload{
		ID:          race.ID.String(),
		Name:        race.Name,
		Date:        timestamp(race.Date),
		Location:    race.Location,
		Description: race.Description,
		Active:      race.Active,
	}
}

func toRacePayloads(races []loppet.Race) []racePayload {
	payloads := make([]racePayload, 0, len(races))
	for _, race := range races {
		payloads = append(payloads, toRacePayload(race))
	}
	return payloads
}
