package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Account represents the accounts table.
type Account struct {
	AccountID   string    `gorm:"type:uuid;primaryKey"`
	Email       string    `gorm:"not null;uniqueIndex:idx_accounts_email"`
	Username    string    `gorm:"not null;uniqueIndex:idx_accounts_username"`
	DisplayName string    `gorm:"not null"`
	AvatarURL   string    `gorm:""`
	Phone       string    `gorm:""`
	Location    string    `gorm:""`
	Bio         string    `gorm:""`
	Rating      float64   `gorm:"not null;default:0"`
	TotalSales  int64     `gorm:"not null;default:0"`
	EarningsOre int64     `gorm:"not null;default:0"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (Account) TableName() string { return "accounts" }

func (account *Account) BeforeCreate(tx *gorm.DB) error {
	if account.AccountID == "" {
		account.AccountID = uuid.NewString()
	}
	return nil
}

// Listing mirrors the listings table.
type Listing struct {
	ListingID   string         `gorm:"type:uuid;primaryKey"`
	SellerID    string         `gorm:"type:uuid;not null;index:idx_listings_seller"`
	Title       string         `gorm:"not null"`
	Description string         `gorm:"not null"`
	PriceOre    int64          `gorm:"not null"`
	Category    string         `gorm:"not null;index:idx_listings_category"`
	Condition   string         `gorm:"not null"`
	Location    string         `gorm:""`
	Images      datatypes.JSON `gorm:"not null"`
	Status      string         `gorm:"not null;index:idx_listings_status_created,priority:1"`
	Views       int64          `gorm:"not null;default:0"`
	CreatedAt   time.Time      `gorm:"not null;index:idx_listings_status_created,priority:2"`
	UpdatedAt   time.Time      `gorm:"not null"`
}

func (Listing) TableName() string { return "listings" }

func (listing *Listing) BeforeCreate(tx *gorm.DB) error {
	if listing.ListingID == "" {
		listing.ListingID = uuid.NewString()
	}
	return nil
}

// Favorite mirrors the favorites join table; the composite primary key is
// the at-most-once-per-pair invariant.
type Favorite struct {
	AccountID string    `gorm:"type:uuid;primaryKey"`
	ListingID string    `gorm:"type:uuid;primaryKey;index:idx_favorites_listing"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Favorite) TableName() string { return "favorites" }

// Conversation mirrors the conversations table; the unique triple index is
// the at-most-one-conversation invariant.
type Conversation struct {
	ConversationID string    `gorm:"type:uuid;primaryKey"`
	ListingID      string    `gorm:"type:uuid;not null;uniqueIndex:idx_conversations_triple,priority:1"`
	BuyerID        string    `gorm:"type:uuid;not null;uniqueIndex:idx_conversations_triple,priority:2"`
	SellerID       string    `gorm:"type:uuid;not null;uniqueIndex:idx_conversations_triple,priority:3"`
	LastMessageAt  time.Time `gorm:"not null;index:idx_conversations_last_message"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (Conversation) TableName() string { return "conversations" }

func (conversation *Conversation) BeforeCreate(tx *gorm.DB) error {
	if conversation.ConversationID == "" {
		conversation.ConversationID = uuid.NewString()
	}
	return nil
}

// Message mirrors the messages table.
type Message struct {
	MessageID      string    `gorm:"type:uuid;primaryKey"`
	ConversationID string    `gorm:"type:uuid;not null;index:idx_messages_conversation_sent,priority:1"`
	SenderID       string    `gorm:"type:uuid;not null"`
	Body           string    `gorm:"not null"`
	SentAt         time.Time `gorm:"not null;index:idx_messages_conversation_sent,priority:2"`
}

func (Message) TableName() string { return "messages" }

func (message *Message) BeforeCreate(tx *gorm.DB) error {
	if message.MessageID == "" {
		message.MessageID = uuid.NewString()
	}
	return nil
}

// Project mirrors the projects table.
type Project struct {
	ProjectID       string    `gorm:"type:uuid;primaryKey"`
	CreatorID       string    `gorm:"type:uuid;not null;index:idx_projects_creator"`
	Title           string    `gorm:"not null"`
	Description     string    `gorm:"not null"`
	Category        string    `gorm:""`
	TechStack       string    `gorm:""`
	Impact          string    `gorm:""`
	RepositoryURL   string    `gorm:"not null"`
	Status          string    `gorm:"not null;index:idx_projects_status"`
	RejectionReason string    `gorm:""`
	CreatedAt       time.Time `gorm:"not null"`
}

func (Project) TableName() string { return "projects" }

func (project *Project) BeforeCreate(tx *gorm.DB) error {
	if project.ProjectID == "" {
		project.ProjectID = uuid.NewString()
	}
	return nil
}

// ProjectMembership mirrors the project_memberships join table.
type ProjectMembership struct {
	AccountID string    `gorm:"type:uuid;primaryKey"`
	ProjectID string    `gorm:"type:uuid;primaryKey;index:idx_memberships_project"`
	CreatedAt time.Time `gorm:"not null"`
}

func (ProjectMembership) TableName() string { return "project_memberships" }

// Race mirrors the races table.
type Race struct {
	RaceID      string    `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"not null;uniqueIndex:idx_races_name_date,priority:1"`
	Date        time.Time `gorm:"not null;uniqueIndex:idx_races_name_date,priority:2"`
	Location    string    `gorm:""`
	Description string    `gorm:""`
	Active      bool      `gorm:"not null;default:true"`
	CreatedAt   time.Time `gorm:"not null"`
}

func (Race) TableName() string { return "races" }

func (race *Race) BeforeCreate(tx *gorm.DB) error {
	if race.RaceID == "" {
		race.RaceID = uuid.NewString()
	}
	return nil
}

// Models lists every table for AutoMigrate.
func Models() []any {
	return []any{
		&Account{},
		&Listing{},
		&Favorite{},
		&Conversation{},
		&Message{},
		&Project{},
		&ProjectMembership{},
		&Race{},
	}
}
