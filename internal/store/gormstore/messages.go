package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/loppet/pkg/loppet"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (store *Store) FindConversation(ctx context.Context, listingID loppet.ListingID, buyerID loppet.AccountID, sellerID loppet.AccountID) (loppet.Conversation, error) {
	var row Conversation
	err := store.db.WithContext(ctx).
		Where("listing_id = ? AND buyer_id = ? AND seller_id = ?", listingID.String(), buyerID.String(), sellerID.String()).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return loppet.Conversation{}, wrapStoreError(errorSubjectConversation, errorCodeGet, loppet.ErrConversationNotFound)
		}
		return loppet.Conversation{}, wrapStoreError(errorSubjectConversation, errorCodeGet, err)
	}
	return mapConversation(row)
}

// CreateConversation inserts with ON CONFLICT DO NOTHING on the triple
// index. Losing a concurrent create reports ErrConversationExists without
// raising a driver error, so a surrounding transaction stays usable for the
// re-fetch of the winner's row.
func (store *Store) CreateConversation(ctx context.Context, input loppet.NewConversation) (loppet.Conversation, error) {
	row := Conversation{
		ListingID:     input.ListingID.String(),
		BuyerID:       input.BuyerID.String(),
		SellerID:      input.SellerID.String(),
		LastMessageAt: input.StartedAt.UTC(),
		CreatedAt:     input.StartedAt.UTC(),
	}
	result := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "listing_id"}, {Name: "buyer_id"}, {Name: "seller_id"}},
			DoNothing: true,
		}).
		Create(&row)
	if result.Error != nil {
		return loppet.Conversation{}, wrapStoreError(errorSubjectConversation, errorCodeCreate, result.Error)
	}
	if result.RowsAffected == 0 {
		return loppet.Conversation{}, wrapStoreError(errorSubjectConversation, errorCodeDuplicate, loppet.ErrConversationExists)
	}
	return mapConversation(row)
}

func (store *Store) GetConversation(ctx context.Context, conversationID loppet.ConversationID) (loppet.Conversation, error) {
	var row Conversation
	err := store.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID.String()).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return loppet.Conversation{}, wrapStoreError(errorSubjectConversation, errorCodeGet, loppet.ErrConversationNotFound)
		}
		return loppet.Conversation{}, wrapStoreError(errorSubjectConversation, errorCodeGet, err)
	}
	return mapConversation(row)
}

func (store *Store) ListConversationsByMember(ctx context.Context, accountID loppet.AccountID) ([]loppet.Conversation, error) {
	var rows []Conversation
	err := store.db.WithContext(ctx).
		Where("buyer_id = ? OR seller_id = ?", accountID.String(), accountID.String()).
		Order("last_message_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectConversation, errorCodeList, err)
	}
	conversations := make([]loppet.Conversation, 0, len(rows))
	for _, row := range rows {
		conversation, err := mapConversation(row)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, conversation)
	}
	return conversations, nil
}

func (store *Store) TouchConversation(ctx context.Context, conversationID loppet.ConversationID, at time.Time) error {
	result := store.db.WithContext(ctx).
		Model(&Conversation{}).
		Where("conversation_id = ?", conversationID.String()).
		Update("last_message_at", at.UTC())
	if result.Error != nil {
		return wrapStoreError(errorSubjectConversation, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectConversation, errorCodeUpdate, loppet.ErrConversationNotFound)
	}
	return nil
}

func (store *Store) CreateMessage(ctx context.Context, input loppet.NewMessage) (loppet.Message, error) {
	row := Message{
		ConversationID: input.ConversationID.String(),
		SenderID:       input.SenderID.String(),
		Body:           input.Text.String(),
		SentAt:         input.SentAt.UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&row).Error; err != nil {
		return loppet.Message{}, wrapStoreError(errorSubjectMessage, errorCodeInsert, err)
	}
	return mapMessage(row)
}

func (store *Store) ListMessages(ctx context.Context, conversationID loppet.ConversationID) ([]loppet.Message, error) {
	var rows []Message
	err := store.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID.String()).
		Order("sent_at ASC, message_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectMessage, errorCodeList, err)
	}
	messages := make([]loppet.Message, 0, len(rows))
	for _, row := range rows {
		message, err := mapMessage(row)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func (store *Store) LatestMessage(ctx context.Context, conversationID loppet.ConversationID) (loppet.Message, bool, error) {
	var row Message
	err := store.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID.String()).
		Order("sent_at DESC, message_id DESC").
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return loppet.Message{}, false, nil
		}
		return loppet.Message{}, false, wrapStoreError(errorSubjectMessage, errorCodeGet, err)
	}
	message, err := mapMessage(row)
	if err != nil {
		return loppet.Message{}, false, err
	}
	return message, true, nil
}

func mapConversation(row Conversation) (loppet.Conversation, error) {
	conversationID, err := loppet.NewConversationID(row.ConversationID)
	if err != nil {
		return loppet.Conversation{}, wrapStoreError(errorSubjectConversation, errorCodeInvalid, err)
	}
	listingID, err := loppet.NewListingID(row.ListingID)
	if err != nil {
		return loppet.Conversation{}, wrapStoreError(errorSubjectConversation, errorCodeInvalid, err)
	}
	buyerID, err := loppet.NewAccountID(row.BuyerID)
	if err != nil {
		return loppet.Conversation{}, wrapStoreError(errorSubjectConversation, errorCodeInvalid, err)
	}
	sellerID, err := loppet.NewAccountID(row.SellerID)
	if err != nil {
		return loppet.Conversation{}, wrapStoreError(errorSubjectConversation, errorCodeInvalid, err)
	}
	return loppet.Conversation{
		ID:            conversationID,
		ListingID:     listingID,
		BuyerID:       buyerID,
		SellerID:      sellerID,
		LastMessageAt: row.LastMessageAt,
		CreatedAt:     row.CreatedAt,
	}, nil
}

func mapMessage(row Message) (loppet.Message, error) {
	conversationID, err := loppet.NewConversationID(row.ConversationID)
	if err != nil {
		return loppet.Message{}, wrapStoreError(errorSubjectMessage, errorCodeInvalid, err)
	}
	senderID, err := loppet.NewAccountID(row.SenderID)
	if err != nil {
		return loppet.Message{}, wrapStoreError(errorSubjectMessage, errorCodeInvalid, err)
	}
	return loppet.Message{
		ID:             row.MessageID,
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           row.Body,
		SentAt:         row.SentAt,
	}, nil
}
