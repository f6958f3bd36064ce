package loppet

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	operationSendMessage = "send_message"
	operationReply       = "reply"

	subjectConversation = "conversation"
	subjectMessage      = "message"
)

// InboxEntry is one conversation preview: the other party, the listing it
// concerns, and the most recent message. Listing is nil when the listing has
// since been deleted.
type InboxEntry struct {
	Conversation Conversation
	OtherParty   AccountSummary
	Listing      *Listing
	LastMessage  *Message
}

// SentMessage reports a successful send.
type SentMessage struct {
	ConversationID ConversationID
	Message        Message
}

// MessageService contains the conversation and message domain logic over a Store.
type MessageService struct {
	store   Store
	nowFn   func() time.Time
	logging operationLogging
}

// NewMessageService wires a MessageService.
func NewMessageService(store Store, now func() time.Time, options ...ServiceOption) (*MessageService, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &MessageService{store: store, nowFn: now}
	service.logging.applyOptions(options)
	return service, nil
}

// StartOrContinue sends a message about a listing, reusing the single
// conversation for the (listing, buyer, seller) triple or creating it on
// first contact. The seller cannot open a thread on their own listing.
func (service *MessageService) StartOrContinue(ctx context.Context, actorID AccountID, listingID ListingID, text MessageText) (SentMessage, error) {
	var sent SentMessage
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		listing, err := transactionStore.GetListing(ctx, listingID)
		if err != nil {
			return err
		}
		if listing.SellerID == actorID {
			return ErrSelfMessage
		}
		conversation, err := service.findOrCreateConversation(ctx, transactionStore, listingID, actorID, listing.SellerID)
		if err != nil {
			return err
		}
		message, err := service.appendMessage(ctx, transactionStore, conversation.ID, actorID, text)
		if err != nil {
			return err
		}
		sent = SentMessage{ConversationID: conversation.ID, Message: message}
		return nil
	})
	service.logging.logOperation(ctx, OperationLog{
		Operation: operationSendMessage,
		ActorID:   actorID,
		Subject:   subjectConversation,
		SubjectID: sent.ConversationID.String(),
		Error:     operationError,
	})
	return sent, operationError
}

// Reply appends a message to an existing conversation. Non-participants get
// ErrConversationNotFound so thread existence is never leaked.
func (service *MessageService) Reply(ctx context.Context, actorID AccountID, conversationID ConversationID, text MessageText) (SentMessage, error) {
	var sent SentMessage
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		conversation, err := service.memberConversation(ctx, transactionStore, actorID, conversationID)
		if err != nil {
			return err
		}
		message, err := service.appendMessage(ctx, transactionStore, conversation.ID, actorID, text)
		if err != nil {
			return err
		}
		sent = SentMessage{ConversationID: conversation.ID, Message: message}
		return nil
	})
	service.logging.logOperation(ctx, OperationLog{
		Operation: operationReply,
		ActorID:   actorID,
		Subject:   subjectMessage,
		SubjectID: conversationID.String(),
		Error:     operationError,
	})
	return sent, operationError
}

// Inbox returns the actor's conversations ordered by last activity, newest
// first, each annotated with the other party, the listing, and the most
// recent message.
func (service *MessageService) Inbox(ctx context.Context, actorID AccountID) ([]InboxEntry, error) {
	conversations, err := service.store.ListConversationsByMember(ctx, actorID)
	if err != nil {
		return nil, err
	}
	entries := make([]InboxEntry, 0, len(conversations))
	for _, conversation := range conversations {
		otherParty, err := service.store.GetAccount(ctx, conversation.OtherParty(actorID))
		if err != nil {
			return nil, err
		}
		entry := InboxEntry{Conversation: conversation, OtherParty: otherParty.Summary()}
		listing, err := service.store.GetListing(ctx, conversation.ListingID)
		if err == nil {
			entry.Listing = &listing
		} else if !errors.Is(err, ErrListingNotFound) {
			return nil, err
		}
		lastMessage, found, err := service.store.LatestMessage(ctx, conversation.ID)
		if err != nil {
			return nil, err
		}
		if found {
			entry.LastMessage = &lastMessage
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Thread returns the full conversation history ascending by sent time,
// gated on participation.
func (service *MessageService) Thread(ctx context.Context, actorID AccountID, conversationID ConversationID) ([]Message, error) {
	if _, err := service.memberConversation(ctx, service.store, actorID, conversationID); err != nil {
		return nil, err
	}
	return service.store.ListMessages(ctx, conversationID)
}

func (service *MessageService) memberConversation(ctx context.Context, store Store, actorID AccountID, conversationID ConversationID) (Conversation, error) {
	conversation, err := store.GetConversation(ctx, conversationID)
	if err != nil {
		return Conversation{}, err
	}
	if !conversation.IsMember(actorID) {
		return Conversation{}, ErrConversationNotFound
	}
	return conversation, nil
}

// findOrCreateConversation resolves the unique conversation for the triple.
// A concurrent duplicate create surfaces as a uniqueness conflict and is
// resolved by re-reading the winner's row.
func (service *MessageService) findOrCreateConversation(ctx context.Context, store Store, listingID ListingID, buyerID AccountID, sellerID AccountID) (Conversation, error) {
	conversation, err := store.FindConversation(ctx, listingID, buyerID, sellerID)
	if err == nil {
		return conversation, nil
	}
	if !errors.Is(err, ErrConversationNotFound) {
		return Conversation{}, err
	}
	conversation, err = store.CreateConversation(ctx, NewConversation{
		ListingID: listingID,
		BuyerID:   buyerID,
		SellerID:  sellerID,
		StartedAt: service.nowFn(),
	})
	if errors.Is(err, ErrConversationExists) {
		return store.FindConversation(ctx, listingID, buyerID, sellerID)
	}
	return conversation, err
}

func (service *MessageService) appendMessage(ctx context.Context, store Store, conversationID ConversationID, senderID AccountID, text MessageText) (Message, error) {
	sentAt := service.nowFn()
	message, err := store.CreateMessage(ctx, NewMessage{
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
		SentAt:         sentAt,
	})
	if err != nil {
		return Message{}, err
	}
	if err := store.TouchConversation(ctx, conversationID, sentAt); err != nil {
		return Message{}, err
	}
	return message, nil
}
