package loppet

import (
	"context"
	"errors"
	"testing"
)

func mustMessageService(t *testing.T, store Store) *MessageService {
	t.Helper()
	service, err := NewMessageService(store, fixedClock)
	if err != nil {
		t.Fatalf("new message service: %v", err)
	}
	return service
}

func mustText(t *testing.T, raw string) MessageText {
	t.Helper()
	text, err := NewMessageText(raw)
	if err != nil {
		t.Fatalf("message text: %v", err)
	}
	return text
}

func TestStartOrContinueReusesConversationForTriple(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	seller := store.addAccount(t, "seller")
	buyer := store.addAccount(t, "buyer")
	listing := store.addListing(t, seller.ID, "Cykel", 100_00)
	service := mustMessageService(t, store)

	first, err := service.StartOrContinue(context.Background(), buyer.ID, listing.ID, mustText(t, "Hej, är den kvar?"))
	if err != nil {
		t.Fatalf("first send: %v", err)
	}
	second, err := service.StartOrContinue(context.Background(), buyer.ID, listing.ID, mustText(t, "Kan hämta ikväll"))
	if err != nil {
		t.Fatalf("second send: %v", err)
	}
	if first.ConversationID != second.ConversationID {
		t.Fatalf("expected one conversation, got %s and %s", first.ConversationID, second.ConversationID)
	}
	if len(store.conversations) != 1 {
		t.Fatalf("expected a single conversation row, got %d", len(store.conversations))
	}
	messages, err := store.ListMessages(context.Background(), first.ConversationID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
}

func TestStartOrContinueRejectsSelfMessage(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	seller := store.addAccount(t, "seller")
	listing := store.addListing(t, seller.ID, "Cykel", 100_00)
	service := mustMessageService(t, store)

	_, err := service.StartOrContinue(context.Background(), seller.ID, listing.ID, mustText(t, "Talking to myself"))
	if !errors.Is(err, ErrSelfMessage) {
		t.Fatalf("expected ErrSelfMessage, got %v", err)
	}
	if len(store.conversations) != 0 {
		t.Fatal("self-message must create nothing")
	}
	if len(store.messages) != 0 {
		t.Fatal("self-message must append nothing")
	}
}

func TestStartOrContinueRecoversFromCreateRace(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	seller := store.addAccount(t, "seller")
	buyer := store.addAccount(t, "buyer")
	listing := store.addListing(t, seller.ID, "Cykel", 100_00)
	store.conversationConflict = true
	service := mustMessageService(t, store)

	sent, err := service.StartOrContinue(context.Background(), buyer.ID, listing.ID, mustText(t, "Hej"))
	if err != nil {
		t.Fatalf("send under race: %v", err)
	}
	if len(store.conversations) != 1 {
		t.Fatalf("expected the winner's single row, got %d", len(store.conversations))
	}
	if sent.ConversationID.String() == "" {
		t.Fatal("expected the re-fetched conversation id")
	}
}

func TestReplyGatesOnMembershipWithoutLeakingExistence(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	seller := store.addAccount(t, "seller")
	buyer := store.addAccount(t, "buyer")
	stranger := store.addAccount(t, "stranger")
	listing := store.addListing(t, seller.ID, "Cykel", 100_00)
	service := mustMessageService(t, store)

	sent, err := service.StartOrContinue(context.Background(), buyer.ID, listing.ID, mustText(t, "Hej"))
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	_, err = service.Reply(context.Background(), stranger.ID, sent.ConversationID, mustText(t, "Intrång"))
	if !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound for a stranger, got %v", err)
	}

	if _, err := service.Reply(context.Background(), seller.ID, sent.ConversationID, mustText(t, "Den är kvar")); err != nil {
		t.Fatalf("seller reply: %v", err)
	}
}

func TestThreadOrdersMessagesAscending(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	seller := store.addAccount(t, "seller")
	buyer := store.addAccount(t, "buyer")
	listing := store.addListing(t, seller.ID, "Cykel", 100_00)
	service := mustMessageService(t, store)

	sent, err := service.StartOrContinue(context.Background(), buyer.ID, listing.ID, mustText(t, "first"))
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := service.Reply(context.Background(), seller.ID, sent.ConversationID, mustText(t, "second")); err != nil {
		t.Fatalf("reply: %v", err)
	}

	thread, err := service.Thread(context.Background(), buyer.ID, sent.ConversationID)
	if err != nil {
		t.Fatalf("thread: %v", err)
	}
	if len(thread) != 2 || thread[0].Text != "first" || thread[1].Text != "second" {
		t.Fatalf("unexpected thread order: %+v", thread)
	}

	if _, err := service.Thread(context.Background(), store.addAccount(t, "outsider").ID, sent.ConversationID); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound for outsider, got %v", err)
	}
}

func TestInboxAnnotatesOtherPartyListingAndPreview(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	seller := store.addAccount(t, "seller")
	buyer := store.addAccount(t, "buyer")
	listing := store.addListing(t, seller.ID, "Cykel", 100_00)
	service := mustMessageService(t, store)

	if _, err := service.StartOrContinue(context.Background(), buyer.ID, listing.ID, mustText(t, "Hej")); err != nil {
		t.Fatalf("send: %v", err)
	}

	inbox, err := service.Inbox(context.Background(), seller.ID)
	if err != nil {
		t.Fatalf("inbox: %v", err)
	}
	if len(inbox) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(inbox))
	}
	entry := inbox[0]
	if entry.OtherParty.ID != buyer.ID {
		t.Fatalf("expected buyer as other party, got %s", entry.OtherParty.ID)
	}
	if entry.Listing == nil || entry.Listing.ID != listing.ID {
		t.Fatal("expected listing summary on the entry")
	}
	if entry.LastMessage == nil || entry.LastMessage.Text != "Hej" {
		t.Fatal("expected latest message preview")
	}
}

func TestInboxSurvivesDeletedListing(t *testing.T) {
	t.Parallel()
	store := newStubStore()
	seller := store.addAccount(t, "seller")
	buyer := store.addAccount(t, "buyer")
	listing := store.addListing(t, seller.ID, "Cykel", 100_00)
	service := mustMessageService(t, store)

	if _, err := service.StartOrContinue(context.Background(), buyer.ID, listing.ID, mustText(t, "Hej")); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := store.DeleteListing(context.Background(), listing.ID); err != nil {
		t.Fatalf("delete listing: %v", err)
	}

	inbox, err := service.Inbox(context.Background(), buyer.ID)
	if err != nil {
		t.Fatalf("inbox: %v", err)
	}
	if len(inbox) != 1 {
		t.Fatalf("expected the conversation to remain, got %d entries", len(inbox))
	}
	if inbox[0].Listing != nil {
		t.Fatal("expected nil listing for a deleted ad")
	}
}
