package httpapi

import (
	"net/http"

	"github.com/MarkoPoloResearchLab/loppet/pkg/loppet"
	"github.com/gin-gonic/gin"
)

type sendMessageRequest struct {
	ListingID      string `json:"listing_id"`
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

// handleSendMessage starts a conversation about a listing or continues an
// existing one, depending on which identifier the body carries.
func (server *Server) handleSendMessage(ctx *gin.Context) {
	actorID, _ := server.actorID(ctx)
	var request sendMessageRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorBody(codeValidation, "expected JSON body"))
		return
	}
	text, err := loppet.NewMessageText(request.Content)
	if err != nil {
		server.respondError(ctx, err)
		return
	}

	var sent loppet.SentMessage
	switch {
	case request.ConversationID != "":
		conversationID, idErr := loppet.NewConversationID(request.ConversationID)
		if idErr != nil {
			server.respondError(ctx, idErr)
			return
		}
		sent, err = server.messages.Reply(ctx.Request.Context(), actorID, conversationID, text)
	case request.ListingID != "":
		listingID, idErr := loppet.NewListingID(request.ListingID)
		if idErr != nil {
			server.respondError(ctx, idErr)
			return
		}
		sent, err = server.messages.StartOrContinue(ctx.Request.Context(), actorID, listingID, text)
	default:
		ctx.JSON(http.StatusBadRequest, errorBody(codeValidation, "listing_id or conversation_id is required"))
		return
	}
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"conversation_id": sent.ConversationID.String(),
		"message":         toMessagePayload(sent.Message),
	})
}

func (server *Server) handleInbox(ctx *gin.Context) {
	actorID, _ := server.actorID(ctx)
	entries, err := server.messages.Inbox(ctx.Request.Context(), actorID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	payloads := make([]inboxEntryPayload, 0, len(entries))
	for _, entry := range entries {
		payloads = append(payloads, toInboxEntryPayload(entry))
	}
	ctx.JSON(http.StatusOK, gin.H{"conversations": payloads})
}

func (server *Server) handleThread(ctx *gin.Context) {
	actorID, _ := server.actorID(ctx)
	conversationID, err := loppet.NewConversationID(ctx.Param("id"))
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	messages, err := server.messages.Thread(ctx.Request.Context(), actorID, conversationID)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	payloads := make([]messagePayload, 0, len(messages))
	for _, message := range messages {
		payloads = append(payloads, toMessagePayload(message))
	}
	ctx.JSON(http.StatusOK, gin.H{"messages": payloads})
}
