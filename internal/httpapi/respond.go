package httpapi

import (
	"errors"
	"net/http"

	"github.com/MarkoPoloResearchLab/loppet/internal/identity"
	"github.com/MarkoPoloResearchLab/loppet/internal/uploads"
	"github.com/MarkoPoloResearchLab/loppet/pkg/loppet"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	codeValidation    = "validation_error"
	codeUnauthorized  = "unauthorized"
	codeForbidden     = "forbidden"
	codeNotFound      = "not_found"
	codeNeedsUsername = "needs_username"
	codeConflict      = "conflict"
	codeInternal      = "internal_error"
)

func errorBody(code string, message string) gin.H {
	return gin.H{"error": code, "message": message}
}

// respondError maps a domain error onto an HTTP status. Everything not
// recognized is a 500 with a generic body; the detail goes to the log only.
func (server *Server) respondError(ctx *gin.Context, err error) {
	status, code := classifyError(err)
	if status == http.StatusInternalServerError {
		server.logger.Error("request failed",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.FullPath()),
			zap.Error(err),
		)
		ctx.JSON(status, errorBody(codeInternal, "unexpected error"))
		return
	}
	ctx.JSON(status, errorBody(code, err.Error()))
}

func classifyError(err error) (int, string) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, codeValidation
	case errors.Is(err, loppet.ErrReasonRequired):
		return http.StatusBadRequest, codeValidation
	case errors.Is(err, identity.ErrInvalidCredential),
		errors.Is(err, identity.ErrEmailRequired),
		errors.Is(err, identity.ErrInvalidSession):
		return http.StatusUnauthorized, codeUnauthorized
	case errors.Is(err, loppet.ErrNotOwner):
		return http.StatusForbidden, codeForbidden
	case errors.Is(err, loppet.ErrListingNotFound),
		errors.Is(err, loppet.ErrConversationNotFound),
		errors.Is(err, loppet.ErrProjectNotFound),
		errors.Is(err, loppet.ErrAccountNotFound),
		errors.Is(err, loppet.ErrRaceNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, loppet.ErrNeedsUsername):
		return http.StatusConflict, codeNeedsUsername
	case errors.Is(err, loppet.ErrUsernameTaken),
		errors.Is(err, loppet.ErrAlreadyReviewed),
		errors.Is(err, loppet.ErrAlreadyMember),
		errors.Is(err, loppet.ErrNotMember),
		errors.Is(err, loppet.ErrSelfMessage):
		return http.StatusConflict, codeConflict
	}
	return http.StatusInternalServerError, codeInternal
}

func isValidationError(err error) bool {
	validationSentinels := []error{
		loppet.ErrInvalidAccountID,
		loppet.ErrInvalidUsername,
		loppet.ErrInvalidListingID,
		loppet.ErrInvalidConversationID,
		loppet.ErrInvalidProjectID,
		loppet.ErrInvalidRaceID,
		loppet.ErrInvalidListingStatus,
		loppet.ErrInvalidProjectStatus,
		loppet.ErrInvalidCategory,
		loppet.ErrInvalidCondition,
		loppet.ErrInvalidMessageText,
		loppet.ErrInvalidPrice,
		loppet.ErrInvalidListingInput,
		loppet.ErrInvalidProjectInput,
		loppet.ErrInvalidPageRequest,
		uploads.ErrTooManyFiles,
		uploads.ErrFileTooLarge,
		uploads.ErrNotAnImage,
		uploads.ErrNoFiles,
	}
	for _, sentinel := range validationSentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
