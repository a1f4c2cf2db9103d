package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/executive-war-room/internal/auth"
	"github.com/executive-war-room/internal/domain/ledger"
)

// RespondError translates a service error into its HTTP status and error body
func RespondError(c *gin.Context, logger *slog.Logger, err error) {
	var (
		validationErr ledger.ValidationError
		notFoundErr   ledger.ErrEventNotFound
		duplicateErr  ledger.ErrDuplicateEvent
		transitionErr ledger.ErrInvalidTransition
		authErr       *auth.AuthorizationError
		storeErr      *ledger.StoreError
	)

	switch {
	case errors.As(err, &validationErr):
		RespondBadRequest(c, validationErr.Error())
	case errors.As(err, &notFoundErr):
		RespondNotFound(c, notFoundErr.Error())
	case errors.As(err, &duplicateErr):
		RespondConflict(c, duplicateErr.Error())
	case errors.As(err, &transitionErr):
		RespondConflict(c, transitionErr.Error())
	case errors.As(err, &authErr):
		if authErr.Status == http.StatusForbidden {
			RespondForbidden(c, authErr.Message)
			return
		}
		RespondUnauthorized(c, authErr.Message)
	case errors.As(err, &storeErr):
		logger.Error("Ledger store failure", "error", err)
		RespondStoreError(c)
	default:
		logger.Error("Unexpected error", "error", err)
		RespondInternalError(c)
	}
}
