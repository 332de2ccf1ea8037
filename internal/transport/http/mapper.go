package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kvasir-labs/parlor/internal/apperr"
	"github.com/kvasir-labs/parlor/internal/proto"
	"github.com/kvasir-labs/parlor/internal/store"
)

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// statusFor maps an application error kind to an HTTP status code.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindUnauthorized:
		return http.StatusForbidden
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeAppError renders err as a JSON error response. Storage failures
// are logged and masked; everything else surfaces its message.
func writeAppError(c *gin.Context, logger *zerolog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(status, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

// messageData converts a stored message into its wire shape. The same
// shape is used by the history endpoint and the live feed so clients
// can merge the two without translation.
func messageData(msg *store.Message) proto.MessageData {
	return proto.MessageData{
		ID:           msg.ID,
		RoomID:       msg.RoomID,
		UserID:       msg.UserID,
		Body:         msg.Body,
		AuthorName:   msg.AuthorName,
		AuthorAvatar: msg.AuthorAvatar,
		CreatedAt:    msg.CreatedAt.UnixMilli(),
	}
}
