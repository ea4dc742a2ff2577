package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/kds-backend/api/responses"
	"github.com/angelmondragon/kds-backend/api/validators"
	"github.com/angelmondragon/kds-backend/internal/session"
	"github.com/angelmondragon/kds-backend/pkg/logger"
)

const maxMessageLength = 500

type sendMessageRequest struct {
	From string `json:"from" validate:"required,station_id"`
	To   string `json:"to" validate:"required,station_id"`
	Text string `json:"text" validate:"required,max=500"`
}

func SendMessage(board *session.Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body sendMessageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		msg, ok := board.SendMessage(
			r.Context(),
			strings.ToLower(strings.TrimSpace(body.From)),
			strings.ToLower(strings.TrimSpace(body.To)),
			validators.SanitizeString(body.Text, maxMessageLength),
		)
		responses.WriteOutcome(w, ok, msg)
	}
}

func MarkMessageRead(board *session.Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messageID, err := validators.PathParam(r, "messageId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		msg, ok := board.MarkMessageRead(r.Context(), messageID)
		responses.WriteOutcome(w, ok, msg)
	}
}
