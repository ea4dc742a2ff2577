package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/kds-backend/api/responses"
	"github.com/angelmondragon/kds-backend/api/validators"
	"github.com/angelmondragon/kds-backend/internal/session"
	pkgerrors "github.com/angelmondragon/kds-backend/pkg/errors"
	"github.com/angelmondragon/kds-backend/pkg/logger"
)

func ListStations(board *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, board.Stations())
	}
}

// StationBoard renders one station's lanes, batch suggestions and unread count.
func StationBoard(board *session.Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stationID, err := stationParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, ok := board.StationBoard(stationID)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Newf(pkgerrors.CodeNotFound, "station %q not found", stationID))
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func DismissBatch(board *session.Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stationID, err := stationParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		key, err := validators.PathParam(r, "key")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		applied := board.DismissBatch(r.Context(), stationID, strings.ToLower(key))
		responses.WriteOutcome(w, applied, map[string]string{"stationId": stationID, "key": strings.ToLower(key)})
	}
}

func StationMessages(board *session.Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stationID, err := stationParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"messages":    board.Messages(stationID),
			"unreadCount": board.UnreadCount(stationID),
		})
	}
}

func MarkAllMessagesRead(board *session.Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stationID, err := stationParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		changed := board.MarkAllMessagesRead(r.Context(), stationID)
		responses.WriteOutcome(w, changed > 0, map[string]int{"marked": changed})
	}
}

func stationParam(r *http.Request) (string, error) {
	stationID, err := validators.PathParam(r, "stationId")
	if err != nil {
		return "", err
	}
	return strings.ToLower(stationID), nil
}
