package controllers

import (
	"net/http"

	"github.com/angelmondragon/kds-backend/api/responses"
	"github.com/angelmondragon/kds-backend/api/validators"
	"github.com/angelmondragon/kds-backend/internal/modifications"
	"github.com/angelmondragon/kds-backend/internal/session"
	"github.com/angelmondragon/kds-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kds-backend/pkg/errors"
	"github.com/angelmondragon/kds-backend/pkg/logger"
)

type stationStatusRequest struct {
	Status enums.OrderStatus `json:"status" validate:"required,order_status"`
	Bump   bool              `json:"bump"`
}

type snoozeRequest struct {
	DurationSeconds *int `json:"durationSeconds" validate:"required,max=86400"`
}

type refireRequest struct {
	ItemID string `json:"itemId" validate:"required,max=128"`
	Reason string `json:"reason" validate:"max=200"`
}

func ListOrders(board *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, board.Orders())
	}
}

func GetOrder(board *session.Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		o, ok := board.Order(orderID)
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Newf(pkgerrors.CodeNotFound, "order %q is not on the board", orderID))
			return
		}
		responses.WriteSuccess(w, o)
	}
}

// Expo renders every live order by overall status.
func Expo(board *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, board.Expo())
	}
}

func UpdateStationStatus(board *session.Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stationID, err := stationParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body stationStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		update := board.UpdateStationStatus(r.Context(), orderID, stationID, body.Status, body.Bump)
		switch {
		case update.Completed != nil:
			responses.WriteOutcome(w, true, map[string]any{"completed": update.Completed})
		case update.Order != nil:
			responses.WriteOutcome(w, update.Applied, map[string]any{"order": update.Order})
		default:
			responses.WriteOutcome(w, false, nil)
		}
	}
}

func BumpOrder(board *session.Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		completed, ok := board.Bump(r.Context(), orderID)
		responses.WriteOutcome(w, ok, completed)
	}
}

func SnoozeOrder(board *session.Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body snoozeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		o, ok := board.Snooze(r.Context(), orderID, *body.DurationSeconds)
		responses.WriteOutcome(w, ok, o)
	}
}

func WakeOrder(board *session.Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		o, ok := board.Wake(r.Context(), orderID)
		responses.WriteOutcome(w, ok, o)
	}
}

func RefireItem(board *session.Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body refireRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		remake, ok := board.Refire(r.Context(), orderID, body.ItemID, validators.SanitizeString(body.Reason, 200))
		responses.WriteOutcome(w, ok, remake)
	}
}

func ModifyOrder(board *session.Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var change modifications.Change
		if err := validators.DecodeJSONBody(r, &change); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		o, ok := board.Modify(r.Context(), orderID, change)
		responses.WriteOutcome(w, ok, o)
	}
}

func ListCompleted(board *session.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, board.Completed())
	}
}

func RecallOrder(board *session.Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		o, ok := board.Recall(r.Context(), orderID)
		responses.WriteOutcome(w, ok, o)
	}
}
