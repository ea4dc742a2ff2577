package controllers

import (
	"net/http"

	"github.com/angelmondragon/kds-backend/api/responses"
	"github.com/angelmondragon/kds-backend/api/validators"
	"github.com/angelmondragon/kds-backend/internal/journal"
	pkgerrors "github.com/angelmondragon/kds-backend/pkg/errors"
	"github.com/angelmondragon/kds-backend/pkg/logger"
	"github.com/angelmondragon/kds-backend/pkg/pagination"
)

// OrderJournal pages through the persisted history of one order, newest first. Without a
// database it reports a dependency error.
func OrderJournal(svc journal.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "ticket journal disabled"))
			return
		}
		orderID, err := validators.PathParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor, err := validators.QueryString(r, "cursor", 256)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), journal.ListParams{
			OrderID: orderID,
			Limit:   limit,
			Cursor:  cursor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
