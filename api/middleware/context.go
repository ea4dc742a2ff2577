package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/kds-backend/pkg/logger"
)

type contextKey string

const (
	ctxStationID contextKey = "station_id"

	stationHeader = "X-KDS-Station"
)

// StationIDFromContext returns the station the calling screen identified itself as.
func StationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxStationID).(string); ok {
		return v
	}
	return ""
}

// WithStationID injects the calling station into the context.
func WithStationID(ctx context.Context, stationID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxStationID, stationID)
}

// StationContext reads the optional X-KDS-Station header so logs and idempotency scopes can
// tell screens apart.
func StationContext(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			stationID := strings.ToLower(strings.TrimSpace(r.Header.Get(stationHeader)))
			if stationID == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := WithStationID(r.Context(), stationID)
			if logg != nil {
				ctx = logg.WithStationID(ctx, stationID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
