package intake

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/kds-backend/internal/orders"
	"github.com/angelmondragon/kds-backend/internal/stations"
	"github.com/angelmondragon/kds-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/kds-backend/pkg/errors"
	"github.com/angelmondragon/kds-backend/pkg/logger"
	"github.com/angelmondragon/kds-backend/pkg/metrics"
)

// LoaderParams configure a Loader.
type LoaderParams struct {
	Source     Source
	LocationID string
	Logger     *logger.Logger
	Metrics    *metrics.BoardMetrics
	// Stations, when set, drops items routed to stations the board does not run.
	Stations *stations.Registry
}

// Loader wraps a Source so that fetch failures degrade to an empty list.
type Loader struct {
	source     Source
	locationID string
	logg       *logger.Logger
	metrics    *metrics.BoardMetrics
	stations   *stations.Registry
}

func NewLoader(params LoaderParams) (*Loader, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	source := params.Source
	if source == nil {
		source = Empty{}
	}
	return &Loader{
		source:     source,
		locationID: params.LocationID,
		logg:       params.Logger,
		metrics:    params.Metrics,
		stations:   params.Stations,
	}, nil
}

// Load never fails. A fetch error is logged and yields zero orders.
func (l *Loader) Load(ctx context.Context) []orders.Order {
	ctx = l.logg.WithLocationID(ctx, l.locationID)
	start := time.Now()
	fetched, err := l.source.FetchOrders(ctx, l.locationID)
	if err != nil {
		l.metrics.IncIntakeFailure()
		logCtx := l.logg.WithFields(ctx, pkgerrors.Dump(err).Fields())
		l.logg.Error(logCtx, "order intake failed; continuing with empty feed", err)
		return nil
	}
	out := make([]orders.Order, 0, len(fetched))
	for _, o := range fetched {
		if l.stations != nil {
			o.Items = l.knownItems(ctx, o)
			if len(o.Items) == 0 {
				continue
			}
		}
		out = append(out, o)
	}
	l.logg.Debug(l.logg.WithFields(ctx, map[string]any{
		"orders":      len(out),
		"duration_ms": time.Since(start).Milliseconds(),
	}), "order intake fetched")
	return out
}

func (l *Loader) knownItems(ctx context.Context, o orders.Order) []orders.OrderItem {
	kept := o.Items[:0:0]
	for _, item := range o.Items {
		station := item.StationID
		if station == "" {
			station = stations.Kitchen
		}
		if !l.stations.Has(station) {
			l.logg.Warn(l.logg.WithFields(l.logg.WithOrderID(ctx, o.ID), map[string]any{
				"item_id":    item.ID,
				"station_id": station,
			}), "dropping item routed to unknown station")
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

// SourceFromConfig picks the Source for the configured intake mode.
func SourceFromConfig(cfg config.IntakeConfig, now func() time.Time) (Source, error) {
	switch cfg.Mode {
	case config.IntakeModeHTTP:
		return NewHTTPSource(cfg.BaseURL, WithTimeout(cfg.Timeout), WithAPIKey(cfg.APIKey))
	case config.IntakeModeNone:
		return Empty{}, nil
	case config.IntakeModeDemo, "":
		return NewDemoSource(now), nil
	default:
		return nil, fmt.Errorf("unsupported intake mode %q", cfg.Mode)
	}
}
