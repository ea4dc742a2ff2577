package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/kds-backend/internal/orders"
	"github.com/angelmondragon/kds-backend/internal/stations"
	"github.com/angelmondragon/kds-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kds-backend/pkg/errors"
)

const (
	defaultTimeout              = 10 * time.Second
	responseBodyReadLimit int64 = 1024
)

// HTTPSource fetches orders from GET {base}/locations/{locationID}/orders.
type HTTPSource struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	now        func() time.Time
}

// Option configures optional source behavior.
type Option func(*HTTPSource)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *HTTPSource) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithAPIKey sends the key as a bearer token.
func WithAPIKey(key string) Option {
	return func(s *HTTPSource) {
		s.apiKey = strings.TrimSpace(key)
	}
}

// WithTimeout overrides the request timeout on the default client.
func WithTimeout(timeout time.Duration) Option {
	return func(s *HTTPSource) {
		if timeout > 0 {
			s.httpClient.Timeout = timeout
		}
	}
}

// NewHTTPSource builds a source rooted at baseURL.
func NewHTTPSource(baseURL string, opts ...Option) (*HTTPSource, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intake base url is required")
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid intake base url")
	}
	source := &HTTPSource{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    trimmed,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(source)
		}
	}
	return source, nil
}

type feedItem struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Variant   *string  `json:"variant"`
	Quantity  int      `json:"quantity"`
	Modifiers []string `json:"modifiers"`
	Station   string   `json:"station"`
}

type feedOrder struct {
	ID              string            `json:"id"`
	OrderNumber     json.RawMessage   `json:"order_number"`
	Type            string            `json:"type"`
	TableNumber     json.RawMessage   `json:"table_number"`
	CustomerName    string            `json:"customer_name"`
	CreatedAt       *time.Time        `json:"created_at"`
	Status          string            `json:"status"`
	StationStatuses map[string]string `json:"station_statuses"`
	Priority        bool              `json:"priority"`
	Notes           string            `json:"notes"`
	Items           []feedItem        `json:"items"`
}

// FetchOrders requests the location's open tickets.
func (s *HTTPSource) FetchOrders(ctx context.Context, locationID string) ([]orders.Order, error) {
	if s == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "intake source not configured")
	}
	endpoint := fmt.Sprintf("%s/locations/%s/orders", s.baseURL, url.PathEscape(locationID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build orders request")
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute orders request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "orders request failed")
	}

	var payload struct {
		Orders []feedOrder `json:"orders"`
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read orders response")
	}
	// The feed returns either {"orders":[...]} or a bare array.
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		err = json.Unmarshal(body, &payload.Orders)
	} else {
		err = json.Unmarshal(body, &payload)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode orders response")
	}

	out := make([]orders.Order, 0, len(payload.Orders))
	for _, fo := range payload.Orders {
		if strings.TrimSpace(fo.ID) == "" {
			continue
		}
		out = append(out, s.mapOrder(fo))
	}
	return out, nil
}

func (s *HTTPSource) mapOrder(fo feedOrder) orders.Order {
	o := orders.Order{
		ID:                  fo.ID,
		OrderNumber:         scalarString(fo.OrderNumber),
		Kind:                enums.FulfillmentKind(strings.ToLower(strings.TrimSpace(fo.Type))),
		TableNumber:         scalarString(fo.TableNumber),
		CustomerName:        fo.CustomerName,
		Status:              enums.OrderStatusPending,
		IsPriority:          fo.Priority,
		SpecialInstructions: fo.Notes,
		StationStatuses:     make(map[string]enums.OrderStatus, len(fo.StationStatuses)),
	}
	if o.OrderNumber == "" {
		o.OrderNumber = fo.ID
	}
	if fo.CreatedAt != nil {
		o.CreatedAt = fo.CreatedAt.UTC()
	} else {
		o.CreatedAt = s.now().UTC()
	}
	if status, err := enums.ParseOrderStatus(fo.Status); err == nil {
		o.Status = status
	}
	for station, raw := range fo.StationStatuses {
		if status, err := enums.ParseOrderStatus(raw); err == nil {
			o.StationStatuses[station] = status
		}
	}
	for i, fi := range fo.Items {
		item := orders.OrderItem{
			ID:             fi.ID,
			Name:           fi.Name,
			Quantity:       fi.Quantity,
			Customizations: fi.Modifiers,
			StationID:      strings.ToLower(strings.TrimSpace(fi.Station)),
		}
		if item.ID == "" {
			item.ID = fmt.Sprintf("%s-%d", fo.ID, i+1)
		}
		if fi.Variant != nil {
			item.Variant = *fi.Variant
		}
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		if item.StationID == "" {
			item.StationID = stations.Kitchen
		}
		if item.Customizations == nil {
			item.Customizations = []string{}
		}
		o.Items = append(o.Items, item)
	}
	return o
}

// scalarString accepts a JSON string or number.
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
		return n.String()
	}
	return ""
}
