package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/kds-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/kds-backend/pkg/errors"
)

type statusBody struct {
	Status enums.OrderStatus `json:"status" validate:"required,order_status"`
	Bump   bool              `json:"bump"`
}

func TestDecodeJSONBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"ready","bump":true}`))
	var body statusBody
	require.NoError(t, DecodeJSONBody(req, &body))
	assert.Equal(t, enums.OrderStatusReady, body.Status)
	assert.True(t, body.Bump)
}

func TestDecodeJSONBodyRejectsInvalidStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"done"}`))
	var body statusBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Equal(t, map[string]string{"status": "must be one of pending, preparing, ready"}, pkgerrors.As(err).Details())
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"ready","extra":1}`))
	var body statusBody
	assert.True(t, pkgerrors.IsCode(DecodeJSONBody(req, &body), pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyErrorDetails(t *testing.T) {
	var body statusBody

	err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")), &body)
	assert.Equal(t, "request body required", pkgerrors.As(err).Message())

	err = DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"ready","extra":1}`)), &body)
	assert.Equal(t, "extra", pkgerrors.As(err).Details().(map[string]any)["field"])

	err = DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"ready","bump":"yes"}`)), &body)
	assert.Equal(t, "bump", pkgerrors.As(err).Details().(map[string]any)["field"])

	err = DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"status":"ready"}{"status":"ready"}`)), &body)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestStationIDTag(t *testing.T) {
	type sendBody struct {
		From string `json:"from" validate:"required,station_id"`
	}
	require.NoError(t, Struct(&sendBody{From: "hot-line_2"}))
	err := Struct(&sendBody{From: "bar/../kitchen"})
	require.Error(t, err)
	assert.Contains(t, pkgerrors.As(err).Details(), "from")
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=20", nil)
	limit, err := ParseQueryInt(req, "limit", 50, 1, 200)
	require.NoError(t, err)
	assert.Equal(t, 20, limit)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	limit, err = ParseQueryInt(req, "limit", 50, 1, 200)
	require.NoError(t, err)
	assert.Equal(t, 50, limit)

	req = httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	_, err = ParseQueryInt(req, "limit", 50, 1, 200)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestPathParamDecodes(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("key", "margherita%7Clarge")
	rc.URLParams.Add("empty", " ")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	value, err := PathParam(req, "key")
	require.NoError(t, err)
	assert.Equal(t, "margherita|large", value)

	_, err = PathParam(req, "empty")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("  hello  ", 0))
	assert.Equal(t, "he", SanitizeString("hello", 2))
	assert.Equal(t, "no ice table 4", SanitizeString(" no\tice\n\n table 4\x00", 0))
	assert.Equal(t, "crème", SanitizeString("crème brûlée", 5))
}

func TestQueryString(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?cursor=+abc+", nil)
	v, err := QueryString(req, "cursor", 10)
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	_, err = QueryString(req, "cursor", 2)
	require.Error(t, err)
}
