package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diewo77/paintms/internal/logging"
	"github.com/diewo77/paintms/internal/models"
	"github.com/diewo77/paintms/internal/printing"
	"github.com/diewo77/paintms/internal/services"
	"github.com/diewo77/paintms/internal/validation"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:h_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

type testAPI struct {
	db       *gorm.DB
	clients  *ClientHandler
	products *ProductHandler
	invoices *InvoiceHandler

	client models.Client
	paint  models.Product // 10
	brush  models.Product // 2.5
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db := setupTestDB(t)
	log := logging.Discard()
	activity := services.NewActivityService(db, log)
	renderer, err := printing.NewRenderer("PAINT MS", "DZD", time.UTC)
	require.NoError(t, err)

	api := &testAPI{
		db:       db,
		clients:  NewClientHandler(services.NewClientService(db, log, "DZ"), activity, log, true),
		products: NewProductHandler(services.NewProductService(db, log), activity, log, true),
		invoices: NewInvoiceHandler(services.NewInvoiceService(db, log), activity, renderer, "DZD", log, true),
	}
	phone := "+213555123456"
	api.client = models.Client{Name: "Quincaillerie Amine", Phone: &phone}
	require.NoError(t, db.Create(&api.client).Error)
	api.paint = models.Product{Name: "Peinture blanche 20L", Price: decimal.NewFromInt(10), Unit: "seau"}
	api.brush = models.Product{Name: "Pinceau", Price: decimal.RequireFromString("2.5"), Unit: models.DefaultUnit}
	require.NoError(t, db.Create(&api.paint).Error)
	require.NoError(t, db.Create(&api.brush).Error)
	return api
}

// call runs h with an optional JSON body and {id} path value and decodes the JSON response.
func call(t *testing.T, h http.HandlerFunc, method, target, id string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if id != "" {
		req.SetPathValue("id", id)
	}
	rec := httptest.NewRecorder()
	h(rec, req)

	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestFlexUint(t *testing.T) {
	tests := []struct {
		in      string
		want    FlexUint
		wantErr bool
	}{
		{in: `3`, want: 3},
		{in: `"3"`, want: 3},
		{in: `" 12 "`, want: 12},
		{in: `null`, want: 0},
		{in: `""`, want: 0},
		{in: `-1`, wantErr: true},
		{in: `"abc"`, wantErr: true},
		{in: `1.5`, wantErr: true},
	}
	for _, tt := range tests {
		var got FlexUint
		err := json.Unmarshal([]byte(tt.in), &got)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestFlexInt(t *testing.T) {
	tests := []struct {
		in      string
		want    FlexInt
		wantErr bool
	}{
		{in: `2`, want: 2},
		{in: `"2"`, want: 2},
		{in: `2.0`, want: 2},
		{in: `-3`, want: -3},
		{in: `null`, want: 0},
		{in: `2.5`, wantErr: true},
		{in: `"two"`, wantErr: true},
		{in: `99999999999999999999`, wantErr: true},
	}
	for _, tt := range tests {
		var got FlexInt
		err := json.Unmarshal([]byte(tt.in), &got)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestFlexTime(t *testing.T) {
	var v struct {
		Date *FlexTime `json:"date"`
		Due  *FlexTime `json:"due"`
		None *FlexTime `json:"none"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2025-03-04","due":"2025-03-10T12:00:00Z","none":null}`), &v))
	require.NotNil(t, v.Date.Ptr())
	assert.Equal(t, "2025-03-04", v.Date.Format(dayLayout))
	assert.Equal(t, time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC), v.Due.UTC())
	assert.Nil(t, v.None.Ptr())

	assert.Error(t, json.Unmarshal([]byte(`{"date":"04/03/2025"}`), &v))
}

func TestOptionalTime(t *testing.T) {
	var v struct {
		Absent  OptionalTime `json:"absent"`
		Null    OptionalTime `json:"null"`
		Empty   OptionalTime `json:"empty"`
		Present OptionalTime `json:"present"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"null":null,"empty":"","present":"2025-04-04"}`), &v))

	assert.False(t, v.Absent.Set)
	assert.False(t, v.Absent.Cleared())
	assert.Nil(t, v.Absent.Ptr())

	assert.True(t, v.Null.Cleared())
	assert.True(t, v.Empty.Cleared())

	assert.False(t, v.Present.Cleared())
	require.NotNil(t, v.Present.Ptr())
	assert.Equal(t, "2025-04-04", v.Present.Format(dayLayout))
}

func TestFailMapsServiceErrors(t *testing.T) {
	rs := responder{log: logging.Discard(), dev: false}
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", &services.ValidationError{Violations: validation.Violations{"name": "required"}}, http.StatusBadRequest, "validation_failed"},
		{"not found", &services.NotFoundError{Resource: "product", IDs: []uint{4, 9}}, http.StatusNotFound, "product_not_found"},
		{"conflict", &services.ConflictError{Resource: "client", Message: "blocked", Invoices: []services.InvoiceRef{{ID: 1, Number: "PMS-20250304-001"}}}, http.StatusConflict, "delete_conflict"},
		{"inconsistent", &services.InconsistencyError{Op: "print", InvoiceID: 3}, http.StatusInternalServerError, "inconsistent_state"},
		{"credentials", services.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
		{"wrong password", services.ErrWrongPassword, http.StatusBadRequest, "invalid_current_password"},
		{"wrapped", fmt.Errorf("load: %w", &services.NotFoundError{Resource: "invoice", IDs: []uint{1}}), http.StatusNotFound, "invoice_not_found"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			rs.fail(rec, httptest.NewRequest(http.MethodGet, "/x", nil), "test", tt.name, tt.err)
			assert.Equal(t, tt.status, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body["error"])
		})
	}
}

func TestFailConflictDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	err := &services.ConflictError{
		Resource: "client",
		Message:  "Ce client a 2 facture(s): PMS-20250304-001, PMS-20250304-002. Supprimez d'abord ces factures.",
		Invoices: []services.InvoiceRef{{ID: 1, Number: "PMS-20250304-001"}, {ID: 2, Number: "PMS-20250304-002"}},
	}
	responder{log: logging.Discard()}.fail(rec, httptest.NewRequest(http.MethodDelete, "/clients/1", nil), "test", "Delete", err)

	var body struct {
		Details struct {
			Message      string `json:"message"`
			InvoiceCount int    `json:"invoice_count"`
			Invoices     []struct {
				Number string `json:"invoice_number"`
			} `json:"invoices"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Details.InvoiceCount)
	assert.Equal(t, err.Message, body.Details.Message)
	assert.Equal(t, "PMS-20250304-002", body.Details.Invoices[1].Number)
}

func TestInternalErrorDetailsOnlyInDev(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	rec := httptest.NewRecorder()
	responder{log: logging.Discard(), dev: true}.fail(rec, req, "test", "dev", errors.New("db exploded"))
	assert.Contains(t, rec.Body.String(), "db exploded")

	rec = httptest.NewRecorder()
	responder{log: logging.Discard(), dev: false}.fail(rec, req, "test", "prod", errors.New("db exploded"))
	assert.NotContains(t, rec.Body.String(), "db exploded")
}

func TestRequestMeta(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	req.Header.Set("User-Agent", "paintms-test")
	meta := requestMeta(req)
	assert.Equal(t, "10.0.0.7", meta.IPAddress)
	assert.Equal(t, "paintms-test", meta.UserAgent)

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", requestMeta(req).IPAddress)
}

func TestDecodeRejectsBadBodies(t *testing.T) {
	api := newTestAPI(t)

	rec, body := call(t, api.clients.Create, http.MethodPost, "/clients", "", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_json", body["error"])

	rec, body = call(t, api.clients.Create, http.MethodPost, "/clients", "", map[string]any{"phone": "0555123456"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_failed", body["error"])
	assert.Equal(t, map[string]any{"name": "required"}, body["details"])

	rec, body = call(t, api.clients.Get, http.MethodGet, "/clients/abc", "abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_id", body["error"])
}
