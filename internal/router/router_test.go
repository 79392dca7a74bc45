package router

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/school-event-seating/internal/handler"
	"github.com/iliyamo/school-event-seating/internal/metrics"
	"github.com/iliyamo/school-event-seating/internal/model"
	"github.com/iliyamo/school-event-seating/internal/repository"
	"github.com/iliyamo/school-event-seating/internal/service"
	"github.com/iliyamo/school-event-seating/internal/utils"
)

func newServer(t *testing.T) *echo.Echo {
	t.Helper()
	store := repository.NewInMemoryStore()
	store.AddSeats(
		model.Seat{ID: "D1", RowName: "D", SeatNumber: 1},
		model.Seat{ID: "D2", RowName: "D", SeatNumber: 2},
	)
	reg := prometheus.NewRegistry()
	svc := service.New(store,
		service.WithMetrics(metrics.New(reg)),
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	hash, err := utils.HashPIN("1357", bcrypt.MinCost)
	require.NoError(t, err)

	e := echo.New()
	RegisterRoutes(e, nil, reg)
	RegisterPublic(e, handler.NewPublicHandler(svc, "D", nil), nil, nil)
	RegisterAdmin(e, handler.NewAdminHandler(svc, hash, "secret", time.Hour, nil), "secret", nil)
	return e
}

func serve(e *echo.Echo, method, path, body, auth string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPublicRoutesAreOpen(t *testing.T) {
	e := newServer(t)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/healthz", "", "").Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/v1/classes", "", "").Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/v1/seats", "", "").Code)

	rec := serve(e, http.MethodPost, "/v1/registrations", `{"child_name":"Ana","child_class":"TK A1"}`, "")
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(e, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "seating_allocations_succeeded_total 1")
}

func TestAdminRoutesRequireToken(t *testing.T) {
	e := newServer(t)
	for _, path := range []string{"/v1/admin/seats", "/v1/admin/registrations"} {
		assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodGet, path, "", "").Code, path)
	}
	assert.Equal(t, http.StatusUnauthorized,
		serve(e, http.MethodPost, "/v1/admin/seats/D1/toggle-block", "", "").Code)

	tok, err := utils.NewAdminToken("secret", "admin", time.Hour, time.Now())
	require.NoError(t, err)
	bearer := "Bearer " + tok.Token
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/v1/admin/seats", "", bearer).Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/v1/admin/seats/D1/toggle-block", "", bearer).Code)
}

func TestAdminLoginIsOpen(t *testing.T) {
	e := newServer(t)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/v1/admin/login", `{"pin":"1357"}`, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodPost, "/v1/admin/login", `{"pin":"9999"}`, "").Code)
}
