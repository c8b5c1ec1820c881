package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/deppfellow/bicycle-gateway/internal/config"
	"github.com/deppfellow/bicycle-gateway/internal/middleware"
	"github.com/deppfellow/bicycle-gateway/internal/model"
	"github.com/deppfellow/bicycle-gateway/internal/server"
	"github.com/deppfellow/bicycle-gateway/internal/service"
	"github.com/deppfellow/bicycle-gateway/internal/upstream"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher[T any] struct {
	record *T
	err    error
}

func (f stubFetcher[T]) Fetch(context.Context, string) (*T, error) {
	return f.record, f.err
}

func newServer() *server.Server {
	logger := zerolog.Nop()
	return &server.Server{Config: config.DefaultConfig(), Logger: &logger}
}

func newBicycleEcho(s *server.Server, bicycles service.Fetcher[model.Bicycle], brands service.Fetcher[model.Brand]) *echo.Echo {
	h := NewBicycleHandler(s, service.NewBicycleService(bicycles, brands, nil))

	e := echo.New()
	e.HTTPErrorHandler = middleware.NewGlobalMiddlewares(s).GlobalErrorHandler
	e.GET("/:id", Handle(h.Handler, h.GetBicycle, http.StatusOK, func() *GetBicycleRequest {
		return &GetBicycleRequest{}
	}))
	return e
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func notFound[T any](name string) stubFetcher[T] {
	return stubFetcher[T]{err: &upstream.FetchError{Upstream: name, Class: upstream.NotFound, Err: errors.New("missing")}}
}

func TestGetBicycle_OK(t *testing.T) {
	e := newBicycleEcho(newServer(),
		stubFetcher[model.Bicycle]{record: &model.Bicycle{ID: "42", Color: "red"}},
		stubFetcher[model.Brand]{record: &model.Brand{Name: "Acme"}},
	)

	rec := get(e, "/42")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"42","color":"red","brand":"Acme"}`, rec.Body.String())
}

func TestGetBicycle_StatusMapping(t *testing.T) {
	okBicycle := stubFetcher[model.Bicycle]{record: &model.Bicycle{ID: "42", Color: "red"}}
	okBrand := stubFetcher[model.Brand]{record: &model.Brand{Name: "Acme"}}

	tests := []struct {
		name     string
		bicycles service.Fetcher[model.Bicycle]
		brands   service.Fetcher[model.Brand]
		want     int
	}{
		{"bicycle missing", notFound[model.Bicycle]("bicycle"), okBrand, http.StatusNotFound},
		{"brand missing", okBicycle, notFound[model.Brand]("brand"), http.StatusNotFound},
		{
			"brand rejects key",
			okBicycle,
			stubFetcher[model.Brand]{err: &upstream.FetchError{Upstream: "brand", Class: upstream.BadRequest, Err: errors.New("bad")}},
			http.StatusBadRequest,
		},
		{
			"bicycle unreachable",
			stubFetcher[model.Bicycle]{err: &upstream.FetchError{Upstream: "bicycle", Class: upstream.Unclassified, Err: errors.New("refused")}},
			okBrand,
			http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(newBicycleEcho(newServer(), tt.bicycles, tt.brands), "/42")

			assert.Equal(t, tt.want, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.EqualValues(t, tt.want, body["status"])
			assert.NotContains(t, body, "id")
			assert.NotContains(t, body, "brand")
		})
	}
}

func TestGetBicycle_EmptyKey(t *testing.T) {
	e := newBicycleEcho(newServer(),
		stubFetcher[model.Bicycle]{record: &model.Bicycle{ID: "42"}},
		stubFetcher[model.Brand]{record: &model.Brand{Name: "Acme"}},
	)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetPath("/:id")
	c.SetParamNames("id")
	c.SetParamValues("")

	handler := Handle(NewHandler(newServer()), NewBicycleHandler(newServer(), nil).GetBicycle, http.StatusOK, func() *GetBicycleRequest {
		return &GetBicycleRequest{}
	})
	err := handler(c)
	require.Error(t, err)
	e.HTTPErrorHandler(err, c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "is required")
}

func TestGetBicycle_InvalidEscapeInKey(t *testing.T) {
	e := newBicycleEcho(newServer(),
		stubFetcher[model.Bicycle]{record: &model.Bicycle{ID: "42"}},
		stubFetcher[model.Brand]{record: &model.Brand{Name: "Acme"}},
	)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/a%2Fb", nil), rec)
	c.SetPath("/:id")
	c.SetParamNames("id")
	c.SetParamValues("a%zz")

	h := NewBicycleHandler(newServer(), nil)
	_, err := h.GetBicycle(c, &GetBicycleRequest{ID: "a%zz"})
	require.Error(t, err)

	e.HTTPErrorHandler(err, c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPathKey(t *testing.T) {
	e := echo.New()

	plain := e.NewContext(httptest.NewRequest(http.MethodGet, "/50%25", nil), httptest.NewRecorder())
	key, err := pathKey(plain, "50%")
	require.NoError(t, err)
	assert.Equal(t, "50%", key)

	raw := e.NewContext(httptest.NewRequest(http.MethodGet, "/a%2Fb", nil), httptest.NewRecorder())
	key, err = pathKey(raw, "a%2Fb")
	require.NoError(t, err)
	assert.Equal(t, "a/b", key)
}

func TestHandle_FreshRequestPerCall(t *testing.T) {
	var seen []*GetBicycleRequest
	fn := func(c echo.Context, req *GetBicycleRequest) (map[string]string, error) {
		seen = append(seen, req)
		return map[string]string{"id": req.ID}, nil
	}

	e := echo.New()
	e.GET("/:id", Handle(NewHandler(newServer()), fn, http.StatusOK, func() *GetBicycleRequest {
		return &GetBicycleRequest{}
	}))

	assert.JSONEq(t, `{"id":"a"}`, get(e, "/a").Body.String())
	assert.JSONEq(t, `{"id":"b"}`, get(e, "/b").Body.String())

	require.Len(t, seen, 2)
	assert.NotSame(t, seen[0], seen[1])
}

func TestCheckHealth(t *testing.T) {
	failing := func(context.Context) error { return errors.New("dial tcp: connection refused") }
	passing := func(context.Context) error { return nil }

	tests := []struct {
		name       string
		checks     map[string]HealthCheckFunc
		rateLimit  bool
		wantStatus int
		wantState  string
	}{
		{
			name:       "all healthy",
			checks:     map[string]HealthCheckFunc{"bicycle": passing, "brand": passing, "redis": passing},
			wantStatus: http.StatusOK,
			wantState:  "healthy",
		},
		{
			name:       "upstream down",
			checks:     map[string]HealthCheckFunc{"bicycle": passing, "brand": failing, "redis": passing},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "unhealthy",
		},
		{
			name:       "redis down without rate limiting",
			checks:     map[string]HealthCheckFunc{"bicycle": passing, "brand": passing, "redis": failing},
			wantStatus: http.StatusOK,
			wantState:  "healthy",
		},
		{
			name:       "redis down with rate limiting",
			checks:     map[string]HealthCheckFunc{"bicycle": passing, "brand": passing, "redis": failing},
			rateLimit:  true,
			wantStatus: http.StatusServiceUnavailable,
			wantState:  "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newServer()
			s.Config.RateLimit.Enabled = tt.rateLimit

			e := echo.New()
			e.GET("/status", NewHealthHandler(s, tt.checks).CheckHealth)

			rec := get(e, "/status")
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body struct {
				Status string                    `json:"status"`
				Checks map[string]map[string]any `json:"checks"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantState, body.Status)
			assert.Len(t, body.Checks, 3)
		})
	}
}

func TestCheckHealth_Disabled(t *testing.T) {
	s := newServer()
	s.Config.Observability.HealthChecks.Enabled = false

	e := echo.New()
	e.GET("/status", NewHealthHandler(s, map[string]HealthCheckFunc{
		"bicycle": func(context.Context) error { return errors.New("down") },
	}).CheckHealth)

	rec := get(e, "/status")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCheckHealth_UsesTimeout(t *testing.T) {
	s := newServer()
	s.Config.Observability.HealthChecks.Timeout = time.Second
	s.Config.Observability.HealthChecks.Checks = []string{"bicycle"}

	var deadline time.Time
	e := echo.New()
	e.GET("/status", NewHealthHandler(s, map[string]HealthCheckFunc{
		"bicycle": func(ctx context.Context) error {
			deadline, _ = ctx.Deadline()
			return nil
		},
	}).CheckHealth)

	get(e, "/status")

	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 500*time.Millisecond)
}
