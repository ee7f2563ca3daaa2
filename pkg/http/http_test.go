package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type askLike struct {
	Question string `json:"question" validate:"required,max=10"`
	Limit    int    `json:"limit" default:"5" validate:"gte=1,lte=20"`
}

func TestReadAndValidateRequest(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"question":"배추"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	var ok askLike
	assert.Nil(t, ReadAndValidateRequest(e.NewContext(req, httptest.NewRecorder()), &ok))
	assert.Equal(t, 5, ok.Limit)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"limit":50}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	var bad askLike
	out := ReadAndValidateRequest(e.NewContext(req, httptest.NewRecorder()), &bad)
	errs, isList := out.([]ValidationError)
	require.True(t, isList)
	require.Len(t, errs, 2)
	assert.Equal(t, "ERR_REQUIRED", errs[0].Code)
	assert.Equal(t, "question", errs[0].Field)
	assert.Equal(t, "ERR_LTE", errs[1].Code)
	assert.Equal(t, "20", errs[1].Params["max"])
}

func TestAppErrorResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	appErr := NotFoundError("ERR_NO_DATA", "no rows").WithParam("date_from", "2024-01-01")
	require.NoError(t, AppErrorResponse(c, appErr))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"ERR_NO_DATA"`)
	assert.Contains(t, rec.Body.String(), `"date_from":"2024-01-01"`)

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, AppErrorResponse(c, errors.New("secret detail")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret detail")
}

func TestBearerToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	c := e.NewContext(req, httptest.NewRecorder())

	assert.Equal(t, "s3cret", BearerToken(c))
	assert.True(t, TokenMatches("s3cret", BearerToken(c)))
	assert.False(t, TokenMatches("", ""))
	assert.False(t, TokenMatches("s3cret", "other"))
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	client := NewClient(WithRetries(2, time.Millisecond))
	require.NoError(t, client.SendAndParse(context.Background(), &RequestOptions{URL: srv.URL}, &out))
	assert.True(t, out.OK)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	err := NewClient(WithRetries(3, time.Millisecond)).SendAndParse(context.Background(), &RequestOptions{URL: srv.URL}, nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, int32(1), calls.Load())
}

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error { return SuccessResponse(c, "pong") })
	e.GET("/boom", func(c echo.Context) error { panic("boom") })
}

func TestServerRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := NewServer([]Handler{pingHandler{}},
		WithRegistry(reg),
		WithCORSOrigins([]string{"*"}),
		WithHealth(func(context.Context) error { return nil }),
	)

	for path, code := range map[string]int{"/ping": 200, "/healthz": 200, "/boom": 500, "/metrics": 200} {
		rec := httptest.NewRecorder()
		srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, code, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `agriprice_http_requests_total{method="GET",route="/ping",status="200"} 1`)
}
