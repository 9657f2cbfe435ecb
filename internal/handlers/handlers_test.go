// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/ripplefund/ripple/internal/config"
	"github.com/ripplefund/ripple/internal/handlers"
	"github.com/ripplefund/ripple/internal/repository"
	"github.com/ripplefund/ripple/internal/services/auth"
	"github.com/ripplefund/ripple/internal/services/payment"
	"github.com/ripplefund/ripple/internal/testutil"
	"github.com/ripplefund/ripple/internal/token"
	"github.com/ripplefund/ripple/internal/totp"
	"github.com/stretchr/testify/require"
)

type testApp struct {
	e    *echo.Echo
	h    *handlers.Handler
	repo *repository.Repository
	auth *auth.Service
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	_, repo := testutil.NewTestDB(t)

	cfg := &config.Config{
		Server: config.ServerConfig{UploadDir: t.TempDir()},
		Auth: config.AuthConfig{
			SecretKey:        "test-secret",
			AccessTokenTTL:   30 * time.Minute,
			RefreshTokenTTL:  7 * 24 * time.Hour,
			MagicTokenTTL:    48 * time.Hour,
			TOTPIssuer:       "Ripple",
			TOTPAlgorithm:    "SHA1",
			OpenRegistration: true,
		},
		Payment: config.PaymentConfig{SecretKey: "sk_test", BaseURL: "http://gateway.invalid"},
	}

	codec, err := token.NewCodec(cfg.Auth.SecretKey,
		cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL, cfg.Auth.MagicTokenTTL)
	require.NoError(t, err)
	engine := totp.NewEngine(cfg.Auth.TOTPIssuer, cfg.Auth.TOTPAlgorithm)

	authService := auth.NewService(repo, codec, engine, nil, &cfg.Auth)
	paymentService := payment.NewService(repo, &cfg.Payment)

	h := handlers.New(repo, authService, paymentService, nil, cfg)

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = h.HTTPErrorHandler

	return &testApp{e: e, h: h, repo: repo, auth: authService}
}

// do runs a JSON request through the echo instance and returns the recorder.
func (a *testApp) do(method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) register(t *testing.T, email, password string) {
	t.Helper()
	_, err := a.auth.Register(context.Background(), email, password, "Test User")
	require.NoError(t, err)
}

func (a *testApp) login(t *testing.T, email, password string) *auth.Grant {
	t.Helper()
	grant, err := a.auth.Authenticate(context.Background(), email, password)
	require.NoError(t, err)
	return grant
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func bearer(token string) map[string]string {
	return map[string]string{echo.HeaderAuthorization: "Bearer " + token}
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	app.e.GET("/health", app.h.Health)

	rec := app.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
