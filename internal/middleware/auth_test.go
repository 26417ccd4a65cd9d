package middleware

import (
	"bookstore-payments/internal/apperr"
	"bookstore-payments/internal/model"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSecret = []byte("test-secret")
	testIssuer = "bookstore-test"
)

func runAuth(t *testing.T, header string) (*model.Identity, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var seen *model.Identity
	err := Auth(testSecret, testIssuer)(func(c echo.Context) error {
		seen = IdentityFrom(c)
		return nil
	})(c)
	return seen, err
}

func TestAuth(t *testing.T) {
	reader := model.Identity{UserID: "reader-1", Email: "r@readers.test", Name: "Ana", Role: model.RoleReader}

	valid, err := IssueToken(testSecret, testIssuer, reader, time.Hour)
	require.NoError(t, err)
	expired, err := IssueToken(testSecret, testIssuer, reader, -time.Minute)
	require.NoError(t, err)
	foreign, err := IssueToken([]byte("other-secret"), testIssuer, reader, time.Hour)
	require.NoError(t, err)
	wrongIssuer, err := IssueToken(testSecret, "someone-else", reader, time.Hour)
	require.NoError(t, err)
	badRole, err := IssueToken(testSecret, testIssuer, model.Identity{UserID: "u", Role: "root"}, time.Hour)
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "reader-1", Issuer: testIssuer},
		Role:             "reader",
	}).SignedString(testSecret)
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		want     *model.Identity
		wantFail bool
	}{
		{name: "anonymous"},
		{name: "valid token", header: "Bearer " + valid, want: &reader},
		{name: "not a bearer", header: "Basic dXNlcjpwYXNz", wantFail: true},
		{name: "garbage", header: "Bearer not-a-jwt", wantFail: true},
		{name: "expired", header: "Bearer " + expired, wantFail: true},
		{name: "wrong secret", header: "Bearer " + foreign, wantFail: true},
		{name: "wrong issuer", header: "Bearer " + wrongIssuer, wantFail: true},
		{name: "unknown role", header: "Bearer " + badRole, wantFail: true},
		{name: "no expiry", header: "Bearer " + noExpiry, wantFail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := runAuth(t, tt.header)
			if tt.wantFail {
				assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequireRoles(t *testing.T) {
	tests := []struct {
		name     string
		identity *model.Identity
		mw       echo.MiddlewareFunc
		wantErr  error
	}{
		{name: "auth anonymous", mw: RequireAuth(), wantErr: apperr.ErrUnauthenticated},
		{name: "auth reader", mw: RequireAuth(), identity: &model.Identity{UserID: "r", Role: model.RoleReader}},
		{name: "staff anonymous", mw: RequireStaff(), wantErr: apperr.ErrUnauthenticated},
		{name: "staff reader", mw: RequireStaff(), identity: &model.Identity{UserID: "r", Role: model.RoleReader}, wantErr: apperr.ErrForbidden},
		{name: "staff author", mw: RequireStaff(), identity: &model.Identity{UserID: "a", Role: model.RoleAuthor}, wantErr: apperr.ErrForbidden},
		{name: "staff admin", mw: RequireStaff(), identity: &model.Identity{UserID: "s", Role: model.RoleAdmin}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
			if tt.identity != nil {
				WithIdentity(c, tt.identity)
			}

			called := false
			err := tt.mw(func(echo.Context) error {
				called = true
				return nil
			})(c)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, called)
			} else {
				assert.NoError(t, err)
				assert.True(t, called)
			}
		})
	}
}
